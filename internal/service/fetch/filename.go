package fetch

import (
	"net/url"
	"path"
	"strings"
	"unicode"

	"github.com/jgivc/fetchimages/internal/util"
)

const (
	generatedPrefix    = "image_"
	generatedExtension = ".jpg"
)

// DeriveFilename picks the destination name for a payload, in priority order:
// the Content-Disposition hint, the last URL path segment, a name generated from the URL.
// Each candidate is sanitized; the first one that stays usable wins.
func DeriveFilename(hint, rawURL string) string {
	for _, candidate := range []string{baseName(hint), lastSegment(rawURL)} {
		if name := Sanitize(candidate); usable(name) {
			return name
		}
	}

	return GeneratedFilename(rawURL)
}

// GeneratedFilename is deterministic for a given URL.
func GeneratedFilename(rawURL string) string {
	return generatedPrefix + util.GetShortIDFromString(&rawURL) + generatedExtension
}

// Sanitize keeps letters, digits, space, dot, underscore and hyphen, then strips trailing whitespace.
func Sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '.' || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}

	return strings.TrimRightFunc(b.String(), unicode.IsSpace)
}

func usable(name string) bool {
	return name != "" && name != "." && name != ".."
}

func baseName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	if name == "" || strings.HasSuffix(name, "/") {
		return ""
	}

	return path.Base(name)
}

func lastSegment(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" || strings.HasSuffix(u.Path, "/") {
		return ""
	}

	return path.Base(u.Path)
}
