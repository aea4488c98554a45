package input

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

type Format string

const (
	FormatAuto     Format = ""
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

const promptMessage = "Enter image URLs separated by commas or new lines, finish with an empty line:"

var ErrUnknownFormat = errors.New("unknown input format")

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatAuto, FormatText, FormatMarkdown, FormatHTML:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	case "htm":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// DetectFormat picks the format by file extension, text is the fallback.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return FormatMarkdown
	case ".html", ".htm", ".xhtml":
		return FormatHTML
	default:
		return FormatText
	}
}

// Extractor returns raw image references found in a document.
type Extractor interface {
	Extract(r io.Reader) ([]string, error)
}

type InputService struct {
	fs       afero.Fs
	markdown Extractor
	html     Extractor
	log      *slog.Logger
}

func NewInputService(fs afero.Fs, markdown, html Extractor, log *slog.Logger) *InputService {
	return &InputService{
		fs:       fs,
		markdown: markdown,
		html:     html,
		log:      log.With(slog.String("item", "InputService")),
	}
}

// FromArgs splits every argument on commas. Repeated URLs are kept.
func (s *InputService) FromArgs(args []string) []string {
	var urls []string
	for _, arg := range args {
		urls = append(urls, splitList(arg)...)
	}

	return urls
}

// FromText reads comma or newline separated URLs, lines starting with # are comments.
func (s *InputService) FromText(r io.Reader) ([]string, error) {
	var urls []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, splitList(line)...)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cannot read url list: %w", err)
	}

	return urls, nil
}

// Prompt asks for URLs on out and reads in until an empty line or EOF.
func (s *InputService) Prompt(in io.Reader, out io.Writer) ([]string, error) {
	if _, err := fmt.Fprintln(out, promptMessage); err != nil {
		return nil, fmt.Errorf("cannot write prompt: %w", err)
	}

	var urls []string

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			break
		}
		urls = append(urls, splitList(line)...)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cannot read prompt input: %w", err)
	}

	return urls, nil
}

// FromFile reads URLs from path. Markdown and HTML references are resolved against base,
// non-http(s) ones are dropped and the result is de-duplicated.
func (s *InputService) FromFile(path string, format Format, base string) ([]string, error) {
	if format == FormatAuto {
		format = DetectFormat(path)
	}

	log := s.log.With(slog.String("path", path), slog.String("format", string(format)))

	f, err := s.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open input file %s: %w", path, err)
	}
	defer f.Close()

	var extractor Extractor

	switch format {
	case FormatText:
		urls, err := s.FromText(f)
		if err != nil {
			return nil, err
		}
		log.Info("Input loaded", slog.Int("urls", len(urls)))

		return urls, nil
	case FormatMarkdown:
		extractor = s.markdown
	case FormatHTML:
		extractor = s.html
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	refs, err := extractor.Extract(f)
	if err != nil {
		return nil, fmt.Errorf("cannot extract urls from %s: %w", path, err)
	}

	urls, err := Resolve(refs, base)
	if err != nil {
		return nil, err
	}

	if skipped := len(refs) - len(urls); skipped > 0 {
		log.Info("Skip references", slog.Int("count", skipped))
	}
	log.Info("Input loaded", slog.Int("urls", len(urls)))

	return urls, nil
}

// Resolve resolves refs against base, drops fragments, keeps http(s) only
// and removes repeats keeping the first occurrence.
func Resolve(refs []string, base string) ([]string, error) {
	baseURL, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return nil, fmt.Errorf("cannot parse base url %q: %w", base, err)
	}

	seen := make(map[string]struct{})
	var out []string

	for _, ref := range refs {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}

		u, err := url.Parse(ref)
		if err != nil {
			continue
		}

		resolved := baseURL.ResolveReference(u)

		switch strings.ToLower(resolved.Scheme) {
		case "http", "https":
		default:
			continue
		}

		if resolved.Host == "" {
			continue
		}

		resolved.Fragment = ""

		s := resolved.String()
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	return out, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}
