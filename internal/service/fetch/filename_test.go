package fetch

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "clean", input: "cat-photo_01.png", expected: "cat-photo_01.png"},
		{name: "spaces kept", input: "my cat.png", expected: "my cat.png"},
		{name: "forbidden removed", input: `a<b>:c"d/e\f|g?h*i.png`, expected: "abcdefghi.png"},
		{name: "trailing whitespace", input: "photo.png   ", expected: "photo.png"},
		{name: "unicode letters", input: "café.png", expected: "café.png"},
		{name: "only forbidden", input: "???", expected: ""},
		{name: "query like", input: "a.png?x=1&y=2", expected: "a.pngx1y2"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, Sanitize(tc.input))
		})
	}
}

func TestDeriveFilename(t *testing.T) {
	testCases := []struct {
		name     string
		hint     string
		url      string
		expected string
	}{
		{
			name:     "disposition wins",
			hint:     "from header.png",
			url:      "https://example.com/images/from-url.png",
			expected: "from header.png",
		},
		{
			name:     "disposition sanitized",
			hint:     "my<cat>?.png",
			url:      "https://example.com/x.png",
			expected: "mycat.png",
		},
		{
			name:     "url segment",
			url:      "https://example.com/images/a.png?size=large#top",
			expected: "a.png",
		},
		{
			name:     "url segment decoded",
			url:      "https://example.com/images/my%20cat.png",
			expected: "my cat.png",
		},
		{
			name:     "unusable hint falls back to url",
			hint:     "???",
			url:      "https://example.com/b.gif",
			expected: "b.gif",
		},
		{
			name:     "dot dot segment is not used",
			url:      "https://example.com/..",
			expected: GeneratedFilename("https://example.com/.."),
		},
		{
			name:     "trailing slash",
			url:      "https://example.com/gallery/",
			expected: GeneratedFilename("https://example.com/gallery/"),
		},
		{
			name:     "no path",
			url:      "https://example.com",
			expected: GeneratedFilename("https://example.com"),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, DeriveFilename(tc.hint, tc.url))
		})
	}
}

func TestGeneratedFilename(t *testing.T) {
	url := "https://example.com/gallery/"

	name := GeneratedFilename(url)
	require.Regexp(t, regexp.MustCompile(`^image_[a-f\d]{8}\.jpg$`), name)
	require.Equal(t, name, GeneratedFilename(url))
	require.NotEqual(t, name, GeneratedFilename("https://example.com/other/"))
}
