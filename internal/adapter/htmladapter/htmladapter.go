package htmladapter

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

type htmlAdapter struct {
	log *slog.Logger
}

func NewHTMLAdapter(log *slog.Logger) *htmlAdapter {
	return &htmlAdapter{
		log: log.With(slog.String("item", "HTMLAdapter")),
	}
}

// Extract returns <img src>, <img srcset> and <source srcset> references in document order.
// References are not resolved.
func (a *htmlAdapter) Extract(r io.Reader) ([]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("cannot parse html: %w", err)
	}

	var refs []string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Img:
				if src := attr(n, "src"); src != "" {
					refs = append(refs, src)
				}
				refs = append(refs, srcset(attr(n, "srcset"))...)
			case atom.Source:
				refs = append(refs, srcset(attr(n, "srcset"))...)
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(doc)

	a.log.Debug("HTML parsed", slog.Int("refs", len(refs)))

	return refs, nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return strings.TrimSpace(a.Val)
		}
	}

	return ""
}

// srcset returns the URL of every candidate, dropping width and density descriptors.
func srcset(value string) []string {
	var urls []string

	for _, candidate := range strings.Split(value, ",") {
		fields := strings.Fields(candidate)
		if len(fields) == 0 {
			continue
		}
		urls = append(urls, fields[0])
	}

	return urls
}
