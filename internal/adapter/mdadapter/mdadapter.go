package mdadapter

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/frontmatter"
)

type frontMatter struct {
	URLs []string `yaml:"urls" toml:"urls"`
}

type mdAdapter struct {
	md  goldmark.Markdown
	log *slog.Logger
}

func NewMDAdapter(log *slog.Logger) *mdAdapter {
	return &mdAdapter{
		md: goldmark.New(
			goldmark.WithExtensions(
				&frontmatter.Extender{},
				NewImageExtension(),
			),
		),
		log: log.With(slog.String("item", "MDAdapter")),
	}
}

// Extract returns image references in document order: front matter urls first,
// then markdown images and image directives. References are not resolved.
func (a *mdAdapter) Extract(r io.Reader) ([]string, error) {
	source, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("cannot read markdown: %w", err)
	}

	pc := parser.NewContext()
	doc := a.md.Parser().Parse(text.NewReader(source), parser.WithContext(pc))

	var refs []string

	if data := frontmatter.Get(pc); data != nil {
		var fm frontMatter
		if err := data.Decode(&fm); err != nil {
			return nil, fmt.Errorf("cannot decode front matter: %w", err)
		}
		refs = append(refs, fm.URLs...)
	}

	err = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Image:
			refs = append(refs, string(node.Destination))
		case *ImageDirective:
			refs = append(refs, node.Destination)
		}

		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, fmt.Errorf("cannot walk markdown: %w", err)
	}

	a.log.Debug("Markdown parsed", slog.Int("refs", len(refs)))

	return refs, nil
}
