package mdadapter

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/util"
)

type ImageExtension struct{}

func NewImageExtension() goldmark.Extender {
	return &ImageExtension{}
}

func (e *ImageExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(
		parser.WithInlineParsers(
			util.Prioritized(NewImageDirectiveParser(), 500),
		),
	)
}
