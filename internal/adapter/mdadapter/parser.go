package mdadapter

import (
	"regexp"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

var imageDirectiveRe = regexp.MustCompile(`^\{\{\s*image:\s*([^\s}]+)\s*\}\}`)

type ImageDirectiveParser struct{}

func NewImageDirectiveParser() parser.InlineParser {
	return &ImageDirectiveParser{}
}

func (s *ImageDirectiveParser) Trigger() []byte {
	return []byte{'{'}
}

func (s *ImageDirectiveParser) Parse(parent ast.Node, block text.Reader, pc parser.Context) ast.Node {
	line, _ := block.PeekLine()

	matches := imageDirectiveRe.FindSubmatch(line)
	if matches == nil {
		return nil
	}

	block.Advance(len(matches[0]))

	return &ImageDirective{
		Destination: string(matches[1]),
	}
}
