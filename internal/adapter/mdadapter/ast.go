package mdadapter

import (
	"github.com/yuin/goldmark/ast"
)

var KindImageDirective = ast.NewNodeKind("ImageDirective")

// ImageDirective is an inline {{ image: URL }} reference.
type ImageDirective struct {
	ast.BaseInline
	Destination string
}

func (n *ImageDirective) Kind() ast.NodeKind {
	return KindImageDirective
}

func (n *ImageDirective) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{
		"Destination": n.Destination,
	}, nil)
}
