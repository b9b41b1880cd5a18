package extract

import (
	"context"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// Markdown returns an extractor that strips Markdown syntax, keeping the
// text of headings, paragraphs, list items, tables and code blocks.
func Markdown() Extractor {
	md := goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough))
	return ExtractorFunc(func(_ context.Context, data []byte) (string, error) {
		doc := md.Parser().Parse(text.NewReader(data))
		w := &markdownWalker{source: data}
		if err := ast.Walk(doc, w.walk); err != nil {
			return "", err
		}
		return w.String(), nil
	})
}

type markdownWalker struct {
	source []byte
	out    strings.Builder
}

func (w *markdownWalker) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		if n.Type() == ast.TypeBlock && n.Kind() != ast.KindDocument {
			w.newline()
		}
		return ast.WalkContinue, nil
	}

	switch node := n.(type) {
	case *ast.Text:
		w.out.Write(node.Segment.Value(w.source))
		if node.SoftLineBreak() || node.HardLineBreak() {
			w.out.WriteByte('\n')
		}
	case *ast.String:
		w.out.Write(node.Value)
	case *ast.AutoLink:
		w.out.Write(node.Label(w.source))
		return ast.WalkSkipChildren, nil
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			w.out.Write(seg.Value(w.source))
		}
		return ast.WalkSkipChildren, nil
	case *ast.ThematicBreak:
		w.newline()
	}
	return ast.WalkContinue, nil
}

func (w *markdownWalker) newline() {
	s := w.out.String()
	if s != "" && !strings.HasSuffix(s, "\n") {
		w.out.WriteByte('\n')
	}
}

func (w *markdownWalker) String() string {
	return w.out.String()
}
