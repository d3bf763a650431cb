package page

import (
	"bytes"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser reduces Markdown to plain block text using goldmark. The
// first heading becomes the title.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader) (string, string, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return "", "", err
	}

	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var title string
	var blocks []string
	var walk func(n ast.Node)
	walk = func(n ast.Node) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch c.Kind() {
			case ast.KindHeading, ast.KindParagraph, ast.KindTextBlock:
				t := inlineText(c, src)
				if t == "" {
					continue
				}
				if c.Kind() == ast.KindHeading && title == "" {
					title = t
				}
				blocks = append(blocks, t)
			case ast.KindCodeBlock, ast.KindFencedCodeBlock:
				if t := rawLines(c, src); t != "" {
					blocks = append(blocks, t)
				}
			default:
				walk(c)
			}
		}
	}
	walk(doc)

	return title, strings.Join(blocks, "\n\n"), nil
}

// inlineText concatenates the text leaves below n.
func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.String:
			buf.Write(t.Value)
		case *ast.CodeSpan:
			for cc := t.FirstChild(); cc != nil; cc = cc.NextSibling() {
				if tt, ok := cc.(*ast.Text); ok {
					buf.Write(tt.Segment.Value(src))
				}
			}
			return ast.WalkSkipChildren, nil
		case *ast.AutoLink:
			buf.Write(t.URL(src))
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(buf.String())
}

func rawLines(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(src))
	}
	return strings.TrimRight(buf.String(), "\n")
}
