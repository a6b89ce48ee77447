// Package markdown flattens Markdown uploads into plain paragraphs.
package markdown

import (
	"strings"

	"github.com/gomarkdown/markdown/ast"
	"github.com/gomarkdown/markdown/parser"
)

// ToPlainText drops Markdown syntax and returns the readable text with one
// blank line between blocks, so paragraph boundaries survive for chunking.
// Raw HTML is discarded.
func ToPlainText(md []byte) string {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	doc := p.Parse(md)

	var blocks []string
	var current strings.Builder

	flush := func() {
		if text := strings.TrimSpace(current.String()); text != "" {
			blocks = append(blocks, text)
		}
		current.Reset()
	}

	ast.WalkFunc(doc, func(node ast.Node, entering bool) ast.WalkStatus {
		switch n := node.(type) {
		case *ast.Text:
			if entering {
				current.Write(n.Literal)
			}
		case *ast.Code:
			if entering {
				current.Write(n.Literal)
			}
		case *ast.CodeBlock:
			if entering {
				flush()
				current.Write(n.Literal)
				flush()
			}
		case *ast.Softbreak, *ast.Hardbreak:
			if entering {
				current.WriteByte('\n')
			}
		case *ast.HTMLBlock, *ast.HTMLSpan:
			return ast.SkipChildren
		case *ast.Paragraph, *ast.Heading, *ast.ListItem, *ast.TableRow:
			if !entering {
				flush()
			}
		case *ast.TableCell:
			if !entering {
				current.WriteByte(' ')
			}
		}
		return ast.GoToNext
	})
	flush()

	return strings.Join(blocks, "\n\n")
}
