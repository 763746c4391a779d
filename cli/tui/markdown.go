package tui

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var markdown = goldmark.New()

type listState struct {
	ordered bool
	next    int
}

// mdWriter flattens a goldmark AST into terminal text.
type mdWriter struct {
	source []byte
	out    bytes.Buffer
	lists  []listState
}

// RenderMarkdown converts agent markdown into plain terminal text: headings
// and paragraphs separated by blank lines, bullets and numbered items
// indented by nesting depth, code blocks indented, link targets in
// parentheses. Raw HTML is dropped.
func RenderMarkdown(src string) string {
	source := []byte(src)
	doc := markdown.Parser().Parse(text.NewReader(source))

	w := &mdWriter{source: source}
	_ = ast.Walk(doc, w.walk)
	return strings.TrimRight(w.out.String(), "\n ")
}

func (w *mdWriter) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Heading, *ast.Blockquote:
		if !entering {
			w.breakLines(2)
		}

	case *ast.Paragraph:
		if !entering {
			if _, inItem := node.Parent().(*ast.ListItem); inItem {
				w.breakLines(1)
			} else {
				w.breakLines(2)
			}
		}

	case *ast.TextBlock:
		if !entering {
			w.breakLines(1)
		}

	case *ast.List:
		if entering {
			w.lists = append(w.lists, listState{ordered: node.IsOrdered(), next: node.Start})
		} else {
			w.lists = w.lists[:len(w.lists)-1]
			if len(w.lists) == 0 {
				w.breakLines(2)
			}
		}

	case *ast.ListItem:
		if entering {
			w.breakLines(1)
			w.listMarker()
		} else {
			w.breakLines(1)
		}

	case *ast.Text:
		if entering {
			w.out.Write(node.Segment.Value(w.source))
			switch {
			case node.HardLineBreak():
				w.out.WriteByte('\n')
			case node.SoftLineBreak():
				w.out.WriteByte(' ')
			}
		}

	case *ast.String:
		if entering {
			w.out.Write(node.Value)
		}

	case *ast.Link:
		if !entering && len(node.Destination) > 0 {
			w.out.WriteString(" (")
			w.out.Write(node.Destination)
			w.out.WriteByte(')')
		}

	case *ast.AutoLink:
		if entering {
			w.out.Write(node.URL(w.source))
		}
		return ast.WalkSkipChildren, nil

	case *ast.FencedCodeBlock, *ast.CodeBlock:
		if entering {
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				w.out.WriteString("    ")
				w.out.Write(bytes.TrimRight(seg.Value(w.source), "\n"))
				w.out.WriteByte('\n')
			}
			w.breakLines(2)
		}
		return ast.WalkSkipChildren, nil

	case *ast.ThematicBreak:
		if entering {
			w.out.WriteString("────────")
			w.breakLines(2)
		}

	case *ast.RawHTML, *ast.HTMLBlock:
		return ast.WalkSkipChildren, nil
	}
	return ast.WalkContinue, nil
}

func (w *mdWriter) listMarker() {
	depth := len(w.lists)
	if depth == 0 {
		return
	}
	w.out.WriteString(strings.Repeat("  ", depth-1))
	list := &w.lists[depth-1]
	if list.ordered {
		w.out.WriteString(strconv.Itoa(list.next) + ". ")
		list.next++
		return
	}
	w.out.WriteString("• ")
}

// breakLines ensures the output ends with at least n newlines. An empty
// output stays empty.
func (w *mdWriter) breakLines(n int) {
	b := w.out.Bytes()
	if len(b) == 0 {
		return
	}
	have := len(b) - len(bytes.TrimRight(b, "\n"))
	for ; have < n; have++ {
		w.out.WriteByte('\n')
	}
}
