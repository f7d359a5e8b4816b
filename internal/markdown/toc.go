package markdown

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// tocMarker is replaced by a nested list of links to the document's headings.
const tocMarker = "[TOC]"

type tocEntry struct {
	level int
	id    string
	title string
}

// headingLinks gives every heading a trailing permalink and expands a
// paragraph consisting solely of tocMarker into a table of contents.
type headingLinks struct {
	symbol string
	title  string
}

func (e *headingLinks) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithASTTransformers(util.Prioritized(e, 900)))
}

func (e *headingLinks) Transform(doc *ast.Document, reader text.Reader, pc parser.Context) {
	source := reader.Source()

	var (
		entries []tocEntry
		markers []ast.Node
		heads   []*ast.Heading
	)
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := n.(type) {
		case *ast.Heading:
			if id, ok := headingID(v); ok {
				entries = append(entries, tocEntry{level: v.Level, id: id, title: plainText(v, source)})
				heads = append(heads, v)
			}
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph:
			if strings.TrimSpace(plainText(v, source)) == tocMarker {
				markers = append(markers, v)
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	for _, h := range heads {
		id, _ := headingID(h)
		link := ast.NewLink()
		link.Destination = []byte("#" + id)
		link.Title = []byte(e.title)
		link.SetAttributeString("class", []byte("headerlink"))
		link.AppendChild(link, ast.NewString([]byte(e.symbol)))
		h.AppendChild(h, link)
	}

	for _, m := range markers {
		parent := m.Parent()
		if len(entries) == 0 {
			parent.RemoveChild(parent, m)
			continue
		}
		parent.ReplaceChild(parent, m, buildTOC(entries))
	}
}

func headingID(h *ast.Heading) (string, bool) {
	v, ok := h.AttributeString("id")
	if !ok {
		return "", false
	}
	switch id := v.(type) {
	case []byte:
		return string(id), len(id) > 0
	case string:
		return id, id != ""
	}
	return "", false
}

// buildTOC nests entries by heading level under a single list.
func buildTOC(entries []tocEntry) ast.Node {
	minLevel := entries[0].level
	for _, e := range entries {
		if e.level < minLevel {
			minLevel = e.level
		}
	}

	type frame struct {
		list  *ast.List
		level int
		last  *ast.ListItem
	}

	root := ast.NewList('-')
	root.IsTight = true
	root.SetAttributeString("class", []byte("toc"))
	stack := []*frame{{list: root, level: minLevel}}

	for _, e := range entries {
		top := stack[len(stack)-1]
		for len(stack) > 1 && e.level < top.level {
			stack = stack[:len(stack)-1]
			top = stack[len(stack)-1]
		}
		if e.level > top.level && top.last != nil {
			sub := ast.NewList('-')
			sub.IsTight = true
			top.last.AppendChild(top.last, sub)
			stack = append(stack, &frame{list: sub, level: e.level})
			top = stack[len(stack)-1]
		}

		link := ast.NewLink()
		link.Destination = []byte("#" + e.id)
		link.AppendChild(link, ast.NewString([]byte(e.title)))
		block := ast.NewTextBlock()
		block.AppendChild(block, link)
		item := ast.NewListItem(2)
		item.AppendChild(item, block)
		top.list.AppendChild(top.list, item)
		top.last = item
	}
	return root
}

// plainText concatenates the literal text below n.
func plainText(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := c.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(source))
		case *ast.String:
			b.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}
