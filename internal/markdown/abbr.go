package markdown

import (
	"bufio"
	"bytes"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// abbreviationsKey carries the definitions collected by extractAbbreviations.
var abbreviationsKey = parser.NewContextKey()

// definitionLine matches "*[HTML]: Hyper Text Markup Language".
var definitionLine = regexp.MustCompile(`^\*\[([^\]]+)\]:[ \t]*(.*)$`)

// KindAbbreviation is the node kind of Abbreviation.
var KindAbbreviation = ast.NewNodeKind("Abbreviation")

// Abbreviation is an inline term expanded through an <abbr> title.
type Abbreviation struct {
	ast.BaseInline
	Term  []byte
	Title []byte
}

func (n *Abbreviation) Kind() ast.NodeKind { return KindAbbreviation }

func (n *Abbreviation) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{
		"Term":  string(n.Term),
		"Title": string(n.Title),
	}, nil)
}

// splitAbbreviations removes definition lines from source, skipping fenced
// code, and returns the remaining text with the collected definitions.
func splitAbbreviations(source []byte) ([]byte, map[string]string) {
	var (
		out   bytes.Buffer
		defs  map[string]string
		fence string
	)
	sc := bufio.NewScanner(bytes.NewReader(source))
	sc.Buffer(make([]byte, 0, 64*1024), len(source)+1)
	for sc.Scan() {
		line := sc.Text()
		trimmed := strings.TrimSpace(line)
		switch {
		case fence != "":
			if strings.HasPrefix(trimmed, fence) {
				fence = ""
			}
		case strings.HasPrefix(trimmed, "```"):
			fence = "```"
		case strings.HasPrefix(trimmed, "~~~"):
			fence = "~~~"
		default:
			if m := definitionLine.FindStringSubmatch(line); m != nil {
				if defs == nil {
					defs = make(map[string]string)
				}
				defs[strings.TrimSpace(m[1])] = strings.TrimSpace(m[2])
				continue
			}
		}
		out.WriteString(line)
		out.WriteByte('\n')
	}
	return out.Bytes(), defs
}

type abbreviations struct{}

func (e *abbreviations) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithASTTransformers(util.Prioritized(e, 100)))
	m.Renderer().AddOptions(renderer.WithNodeRenderers(util.Prioritized(e, 500)))
}

func (e *abbreviations) Transform(doc *ast.Document, reader text.Reader, pc parser.Context) {
	defs, _ := pc.Get(abbreviationsKey).(map[string]string)
	if len(defs) == 0 {
		return
	}
	pattern := termPattern(defs)
	source := reader.Source()

	var texts []*ast.Text
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindCodeSpan, ast.KindCodeBlock, ast.KindFencedCodeBlock,
			ast.KindLink, ast.KindAutoLink, ast.KindRawHTML, ast.KindHTMLBlock:
			return ast.WalkSkipChildren, nil
		}
		if t, ok := n.(*ast.Text); ok {
			texts = append(texts, t)
		}
		return ast.WalkContinue, nil
	})

	for _, t := range texts {
		expand(t, source, pattern, defs)
	}
}

// expand splits t around every defined term.
func expand(t *ast.Text, source []byte, pattern *regexp.Regexp, defs map[string]string) {
	seg := t.Segment
	value := seg.Value(source)
	locs := pattern.FindAllIndex(value, -1)
	if locs == nil {
		return
	}

	parent := t.Parent()
	pos := 0
	for _, loc := range locs {
		if loc[0] > pos {
			parent.InsertBefore(parent, t, ast.NewTextSegment(text.NewSegment(seg.Start+pos, seg.Start+loc[0])))
		}
		term := string(value[loc[0]:loc[1]])
		parent.InsertBefore(parent, t, &Abbreviation{Term: []byte(term), Title: []byte(defs[term])})
		pos = loc[1]
	}
	tail := ast.NewTextSegment(text.NewSegment(seg.Start+pos, seg.Stop))
	tail.SetSoftLineBreak(t.SoftLineBreak())
	tail.SetHardLineBreak(t.HardLineBreak())
	parent.ReplaceChild(parent, t, tail)
}

// termPattern matches any defined term as a whole word, longest first.
// Word boundaries are only asserted on sides where the term itself starts or
// ends with a word character, so terms like "C++" and ".NET" still match.
func termPattern(defs map[string]string) *regexp.Regexp {
	terms := make([]string, 0, len(defs))
	for term := range defs {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool { return len(terms[i]) > len(terms[j]) })

	alts := make([]string, len(terms))
	for i, term := range terms {
		var b strings.Builder
		first, _ := utf8.DecodeRuneInString(term)
		last, _ := utf8.DecodeLastRuneInString(term)
		if isWordRune(first) {
			b.WriteString(`\b`)
		}
		b.WriteString(regexp.QuoteMeta(term))
		if isWordRune(last) {
			b.WriteString(`\b`)
		}
		alts[i] = b.String()
	}
	return regexp.MustCompile(`(?:` + strings.Join(alts, "|") + `)`)
}

// isWordRune mirrors the ASCII \w class used by \b.
func isWordRune(r rune) bool {
	return r == '_' || ('0' <= r && r <= '9') || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z')
}

func (e *abbreviations) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindAbbreviation, e.render)
}

func (e *abbreviations) render(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*Abbreviation)
	_, _ = w.WriteString(`<abbr title="`)
	_, _ = w.Write(util.EscapeHTML(n.Title))
	_, _ = w.WriteString(`">`)
	_, _ = w.Write(util.EscapeHTML(n.Term))
	_, _ = w.WriteString("</abbr>")
	return ast.WalkSkipChildren, nil
}
