// Package markdown turns user-authored Markdown into sanitized HTML.
//
// Rendering is an ordered list of stages: line endings are normalized,
// abbreviation definitions are pulled out, goldmark converts the source with
// the knowledge-base extensions enabled, and finally the HTML is filtered
// through an allow-list policy. The sanitize stage always runs last so raw
// HTML embedded in the source is subject to the allow-list as well.
package markdown

import (
	"bytes"
	"fmt"
	"html/template"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// Options configures a Renderer.
type Options struct {
	// HighlightStyle names the chroma style used for code blocks.
	HighlightStyle string
	// PermalinkSymbol is the text of the link appended to each heading.
	PermalinkSymbol string
	// PermalinkTitle is the title attribute of heading permalinks.
	PermalinkTitle string
}

// DefaultOptions returns the options used when a field is left empty.
func DefaultOptions() Options {
	return Options{
		HighlightStyle:  "monokai",
		PermalinkSymbol: "¶",
		PermalinkTitle:  "Link to this section",
	}
}

// document is the value threaded through the stages of a single render.
type document struct {
	source []byte
	pc     parser.Context
	html   []byte
}

type stage func(doc *document) error

// Renderer converts Markdown to sanitized HTML. It is immutable once built
// and safe for concurrent use.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
	css    template.CSS
	stages []stage
}

// New builds a Renderer.
func New(opts Options) (*Renderer, error) {
	def := DefaultOptions()
	if opts.HighlightStyle == "" {
		opts.HighlightStyle = def.HighlightStyle
	}
	if opts.PermalinkSymbol == "" {
		opts.PermalinkSymbol = def.PermalinkSymbol
	}
	if opts.PermalinkTitle == "" {
		opts.PermalinkTitle = def.PermalinkTitle
	}

	css, err := styleSheet(opts.HighlightStyle)
	if err != nil {
		return nil, err
	}

	r := &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(
				highlighting.NewHighlighting(
					highlighting.WithStyle(opts.HighlightStyle),
					highlighting.WithGuessLanguage(true),
					highlighting.WithFormatOptions(chromahtml.WithClasses(true)),
				),
				extension.Table,
				extension.Footnote,
				extension.DefinitionList,
				&abbreviations{},
				&headingLinks{symbol: opts.PermalinkSymbol, title: opts.PermalinkTitle},
			),
			goldmark.WithParserOptions(
				parser.WithAutoHeadingID(),
				parser.WithAttribute(),
			),
			goldmark.WithRendererOptions(
				html.WithHardWraps(),
				html.WithUnsafe(),
			),
		),
		policy: newPolicy(),
		css:    template.CSS(css),
	}
	r.stages = []stage{
		normalizeLineEndings,
		extractAbbreviations,
		r.convert,
		r.sanitize,
	}
	return r, nil
}

// Render converts src to sanitized HTML. Empty input yields empty output.
func (r *Renderer) Render(src string) (out template.HTML, err error) {
	if src == "" {
		return "", nil
	}

	defer func() {
		if rec := recover(); rec != nil {
			out, err = "", fmt.Errorf("markdown: render panicked: %v", rec)
		}
	}()

	doc := &document{source: []byte(src), pc: parser.NewContext()}
	for _, s := range r.stages {
		if err := s(doc); err != nil {
			return "", err
		}
	}
	return template.HTML(doc.html), nil
}

// Sanitize applies the allow-list policy to arbitrary HTML.
func (r *Renderer) Sanitize(h string) string {
	return r.policy.Sanitize(h)
}

// StyleSheet returns the highlighting stylesheet for code blocks.
func (r *Renderer) StyleSheet() template.CSS {
	return r.css
}

func normalizeLineEndings(doc *document) error {
	doc.source = bytes.ReplaceAll(doc.source, []byte("\r\n"), []byte("\n"))
	doc.source = bytes.ReplaceAll(doc.source, []byte("\r"), []byte("\n"))
	return nil
}

func extractAbbreviations(doc *document) error {
	src, defs := splitAbbreviations(doc.source)
	doc.source = src
	if len(defs) > 0 {
		doc.pc.Set(abbreviationsKey, defs)
	}
	return nil
}

func (r *Renderer) convert(doc *document) error {
	var buf bytes.Buffer
	if err := r.md.Convert(doc.source, &buf, parser.WithContext(doc.pc)); err != nil {
		return fmt.Errorf("markdown: convert: %w", err)
	}
	doc.html = buf.Bytes()
	return nil
}

func (r *Renderer) sanitize(doc *document) error {
	doc.html = r.policy.SanitizeBytes(doc.html)
	return nil
}

func styleSheet(name string) (string, error) {
	var buf bytes.Buffer
	formatter := chromahtml.New(chromahtml.WithClasses(true))
	if err := formatter.WriteCSS(&buf, styles.Get(name)); err != nil {
		return "", fmt.Errorf("markdown: write %s stylesheet: %w", name, err)
	}
	return buf.String(), nil
}
