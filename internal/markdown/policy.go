package markdown

import "github.com/microcosm-cc/bluemonday"

// allowedTags is the complete set of elements that survive sanitization.
var allowedTags = []string{
	"p", "br", "strong", "em", "u", "h1", "h2", "h3", "h4", "h5", "h6",
	"blockquote", "code", "pre", "hr", "div", "span",
	"ul", "ol", "li", "dl", "dt", "dd",
	"a", "img",
	"table", "thead", "tbody", "tr", "th", "td",
	"sup", "sub", "abbr",
}

// globalAttributes may appear on any allowed element.
var globalAttributes = []string{"class", "id"}

// allowedAttributes maps an element to the extra attributes it may carry.
var allowedAttributes = map[string][]string{
	"a":    {"href", "title", "target", "rel"},
	"img":  {"src", "alt", "title", "width", "height"},
	"code": {"class"},
	"pre":  {"class"},
	"div":  {"class"},
	"span": {"class"},
}

// newPolicy builds the allow-list policy. Elements outside allowedTags are
// removed but their text is kept; script and style bodies are dropped.
func newPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowStandardURLs()
	p.AllowElements(allowedTags...)
	p.AllowAttrs(globalAttributes...).Globally()
	for tag, attrs := range allowedAttributes {
		p.AllowAttrs(attrs...).OnElements(tag)
	}
	return p
}
