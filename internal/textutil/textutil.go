// Package textutil holds small text helpers used by listing and search pages.
package textutil

import (
	"math"
	"strings"
	"unicode"
)

const (
	// Ellipsis is appended to or prepended around shortened text.
	Ellipsis = "..."

	// WordsPerMinute is the reading speed assumed by ReadingTime.
	WordsPerMinute = 225
)

// Truncate shortens text to at most max characters, backing off to the last
// space before the cut and appending an ellipsis. Text already within the
// limit is returned unchanged.
func Truncate(text string, max int) string {
	r := []rune(text)
	if len(r) <= max {
		return text
	}
	if max < 0 {
		max = 0
	}
	cut := string(r[:max])
	if i := strings.LastIndex(cut, " "); i >= 0 {
		cut = cut[:i]
	}
	return cut + Ellipsis
}

// ReadingTime estimates minutes needed to read text. Empty text reads in 0
// minutes, anything else in at least 1.
func ReadingTime(text string) int {
	if text == "" {
		return 0
	}
	words := len(strings.Fields(text))
	minutes := int(math.RoundToEven(float64(words) / WordsPerMinute))
	if minutes < 1 {
		return 1
	}
	return minutes
}

// HighlightSnippet returns a window of text around the first case-insensitive
// occurrence of query. Roughly a third of max precedes the match and two
// thirds follow it. Without a match it falls back to Truncate.
func HighlightSnippet(text, query string, max int) string {
	if text == "" || query == "" {
		return Truncate(text, max)
	}

	r := []rune(text)
	pos := indexFold(r, []rune(query))
	if pos < 0 {
		return Truncate(text, max)
	}

	qlen := len([]rune(query))
	start := pos - max/3
	if start < 0 {
		start = 0
	}
	end := pos + qlen + max*2/3
	if end > len(r) {
		end = len(r)
	}

	var b strings.Builder
	if start > 0 {
		b.WriteString(Ellipsis)
	}
	b.WriteString(string(r[start:end]))
	if end < len(r) {
		b.WriteString(Ellipsis)
	}
	return b.String()
}

// indexFold is a rune-offset, case-insensitive strings.Index.
func indexFold(text, query []rune) int {
	if len(query) > len(text) {
		return -1
	}
	lt := lowerRunes(text)
	lq := lowerRunes(query)
outer:
	for i := 0; i+len(lq) <= len(lt); i++ {
		for j := range lq {
			if lt[i+j] != lq[j] {
				continue outer
			}
		}
		return i
	}
	return -1
}

func lowerRunes(in []rune) []rune {
	out := make([]rune, len(in))
	for i, c := range in {
		out[i] = unicode.ToLower(c)
	}
	return out
}
