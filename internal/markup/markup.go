// Package markup sanitizes rich comment markup and derives its plain text.
package markup

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

var (
	richPolicy  = newRichPolicy()
	stripPolicy = bluemonday.StrictPolicy()
)

// newRichPolicy allows the formatting the composer can produce (bold, italic,
// underline, line breaks) plus mention tokens and their data attributes.
func newRichPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("b", "strong", "i", "em", "u", "br", "div", "p")
	p.AllowAttrs("data-name", "data-id", "contenteditable").OnElements("span")
	p.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("span")
	return p
}

// Sanitize removes everything from raw that is not formatting or a mention token.
func Sanitize(raw string) string {
	return richPolicy.Sanitize(raw)
}

// PlainText strips all markup from raw and unescapes entities.
// Block boundaries (<br>, </div>, </p>) become newlines.
func PlainText(raw string) string {
	r := strings.NewReplacer("<br>", "\n", "<br/>", "\n", "<br />", "\n", "</div>", "\n", "</p>", "\n")
	text := html.UnescapeString(stripPolicy.Sanitize(r.Replace(raw)))
	return strings.TrimRight(strings.ReplaceAll(text, "\u00a0", " "), "\n")
}

// Length is the number of characters a reader sees in raw.
func Length(raw string) int {
	return utf8.RuneCountInString(PlainText(raw))
}
