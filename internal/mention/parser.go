// Package mention finds @-mentions in comment drafts and keeps the directory
// of users that can be mentioned.
//
// Two moments matter. While typing, Trigger looks at the end of the draft for
// "@" plus word characters and yields the query for the suggestion list. On
// submit, the committed markup is scanned for inline mention tokens: comments
// record mentioned display names (ExtractNames), replies record user IDs
// (ExtractIDs). The two extraction rules are deliberately separate.
package mention

import (
	"fmt"
	"html"
	"regexp"

	"github.com/evcraddock/commentbox/internal/user"
)

var (
	triggerRe = regexp.MustCompile(`@(\w*)$`)

	// replaceRe finds the trigger in raw markup, allowing closing tags or line
	// breaks the editor appended after the caret.
	replaceRe = regexp.MustCompile(`@\w*((?:</[a-zA-Z][a-zA-Z0-9]*>|<br\s*/?>)*)$`)

	nameMarkerRe = regexp.MustCompile(`data-name="([^"]+)"`)
	idMarkerRe   = regexp.MustCompile(`<span.*?data-id="(\w+)".*?>.*?</span>`)
)

// Trigger matches "@" followed by zero or more word characters at the end of
// plain. ok is false when the draft does not end in a trigger.
func Trigger(plain string) (query string, ok bool) {
	m := triggerRe.FindStringSubmatch(plain)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ReplaceTrigger swaps the trailing trigger in raw for token plus a space.
func ReplaceTrigger(raw, token string) (string, bool) {
	loc := replaceRe.FindStringSubmatchIndex(raw)
	if loc == nil {
		return raw, false
	}
	tail := raw[loc[2]:loc[3]]
	return raw[:loc[0]] + token + " " + tail, true
}

// CommentToken is the non-editable inline token inserted for u in a comment.
func CommentToken(u user.User) string {
	name := html.EscapeString(u.Label())
	return fmt.Sprintf(`<span contenteditable="false" data-name="%s" class="mention">@%s</span>`, name, name)
}

// ReplyToken is the inline token inserted for u in a reply. It carries the
// user ID in addition to the display name.
func ReplyToken(u user.User) string {
	name := html.EscapeString(u.Label())
	return fmt.Sprintf(`<span contenteditable="false" class="mention" data-id="%s" data-name="%s">@%s</span>`,
		html.EscapeString(u.ID), name, name)
}

// ExtractNames returns the display name of every mention token in markup,
// left to right. Repeated mentions of one user yield repeated entries.
func ExtractNames(markup string) []string {
	return collect(nameMarkerRe, markup)
}

// ExtractIDs returns the user ID of every mention token in markup, left to
// right, duplicates kept.
func ExtractIDs(markup string) []string {
	return collect(idMarkerRe, markup)
}

func collect(re *regexp.Regexp, markup string) []string {
	matches := re.FindAllStringSubmatch(markup, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, html.UnescapeString(m[1]))
	}
	return out
}
