package markup

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeKeepsMentionTokens(t *testing.T) {
	raw := `hi <span contenteditable="false" data-name="Anna" class="mention">@Anna</span> <b>bold</b>`

	got := Sanitize(raw)

	assert.Contains(t, got, `data-name="Anna"`)
	assert.Contains(t, got, `contenteditable="false"`)
	assert.Contains(t, got, `<b>bold</b>`)
}

func TestSanitizeDropsScripts(t *testing.T) {
	got := Sanitize(`ok<script>alert(1)</script><img src=x onerror=alert(1)>`)

	assert.Equal(t, "ok", got)
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", "hello", "hello"},
		{"formatting", "<b>hello</b> <i>there</i>", "hello there"},
		{"entities", "fish &amp; chips", "fish & chips"},
		{"mention", `hey <span data-name="Bob">@Bob</span>`, "hey @Bob"},
		{"line breaks", "one<br><div>two</div><div>three</div>", "one\ntwo\nthree"},
		{"nbsp", "a&nbsp;b", "a b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlainText(tt.raw))
		})
	}
}

func TestLengthCountsVisibleRunes(t *testing.T) {
	assert.Equal(t, 5, Length("<b>héllo</b>"))
	assert.Equal(t, 250, Length(strings.Repeat("x", 250)))
	assert.Equal(t, 0, Length("<div></div>"))
}
