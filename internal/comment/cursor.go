package comment

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/evcraddock/commentbox/internal/apperr"
)

const (
	// DefaultPageSize is the number of comments fetched per page.
	DefaultPageSize = 20

	// MaxPageSize caps the page size a caller may request.
	MaxPageSize = 100
)

// Cursor is a position in the feed: the creation time and ID of the last
// record loaded. Pages continue strictly after it in feed order.
type Cursor struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id,omitempty"`
}

// CursorOf returns the cursor positioned at c.
func CursorOf(c Comment) *Cursor {
	return &Cursor{CreatedAt: c.CreatedAt, ID: c.ID}
}

// Before returns a cursor selecting every comment created strictly before t.
// A zero t returns nil, which selects from the newest comment.
func Before(t time.Time) *Cursor {
	if t.IsZero() {
		return nil
	}
	return &Cursor{CreatedAt: t}
}

// PageRequest selects up to Limit comments after After, newest first.
// A nil After starts at the newest comment.
type PageRequest struct {
	After *Cursor
	Limit int
}

// ClampLimit applies the default and maximum page size.
func ClampLimit(n int) int {
	switch {
	case n <= 0:
		return DefaultPageSize
	case n > MaxPageSize:
		return MaxPageSize
	default:
		return n
	}
}

// EncodeCursor serializes c for use in a query string. A nil cursor encodes
// as the empty string.
func EncodeCursor(c *Cursor) string {
	if c == nil {
		return ""
	}
	b, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return base64.URLEncoding.EncodeToString(b)
}

// DecodeCursor parses a cursor produced by EncodeCursor. The empty string
// decodes to nil.
func DecodeCursor(s string) (*Cursor, error) {
	if s == "" {
		return nil, nil
	}
	data, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return nil, apperr.Invalid("cursor", fmt.Sprintf("decode base64: %v", err))
	}
	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, apperr.Invalid("cursor", fmt.Sprintf("decode json: %v", err))
	}
	return &c, nil
}
