// Package comment provides the comment model, the SQLite comment store and
// the cursor-paginated feed cache.
package comment

import (
	"time"

	"github.com/evcraddock/commentbox/internal/reaction"
	"github.com/evcraddock/commentbox/internal/reply"
)

// MaxLength is the longest comment, counted in visible characters.
const MaxLength = 250

// Comment is a top-level rich-text comment. Mentions holds display names and
// is derived from Text once, when the comment is composed.
type Comment struct {
	ID        string        `json:"id"`
	Text      string        `json:"text"`
	FileURL   string        `json:"fileUrl,omitempty"`
	Mentions  []string      `json:"mentions"`
	UserID    string        `json:"userId"`
	Username  string        `json:"username"`
	UserPhoto string        `json:"userPhoto,omitempty"`
	ParentID  string        `json:"parentId,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
	Reactions reaction.Set  `json:"reactions"`
	Replies   []reply.Reply `json:"replies,omitempty"`
}

// Page is one response of the comment listing endpoint.
type Page struct {
	Comments   []Comment `json:"comments"`
	Limit      int       `json:"limit"`
	Count      int       `json:"count"`
	HasMore    bool      `json:"hasMore"`
	NextCursor string    `json:"nextCursor,omitempty"`
}
