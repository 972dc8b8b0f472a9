// Package reply provides threaded replies to comments: the model, the SQLite
// repository and the per-comment local thread cache.
package reply

import "time"

// MaxLength is the longest reply body, in characters.
const MaxLength = 250

// Reply is a plain-text response to a comment. Mentions holds user IDs.
type Reply struct {
	ID        string    `json:"id"`
	Body      string    `json:"body"`
	FileURL   string    `json:"fileUrl,omitempty"`
	Mentions  []string  `json:"mentions"`
	Author    string    `json:"author"`
	CommentID string    `json:"commentId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Draft is the content of a reply before it is written.
type Draft struct {
	Body     string   `json:"body" validate:"required,max=250"`
	Mentions []string `json:"mentions"`
	FileURL  string   `json:"fileUrl,omitempty"`
}
