// Package compose tracks one comment or reply draft while it is edited:
// mention suggestions as the user types, token insertion on selection, and
// validation on submit.
package compose

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/evcraddock/commentbox/internal/apperr"
	"github.com/evcraddock/commentbox/internal/auth"
	"github.com/evcraddock/commentbox/internal/markup"
	"github.com/evcraddock/commentbox/internal/mention"
	"github.com/evcraddock/commentbox/internal/user"
)

// MaxLength is the longest draft accepted, in visible characters.
const MaxLength = 250

// Kind selects the token format and extraction rule of a session.
type Kind int

const (
	KindComment Kind = iota
	KindReply
)

func (k Kind) String() string {
	if k == KindReply {
		return "reply"
	}
	return "comment"
}

// Suggestions is what the mention list should show after an edit.
type Suggestions struct {
	Users   []user.User
	Visible bool
}

// Submission is a finalized draft. Mentions holds display names for comments
// and user IDs for replies.
type Submission struct {
	Kind      Kind
	Content   string
	PlainText string
	Mentions  []string
}

// Session is a single draft buffer.
type Session struct {
	kind     Kind
	dir      *mention.Directory
	identity auth.Identity

	mu        sync.Mutex
	content   string
	triggered bool
	visible   bool
}

// NewSession creates an empty draft of kind. dir may be nil, in which case
// suggestions never appear.
func NewSession(kind Kind, dir *mention.Directory, identity auth.Identity) *Session {
	return &Session{kind: kind, dir: dir, identity: identity}
}

// OnEdit records the new raw content and recomputes suggestions.
func (s *Session) OnEdit(raw string) Suggestions {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.content = raw
	query, ok := mention.Trigger(markup.PlainText(raw))
	s.triggered = ok
	s.visible = false
	if !ok || s.dir == nil {
		return Suggestions{}
	}

	users := s.dir.Query(query)
	s.visible = len(users) > 0
	return Suggestions{Users: users, Visible: s.visible}
}

// Triggered reports whether the draft currently ends in a mention trigger,
// whether or not any user matched.
func (s *Session) Triggered() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.triggered
}

// SelectSuggestion replaces the trailing trigger with a mention token for u
// and returns the new content.
func (s *Session) SelectSuggestion(u user.User) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	token := mention.CommentToken(u)
	if s.kind == KindReply {
		token = mention.ReplyToken(u)
	}
	if next, ok := mention.ReplaceTrigger(s.content, token); ok {
		s.content = next
	}
	s.triggered = false
	s.visible = false
	return s.content
}

// Submit validates the draft and returns it finalized. The buffer is cleared
// only on success.
func (s *Session) Submit() (Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := auth.Require(s.identity, "submit "+s.kind.String()); err != nil {
		return Submission{}, err
	}

	content := markup.Sanitize(s.content)
	plain := markup.PlainText(content)
	if s.kind == KindReply {
		// reply bodies are stored as trimmed plain text
		plain = strings.TrimSpace(plain)
	}
	n := utf8.RuneCountInString(plain)
	switch {
	case n == 0:
		return Submission{}, apperr.Invalid("content", "must not be empty")
	case n > MaxLength:
		return Submission{}, apperr.Invalid("content", fmt.Sprintf("must be at most %d characters, got %d", MaxLength, n))
	}

	sub := Submission{Kind: s.kind, Content: content, PlainText: plain}
	if s.kind == KindReply {
		sub.Mentions = mention.ExtractIDs(content)
	} else {
		sub.Mentions = mention.ExtractNames(content)
	}

	s.resetLocked()
	return sub, nil
}

// Content returns the current raw draft.
func (s *Session) Content() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content
}

// Reset clears the draft and hides suggestions.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *Session) resetLocked() {
	s.content = ""
	s.triggered = false
	s.visible = false
}
