package reply

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/evcraddock/commentbox/internal/apperr"
	"github.com/evcraddock/commentbox/internal/auth"
)

// Source is the remote store for replies.
type Source interface {
	ListReplies(ctx context.Context, commentID string) ([]Reply, error)
	CreateReply(ctx context.Context, r Reply) (Reply, error)
}

// Threads keeps the locally loaded replies of each comment. Lists for
// different comments are independent.
type Threads struct {
	src      Source
	identity auth.Identity

	mu    sync.RWMutex
	lists map[string][]Reply
}

// NewThreads creates an empty thread cache backed by src.
func NewThreads(src Source, identity auth.Identity) *Threads {
	return &Threads{
		src:      src,
		identity: identity,
		lists:    make(map[string][]Reply),
	}
}

// Fetch loads every reply to commentID and replaces the local list.
func (t *Threads) Fetch(ctx context.Context, commentID string) ([]Reply, error) {
	replies, err := t.src.ListReplies(ctx, commentID)
	if err != nil {
		return nil, apperr.Remote("fetch replies", err)
	}

	t.mu.Lock()
	t.lists[commentID] = slices.Clone(replies)
	t.mu.Unlock()

	slog.Debug("replies fetched", "comment", commentID, "count", len(replies))
	return replies, nil
}

// Append writes a reply to commentID and adds it at the tail of the local
// list. The body is trimmed and must be 1 to MaxLength characters.
func (t *Threads) Append(ctx context.Context, commentID string, d Draft) (Reply, error) {
	d.Body = strings.TrimSpace(d.Body)
	if err := apperr.Validate(d); err != nil {
		return Reply{}, err
	}

	author, err := auth.Require(t.identity, "reply")
	if err != nil {
		return Reply{}, err
	}

	stored, err := t.src.CreateReply(ctx, Reply{
		Body:      d.Body,
		FileURL:   d.FileURL,
		Mentions:  d.Mentions,
		Author:    author.ID,
		CommentID: commentID,
	})
	if err != nil {
		return Reply{}, apperr.Remote("create reply", err)
	}

	t.mu.Lock()
	t.lists[commentID] = append(slices.Clone(t.lists[commentID]), stored)
	t.mu.Unlock()

	return stored, nil
}

// Replies returns the local list for commentID.
func (t *Threads) Replies(commentID string) []Reply {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.lists[commentID])
}
