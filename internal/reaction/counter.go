package reaction

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/evcraddock/commentbox/internal/apperr"
	"github.com/evcraddock/commentbox/internal/auth"
)

// Store reads and writes a comment's full reaction set.
type Store interface {
	GetReactions(ctx context.Context, commentID string) (Set, error)
	PutReactions(ctx context.Context, commentID string, s Set) error
}

// Incrementer is implemented by stores that can raise one counter atomically.
type Incrementer interface {
	IncrementReaction(ctx context.Context, commentID string, k Kind) (Set, error)
}

// Counter applies a user's reaction to the remote store and returns the
// resulting authoritative set.
type Counter struct {
	store    Store
	identity auth.Identity
}

// NewCounter creates a counter writing through store on behalf of identity.
func NewCounter(store Store, identity auth.Identity) *Counter {
	return &Counter{store: store, identity: identity}
}

// Atomic reports whether the store increments atomically. When false, Apply
// uses read-modify-write and two concurrent reactions from different sessions
// can lose one increment (last write of the whole set wins).
func (c *Counter) Atomic() bool {
	_, ok := c.store.(Incrementer)
	return ok
}

// Apply raises the k counter of the comment by one.
func (c *Counter) Apply(ctx context.Context, commentID string, k Kind) (Set, error) {
	if !k.Valid() {
		return Set{}, apperr.Invalid("kind", fmt.Sprintf("unknown reaction %q", k))
	}
	if _, err := auth.Require(c.identity, "react"); err != nil {
		return Set{}, err
	}

	if inc, ok := c.store.(Incrementer); ok {
		s, err := inc.IncrementReaction(ctx, commentID, k)
		if err != nil {
			return Set{}, apperr.Remote("increment reaction", err)
		}
		return s, nil
	}

	current, err := c.store.GetReactions(ctx, commentID)
	if err != nil {
		return Set{}, apperr.Remote("read reactions", err)
	}

	next, err := Increment(current, k)
	if err != nil {
		return Set{}, err
	}

	if err := c.store.PutReactions(ctx, commentID, next); err != nil {
		return Set{}, apperr.Remote("write reactions", err)
	}

	slog.Debug("reaction applied", "comment", commentID, "kind", string(k), "mode", "read-modify-write")
	return next, nil
}
