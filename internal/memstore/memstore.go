// Package memstore is an in-memory remote store for comments, replies, users
// and uploads. It orders and pages exactly like the SQLite store and can be
// told to fail any operation, which makes it the store of choice in tests.
package memstore

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/evcraddock/commentbox/internal/apperr"
	"github.com/evcraddock/commentbox/internal/comment"
	"github.com/evcraddock/commentbox/internal/reaction"
	"github.com/evcraddock/commentbox/internal/reply"
	"github.com/evcraddock/commentbox/internal/upload"
	"github.com/evcraddock/commentbox/internal/user"
)

// Operation names accepted by Fail.
const (
	OpListComments  = "ListComments"
	OpCreateComment = "CreateComment"
	OpGetReactions  = "GetReactions"
	OpPutReactions  = "PutReactions"
	OpIncrement     = "IncrementReaction"
	OpListReplies   = "ListReplies"
	OpCreateReply   = "CreateReply"
	OpListUsers     = "ListUsers"
	OpUpload        = "Upload"
)

// Store keeps every collection in memory. It has no atomic increment; wrap it
// with Atomic to get one.
type Store struct {
	mu       sync.Mutex
	comments []comment.Comment // newest first
	replies  map[string][]reply.Reply
	users    []user.User
	uploads  map[string][]byte
	failures map[string]error
	calls    map[string]int
	now      func() time.Time
}

// New returns an empty store using the wall clock.
func New() *Store {
	return &Store{
		replies:  make(map[string][]reply.Reply),
		uploads:  make(map[string][]byte),
		failures: make(map[string]error),
		calls:    make(map[string]int),
		now:      time.Now,
	}
}

var (
	_ comment.Source  = (*Store)(nil)
	_ reaction.Store  = (*Store)(nil)
	_ reply.Source    = (*Store)(nil)
	_ upload.Uploader = (*Store)(nil)
)

// SetClock replaces the clock used for creation times.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Fail makes every later call of op return err. A nil err clears it.
func (s *Store) Fail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

// Calls reports how many times op was invoked, failed calls included.
func (s *Store) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// SeedComments inserts comments as given, keeping their IDs and times.
func (s *Store) SeedComments(cs ...comment.Comment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range cs {
		if c.Mentions == nil {
			c.Mentions = []string{}
		}
		s.comments = append(s.comments, c)
	}
	s.sortLocked()
}

// SeedUsers adds users to the directory.
func (s *Store) SeedUsers(us ...user.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = append(s.users, us...)
}

// Comment returns the stored comment with id.
func (s *Store) Comment(id string) (comment.Comment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.comments[i], true
	}
	return comment.Comment{}, false
}

// Uploaded returns the content stored under url.
func (s *Store) Uploaded(url string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.uploads[url]
	return b, ok
}

// ListComments pages newest first with the same keyset rule as SQLite.
func (s *Store) ListComments(ctx context.Context, req comment.PageRequest) ([]comment.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enterLocked(ctx, OpListComments); err != nil {
		return nil, err
	}

	limit := comment.ClampLimit(req.Limit)
	out := []comment.Comment{}
	for _, c := range s.comments {
		if req.After != nil && !after(c, req.After) {
			continue
		}
		out = append(out, c)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// CreateComment assigns an ID and creation time and stores c.
func (s *Store) CreateComment(ctx context.Context, c comment.Comment) (comment.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enterLocked(ctx, OpCreateComment); err != nil {
		return comment.Comment{}, err
	}
	if strings.TrimSpace(c.Text) == "" {
		return comment.Comment{}, apperr.Invalid("text", "must not be empty")
	}

	c.ID = ulid.Make().String()
	c.CreatedAt = s.now().UTC()
	c.Reactions = reaction.Set{}
	c.Replies = nil
	if c.Mentions == nil {
		c.Mentions = []string{}
	}
	s.comments = append(s.comments, c)
	s.sortLocked()
	return c, nil
}

// GetReactions returns the counters of a comment.
func (s *Store) GetReactions(ctx context.Context, id string) (reaction.Set, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enterLocked(ctx, OpGetReactions); err != nil {
		return reaction.Set{}, err
	}
	i := s.indexLocked(id)
	if i < 0 {
		return reaction.Set{}, fmt.Errorf("comment %s: %w", id, apperr.ErrNotFound)
	}
	return s.comments[i].Reactions, nil
}

// PutReactions overwrites the counters of a comment.
func (s *Store) PutReactions(ctx context.Context, id string, set reaction.Set) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enterLocked(ctx, OpPutReactions); err != nil {
		return err
	}
	i := s.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("comment %s: %w", id, apperr.ErrNotFound)
	}
	s.comments[i].Reactions = set
	return nil
}

// ListReplies returns the replies to commentID, oldest first.
func (s *Store) ListReplies(ctx context.Context, commentID string) ([]reply.Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enterLocked(ctx, OpListReplies); err != nil {
		return nil, err
	}
	out := slices.Clone(s.replies[commentID])
	if out == nil {
		out = []reply.Reply{}
	}
	return out, nil
}

// CreateReply stores r under an existing comment.
func (s *Store) CreateReply(ctx context.Context, r reply.Reply) (reply.Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enterLocked(ctx, OpCreateReply); err != nil {
		return reply.Reply{}, err
	}
	if s.indexLocked(r.CommentID) < 0 {
		return reply.Reply{}, fmt.Errorf("comment %s: %w", r.CommentID, apperr.ErrNotFound)
	}

	r.ID = ulid.Make().String()
	r.CreatedAt = s.now().UTC()
	if r.Mentions == nil {
		r.Mentions = []string{}
	}
	s.replies[r.CommentID] = append(s.replies[r.CommentID], r)
	return r, nil
}

// ListUsers returns the user directory.
func (s *Store) ListUsers(ctx context.Context) ([]user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enterLocked(ctx, OpListUsers); err != nil {
		return nil, err
	}
	return slices.Clone(s.users), nil
}

// Upload keeps the file body in memory under a mem:// URL.
func (s *Store) Upload(ctx context.Context, f upload.File) (string, error) {
	s.mu.Lock()
	if err := s.enterLocked(ctx, OpUpload); err != nil {
		s.mu.Unlock()
		return "", err
	}
	s.mu.Unlock()

	data, err := io.ReadAll(f.Body)
	if err != nil {
		return "", fmt.Errorf("reading upload: %w", err)
	}

	url := "mem://uploads/" + upload.ObjectName(f.Name)
	s.mu.Lock()
	s.uploads[url] = data
	s.mu.Unlock()
	return url, nil
}

// Atomic wraps s with an atomic IncrementReaction.
func (s *Store) Atomic() *AtomicStore {
	return &AtomicStore{Store: s}
}

// AtomicStore is a Store that also increments counters atomically.
type AtomicStore struct {
	*Store
}

var _ reaction.Incrementer = (*AtomicStore)(nil)

// IncrementReaction raises one counter under the store lock.
func (a *AtomicStore) IncrementReaction(ctx context.Context, id string, k reaction.Kind) (reaction.Set, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.enterLocked(ctx, OpIncrement); err != nil {
		return reaction.Set{}, err
	}
	i := a.indexLocked(id)
	if i < 0 {
		return reaction.Set{}, fmt.Errorf("comment %s: %w", id, apperr.ErrNotFound)
	}
	next, err := reaction.Increment(a.comments[i].Reactions, k)
	if err != nil {
		return reaction.Set{}, err
	}
	a.comments[i].Reactions = next
	return next, nil
}

func (s *Store) enterLocked(ctx context.Context, op string) error {
	s.calls[op]++
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.failures[op]
}

func (s *Store) indexLocked(id string) int {
	return slices.IndexFunc(s.comments, func(c comment.Comment) bool { return c.ID == id })
}

func (s *Store) sortLocked() {
	sort.SliceStable(s.comments, func(i, j int) bool {
		a, b := s.comments[i], s.comments[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}

// after reports whether c comes strictly after cur in newest-first order.
func after(c comment.Comment, cur *comment.Cursor) bool {
	if c.CreatedAt.Before(cur.CreatedAt) {
		return true
	}
	return c.CreatedAt.Equal(cur.CreatedAt) && c.ID < cur.ID
}
