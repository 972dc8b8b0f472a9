package comment

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/evcraddock/commentbox/internal/apperr"
	"github.com/evcraddock/commentbox/internal/reaction"
	"github.com/evcraddock/commentbox/internal/reply"
)

// ErrLoadInProgress is returned when a page load is requested while another
// is still running.
var ErrLoadInProgress = errors.New("comment feed: load already in progress")

// Source is the remote store for comments.
type Source interface {
	ListComments(ctx context.Context, req PageRequest) ([]Comment, error)
	CreateComment(ctx context.Context, c Comment) (Comment, error)
}

// State is the loading state of a Feed.
type State int

const (
	StateInitial State = iota
	StateLoaded
	StateLoadingMore
	// StateLoading is reported while InitialLoad is in flight.
	StateLoading
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateLoaded:
		return "loaded"
	case StateLoadingMore:
		return "loading-more"
	case StateLoading:
		return "loading"
	}
	return "unknown"
}

// FeedConfig configures a Feed.
type FeedConfig struct {
	PageSize int
}

// Feed is the locally cached, newest-first sequence of comments. Entries are
// never removed; pages grow the tail and posts grow the head. The mutex is
// never held across a remote call and the cache only changes after a remote
// operation completes.
type Feed struct {
	src      Source
	counter  *reaction.Counter
	pageSize int

	mu       sync.Mutex
	state    State
	loading  bool
	comments []Comment
	cursor   *Cursor
	hasMore  bool
}

// NewFeed creates an empty feed.
func NewFeed(src Source, counter *reaction.Counter, cfg FeedConfig) *Feed {
	return &Feed{
		src:      src,
		counter:  counter,
		pageSize: ClampLimit(cfg.PageSize),
		hasMore:  true,
	}
}

// InitialLoad fetches the first page of comments created strictly before
// from (zero means newest) and replaces the local sequence.
func (f *Feed) InitialLoad(ctx context.Context, from time.Time) ([]Comment, error) {
	f.mu.Lock()
	if f.loading {
		f.mu.Unlock()
		return nil, ErrLoadInProgress
	}
	prev := f.state
	f.loading = true
	f.state = StateLoading
	f.mu.Unlock()

	page, err := f.src.ListComments(ctx, PageRequest{After: Before(from), Limit: f.pageSize})

	f.mu.Lock()
	defer f.mu.Unlock()
	f.loading = false
	if err != nil {
		f.state = prev
		return nil, apperr.Remote("load comments", err)
	}

	f.comments = slices.Clone(page)
	f.cursor = nil
	if len(page) > 0 {
		f.cursor = CursorOf(page[len(page)-1])
	}
	f.hasMore = len(page) == f.pageSize
	f.state = StateLoaded

	slog.Debug("comment feed loaded", "count", len(page), "has_more", f.hasMore)
	return slices.Clone(page), nil
}

// LoadMore fetches the page after the cursor and appends it. Without a cursor
// (nothing loaded yet) it falls back to comments before from, so an empty feed
// fetches what InitialLoad would have. A call made while another load is in
// flight returns ErrLoadInProgress.
func (f *Feed) LoadMore(ctx context.Context, from time.Time) ([]Comment, error) {
	f.mu.Lock()
	if f.loading {
		f.mu.Unlock()
		return nil, ErrLoadInProgress
	}
	after := f.cursor
	if after == nil {
		after = Before(from)
	}
	prev := f.state
	f.loading = true
	f.state = StateLoadingMore
	f.mu.Unlock()

	page, err := f.src.ListComments(ctx, PageRequest{After: after, Limit: f.pageSize})

	f.mu.Lock()
	defer f.mu.Unlock()
	f.loading = false
	if err != nil {
		f.state = prev
		return nil, apperr.Remote("load more comments", err)
	}

	f.comments = append(f.comments, page...)
	if len(page) > 0 {
		f.cursor = CursorOf(page[len(page)-1])
	}
	f.hasMore = len(page) == f.pageSize
	f.state = StateLoaded

	slog.Debug("comment feed page appended", "count", len(page), "total", len(f.comments))
	return slices.Clone(page), nil
}

// Post writes c and inserts the stored record at the head of the feed.
func (f *Feed) Post(ctx context.Context, c Comment) (Comment, error) {
	stored, err := f.src.CreateComment(ctx, c)
	if err != nil {
		return Comment{}, apperr.Remote("post comment", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.comments = append([]Comment{stored}, f.comments...)
	if f.cursor == nil {
		f.cursor = CursorOf(stored)
	}
	return stored, nil
}

// ApplyReaction records a reaction remotely, then replaces the local entry's
// counters with the stored result. A comment that is not loaded locally is
// only updated remotely.
func (f *Feed) ApplyReaction(ctx context.Context, commentID string, k reaction.Kind) (reaction.Set, error) {
	set, err := f.counter.Apply(ctx, commentID, k)
	if err != nil {
		return reaction.Set{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if i := f.index(commentID); i >= 0 {
		f.comments[i].Reactions = set
	}
	return set, nil
}

// AppendReply adds r to the replies of the local entry for commentID. It
// reports whether the comment was found.
func (f *Feed) AppendReply(commentID string, r reply.Reply) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.index(commentID)
	if i < 0 {
		return false
	}
	f.comments[i].Replies = append(slices.Clone(f.comments[i].Replies), r)
	return true
}

// SetReplies replaces the local replies of commentID.
func (f *Feed) SetReplies(commentID string, rs []reply.Reply) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.index(commentID)
	if i < 0 {
		return false
	}
	f.comments[i].Replies = slices.Clone(rs)
	return true
}

// Comments returns a copy of the local sequence, newest first.
func (f *Feed) Comments() []Comment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.comments)
}

// Get returns the local entry for id.
func (f *Feed) Get(id string) (Comment, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i := f.index(id); i >= 0 {
		return f.comments[i], true
	}
	return Comment{}, false
}

// Len is the number of loaded comments.
func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.comments)
}

// Cursor returns the position of the last loaded comment, or nil.
func (f *Feed) Cursor() *Cursor {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cursor == nil {
		return nil
	}
	c := *f.cursor
	return &c
}

// HasMore is false once a page shorter than the page size has arrived.
func (f *Feed) HasMore() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hasMore
}

// State reports the loading state.
func (f *Feed) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// PageSize is the configured page size.
func (f *Feed) PageSize() int { return f.pageSize }

func (f *Feed) index(id string) int {
	return slices.IndexFunc(f.comments, func(c Comment) bool { return c.ID == id })
}
