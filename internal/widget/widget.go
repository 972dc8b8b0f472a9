// Package widget ties the comment core together into the flows a user sees:
// opening the widget, posting, replying, reacting and paging.
package widget

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/evcraddock/commentbox/internal/apperr"
	"github.com/evcraddock/commentbox/internal/auth"
	"github.com/evcraddock/commentbox/internal/comment"
	"github.com/evcraddock/commentbox/internal/compose"
	"github.com/evcraddock/commentbox/internal/mention"
	"github.com/evcraddock/commentbox/internal/reaction"
	"github.com/evcraddock/commentbox/internal/reply"
	"github.com/evcraddock/commentbox/internal/upload"
)

// DefaultTimeout bounds every remote operation.
const DefaultTimeout = 15 * time.Second

// Store is the remote document store the widget reads and writes.
type Store interface {
	comment.Source
	reaction.Store
	reply.Source
	mention.UserSource
}

// Deps are the collaborators of a Widget. Uploader may be nil when
// attachments are not supported.
type Deps struct {
	Store    Store
	Uploader upload.Uploader
	Identity auth.Identity
	PageSize int
	Timeout  time.Duration
}

// Widget is one open comment widget session.
type Widget struct {
	uploader upload.Uploader
	identity auth.Identity
	timeout  time.Duration

	Directory *mention.Directory
	Feed      *comment.Feed
	Threads   *reply.Threads
	Counter   *reaction.Counter
}

// New wires a widget from deps.
func New(d Deps) *Widget {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	counter := reaction.NewCounter(d.Store, d.Identity)
	return &Widget{
		uploader:  d.Uploader,
		identity:  d.Identity,
		timeout:   timeout,
		Directory: mention.NewDirectory(d.Store),
		Feed:      comment.NewFeed(d.Store, counter, comment.FeedConfig{PageSize: d.PageSize}),
		Threads:   reply.NewThreads(d.Store, d.Identity),
		Counter:   counter,
	}
}

// Open loads the mention directory and the first page of comments before now
// in parallel. A directory failure is logged and otherwise ignored; the
// widget works without suggestions.
func (w *Widget) Open(ctx context.Context, now time.Time) ([]comment.Comment, error) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	var page []comment.Comment
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		if _, err := w.Directory.Load(egCtx); err != nil {
			slog.Warn("opening widget without mention suggestions", "error", err)
		}
		return nil
	})
	eg.Go(func() error {
		var err error
		page, err = w.Feed.InitialLoad(egCtx, now)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	slog.Info("widget opened", "comments", len(page), "users", len(w.Directory.Users()))
	return page, nil
}

// Composer starts a new draft of kind against the widget's directory.
func (w *Widget) Composer(kind compose.Kind) *compose.Session {
	return compose.NewSession(kind, w.Directory, w.identity)
}

// PostComment uploads the optional attachment, then writes the comment and
// shows it at the top of the feed. If the upload succeeded but the write
// failed, the error is a PartialWriteError naming the orphaned upload.
func (w *Widget) PostComment(ctx context.Context, sub compose.Submission, f *upload.File) (comment.Comment, error) {
	if sub.Kind != compose.KindComment {
		return comment.Comment{}, apperr.Invalid("kind", "submission is not a comment")
	}
	author, err := auth.Require(w.identity, "post comment")
	if err != nil {
		return comment.Comment{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	url, err := w.attach(ctx, f)
	if err != nil {
		return comment.Comment{}, err
	}

	c, err := w.Feed.Post(ctx, comment.Comment{
		Text:      sub.Content,
		FileURL:   url,
		Mentions:  sub.Mentions,
		UserID:    author.ID,
		Username:  author.Label(),
		UserPhoto: author.PhotoURL,
	})
	if err != nil {
		return comment.Comment{}, partial(url, err)
	}

	slog.Info("comment posted", "id", c.ID, "mentions", len(c.Mentions), "attachment", url != "")
	return c, nil
}

// Reply uploads the optional attachment, then writes the reply and appends it
// to the comment's thread and feed entry.
func (w *Widget) Reply(ctx context.Context, commentID string, sub compose.Submission, f *upload.File) (reply.Reply, error) {
	if sub.Kind != compose.KindReply {
		return reply.Reply{}, apperr.Invalid("kind", "submission is not a reply")
	}
	if _, err := auth.Require(w.identity, "reply"); err != nil {
		return reply.Reply{}, err
	}

	// Validate before uploading so a rejected body never orphans a file.
	draft := reply.Draft{Body: strings.TrimSpace(sub.PlainText), Mentions: sub.Mentions}
	if err := apperr.Validate(draft); err != nil {
		return reply.Reply{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	url, err := w.attach(ctx, f)
	if err != nil {
		return reply.Reply{}, err
	}

	draft.FileURL = url
	r, err := w.Threads.Append(ctx, commentID, draft)
	if err != nil {
		return reply.Reply{}, partial(url, err)
	}
	w.Feed.AppendReply(commentID, r)

	slog.Info("reply posted", "id", r.ID, "comment", commentID)
	return r, nil
}

// React raises one reaction counter of a comment.
func (w *Widget) React(ctx context.Context, commentID string, k reaction.Kind) (reaction.Set, error) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	return w.Feed.ApplyReaction(ctx, commentID, k)
}

// LoadMore fetches the next page of the feed.
func (w *Widget) LoadMore(ctx context.Context, now time.Time) ([]comment.Comment, error) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	return w.Feed.LoadMore(ctx, now)
}

// Replies fetches the thread of a comment and attaches it to the feed entry.
func (w *Widget) Replies(ctx context.Context, commentID string) ([]reply.Reply, error) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	rs, err := w.Threads.Fetch(ctx, commentID)
	if err != nil {
		return nil, err
	}
	w.Feed.SetReplies(commentID, rs)
	return rs, nil
}

func (w *Widget) attach(ctx context.Context, f *upload.File) (string, error) {
	if f == nil {
		return "", nil
	}
	if w.uploader == nil {
		return "", apperr.Invalid("file", "attachments are not supported")
	}
	url, err := w.uploader.Upload(ctx, *f)
	if err != nil {
		return "", apperr.Remote("upload attachment", err)
	}
	return url, nil
}

func partial(url string, err error) error {
	if url == "" {
		return err
	}
	slog.Warn("attachment orphaned", "url", url, "error", err)
	return &apperr.PartialWriteError{URL: url, Err: err}
}
