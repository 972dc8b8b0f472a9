package comment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/evcraddock/commentbox/internal/apperr"
	"github.com/evcraddock/commentbox/internal/markup"
	"github.com/evcraddock/commentbox/internal/reaction"
)

const selectColumns = `SELECT id, text, file_url, mentions, user_id, username, user_photo, parent_id, created_at,
	like_count, love_count, laugh_count, angry_count FROM comments`

// counterColumns maps each reaction kind to its column.
var counterColumns = map[reaction.Kind]string{
	reaction.Like:  "like_count",
	reaction.Love:  "love_count",
	reaction.Laugh: "laugh_count",
	reaction.Angry: "angry_count",
}

// Repository stores comments and their reaction counters in SQLite.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepository creates a comment repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

var (
	_ Source               = (*Repository)(nil)
	_ reaction.Store       = (*Repository)(nil)
	_ reaction.Incrementer = (*Repository)(nil)
)

// ListComments returns up to req.Limit comments after req.After, ordered by
// creation time then ID, newest first.
func (r *Repository) ListComments(ctx context.Context, req PageRequest) ([]Comment, error) {
	limit := ClampLimit(req.Limit)

	query := selectColumns
	var args []any
	if c := req.After; c != nil {
		ts := c.CreatedAt.UnixNano()
		query += " WHERE created_at < ? OR (created_at = ? AND id < ?)"
		args = append(args, ts, ts, c.ID)
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing comments: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			fmt.Printf("warning: closing rows: %v\n", cerr)
		}
	}()

	comments := []Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating comments: %w", err)
	}

	return comments, nil
}

// GetComment returns a comment by ID.
func (r *Repository) GetComment(ctx context.Context, id string) (Comment, error) {
	c, err := scanComment(r.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return Comment{}, fmt.Errorf("comment %s: %w", id, apperr.ErrNotFound)
	}
	return c, err
}

// CreateComment sanitizes and stores c. The ID and creation time are
// assigned here and counters start at zero.
func (r *Repository) CreateComment(ctx context.Context, c Comment) (Comment, error) {
	c.Text = markup.Sanitize(c.Text)
	if n := markup.Length(c.Text); n == 0 {
		return Comment{}, apperr.Invalid("text", "must not be empty")
	} else if n > MaxLength {
		return Comment{}, apperr.Invalid("text", fmt.Sprintf("must be at most %d characters", MaxLength))
	}
	if c.UserID == "" {
		return Comment{}, apperr.Invalid("userId", "is required")
	}
	if c.Mentions == nil {
		c.Mentions = []string{}
	}

	mentions, err := json.Marshal(c.Mentions)
	if err != nil {
		return Comment{}, fmt.Errorf("encoding mentions: %w", err)
	}

	c.ID = ulid.Make().String()
	c.CreatedAt = r.now().UTC()
	c.Reactions = reaction.Set{}
	c.Replies = nil

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO comments (id, text, file_url, mentions, user_id, username, user_photo, parent_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Text, c.FileURL, string(mentions), c.UserID, c.Username, c.UserPhoto, c.ParentID, c.CreatedAt.UnixNano(),
	)
	if err != nil {
		return Comment{}, fmt.Errorf("inserting comment: %w", err)
	}

	return c, nil
}

// Delete removes a comment and its replies.
func (r *Repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM comments WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting comment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("comment %s: %w", id, apperr.ErrNotFound)
	}

	return nil
}

// GetReactions returns the counters of a comment.
func (r *Repository) GetReactions(ctx context.Context, id string) (reaction.Set, error) {
	return getReactions(ctx, r.db, id)
}

// PutReactions overwrites all four counters of a comment.
func (r *Repository) PutReactions(ctx context.Context, id string, s reaction.Set) error {
	if s.Like < 0 || s.Love < 0 || s.Laugh < 0 || s.Angry < 0 {
		return apperr.Invalid("reactions", "counts must not be negative")
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE comments SET like_count = ?, love_count = ?, laugh_count = ?, angry_count = ? WHERE id = ?`,
		s.Like, s.Love, s.Laugh, s.Angry, id,
	)
	if err != nil {
		return fmt.Errorf("writing reactions: %w", err)
	}
	return requireRow(result, id)
}

// IncrementReaction raises one counter in a single statement, so concurrent
// reactions are never lost.
func (r *Repository) IncrementReaction(ctx context.Context, id string, k reaction.Kind) (reaction.Set, error) {
	col, ok := counterColumns[k]
	if !ok {
		return reaction.Set{}, apperr.Invalid("kind", fmt.Sprintf("unknown reaction %q", k))
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return reaction.Set{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, fmt.Sprintf("UPDATE comments SET %s = %s + 1 WHERE id = ?", col, col), id)
	if err != nil {
		return reaction.Set{}, fmt.Errorf("incrementing %s: %w", k, err)
	}
	if err := requireRow(result, id); err != nil {
		return reaction.Set{}, err
	}

	s, err := getReactions(ctx, tx, id)
	if err != nil {
		return reaction.Set{}, err
	}
	if err := tx.Commit(); err != nil {
		return reaction.Set{}, fmt.Errorf("committing reaction: %w", err)
	}
	return s, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getReactions(ctx context.Context, q queryRower, id string) (reaction.Set, error) {
	var s reaction.Set
	err := q.QueryRowContext(ctx,
		"SELECT like_count, love_count, laugh_count, angry_count FROM comments WHERE id = ?", id,
	).Scan(&s.Like, &s.Love, &s.Laugh, &s.Angry)
	if errors.Is(err, sql.ErrNoRows) {
		return reaction.Set{}, fmt.Errorf("comment %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return reaction.Set{}, fmt.Errorf("reading reactions: %w", err)
	}
	return s, nil
}

func requireRow(result sql.Result, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("comment %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanComment(s scanner) (Comment, error) {
	var (
		c        Comment
		mentions string
		created  int64
	)
	err := s.Scan(&c.ID, &c.Text, &c.FileURL, &mentions, &c.UserID, &c.Username, &c.UserPhoto, &c.ParentID, &created,
		&c.Reactions.Like, &c.Reactions.Love, &c.Reactions.Laugh, &c.Reactions.Angry)
	if errors.Is(err, sql.ErrNoRows) {
		return Comment{}, err
	}
	if err != nil {
		return Comment{}, fmt.Errorf("scanning comment: %w", err)
	}
	if err := json.Unmarshal([]byte(mentions), &c.Mentions); err != nil {
		return Comment{}, fmt.Errorf("decoding comment mentions: %w", err)
	}
	c.CreatedAt = time.Unix(0, created).UTC()
	return c, nil
}
