package reply

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/evcraddock/commentbox/internal/apperr"
)

// Repository stores replies in SQLite.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepository creates a reply repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

var _ Source = (*Repository)(nil)

// ListReplies returns every reply to commentID, oldest first.
func (r *Repository) ListReplies(ctx context.Context, commentID string) ([]Reply, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, comment_id, body, file_url, mentions, author, created_at
		 FROM replies WHERE comment_id = ? ORDER BY created_at, id`,
		commentID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing replies: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			fmt.Printf("warning: closing rows: %v\n", cerr)
		}
	}()

	replies := []Reply{}
	for rows.Next() {
		rp, err := scanReply(rows)
		if err != nil {
			return nil, err
		}
		replies = append(replies, rp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating replies: %w", err)
	}

	return replies, nil
}

// CreateReply stores rp under rp.CommentID. The ID and creation time are
// assigned here; a missing parent comment is reported as not found.
func (r *Repository) CreateReply(ctx context.Context, rp Reply) (Reply, error) {
	if err := apperr.Validate(Draft{Body: rp.Body}); err != nil {
		return Reply{}, err
	}
	if rp.Mentions == nil {
		rp.Mentions = []string{}
	}
	mentions, err := json.Marshal(rp.Mentions)
	if err != nil {
		return Reply{}, fmt.Errorf("encoding mentions: %w", err)
	}

	rp.ID = ulid.Make().String()
	rp.CreatedAt = r.now().UTC()

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO replies (id, comment_id, body, file_url, mentions, author, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rp.ID, rp.CommentID, rp.Body, rp.FileURL, string(mentions), rp.Author, rp.CreatedAt.UnixNano(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY") {
			return Reply{}, fmt.Errorf("comment %s: %w", rp.CommentID, apperr.ErrNotFound)
		}
		return Reply{}, fmt.Errorf("inserting reply: %w", err)
	}

	return rp, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReply(s scanner) (Reply, error) {
	var (
		rp       Reply
		mentions string
		created  int64
	)
	if err := s.Scan(&rp.ID, &rp.CommentID, &rp.Body, &rp.FileURL, &mentions, &rp.Author, &created); err != nil {
		return Reply{}, fmt.Errorf("scanning reply: %w", err)
	}
	if err := json.Unmarshal([]byte(mentions), &rp.Mentions); err != nil {
		return Reply{}, fmt.Errorf("decoding reply mentions: %w", err)
	}
	rp.CreatedAt = time.Unix(0, created).UTC()
	return rp, nil
}
