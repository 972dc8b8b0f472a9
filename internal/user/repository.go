package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/evcraddock/commentbox/internal/apperr"
)

// Repository stores the user directory in SQLite.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a user repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Add creates a user. The ID is generated when u.ID is empty.
func (r *Repository) Add(ctx context.Context, u User) (*User, error) {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.DisplayName = strings.TrimSpace(u.DisplayName)

	if u.Email == "" {
		return nil, apperr.Invalid("email", "is required")
	}
	if u.ID == "" {
		u.ID = ulid.Make().String()
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO users (uid, email, display_name, photo_url) VALUES (?, ?, ?, ?)",
		u.ID, u.Email, u.DisplayName, u.PhotoURL,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, apperr.Invalid("email", "user already exists: "+u.Email)
		}
		return nil, fmt.Errorf("adding user: %w", err)
	}

	return r.Get(ctx, u.ID)
}

// Upsert writes the user document, replacing name, email and photo when the
// ID already exists.
func (r *Repository) Upsert(ctx context.Context, u User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (uid, email, display_name, photo_url) VALUES (?, ?, ?, ?)
		 ON CONFLICT(uid) DO UPDATE SET
			email = excluded.email,
			display_name = excluded.display_name,
			photo_url = excluded.photo_url`,
		u.ID, strings.ToLower(u.Email), u.DisplayName, u.PhotoURL,
	)
	if err != nil {
		return fmt.Errorf("upserting user: %w", err)
	}
	return nil
}

// List returns every user ordered by display name.
func (r *Repository) List(ctx context.Context) ([]User, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT uid, email, display_name, photo_url, created_at FROM users ORDER BY display_name COLLATE NOCASE, uid",
	)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			fmt.Printf("warning: closing rows: %v\n", cerr)
		}
	}()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.DisplayName, &u.PhotoURL, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

// Get returns a user by ID.
func (r *Repository) Get(ctx context.Context, id string) (*User, error) {
	var u User
	err := r.db.QueryRowContext(ctx,
		"SELECT uid, email, display_name, photo_url, created_at FROM users WHERE uid = ?", id,
	).Scan(&u.ID, &u.Email, &u.DisplayName, &u.PhotoURL, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return &u, nil
}

// GetByEmail returns a user by email, case-insensitively.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := r.db.QueryRowContext(ctx,
		"SELECT uid, email, display_name, photo_url, created_at FROM users WHERE LOWER(email) = ?",
		strings.ToLower(strings.TrimSpace(email)),
	).Scan(&u.ID, &u.Email, &u.DisplayName, &u.PhotoURL, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", email, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return &u, nil
}

// Delete removes a user by ID.
func (r *Repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE uid = ?", id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user %s: %w", id, apperr.ErrNotFound)
	}

	return nil
}
