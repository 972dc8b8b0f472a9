package db

import (
	"database/sql"
	"fmt"
)

// migrations is an ordered list of SQL statements to run.
// created_at columns on comments and replies hold unix nanoseconds assigned by
// the store at write time.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		uid          TEXT     PRIMARY KEY,
		email        TEXT     NOT NULL UNIQUE,
		display_name TEXT     NOT NULL DEFAULT '',
		created_at   DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS comments (
		id          TEXT    PRIMARY KEY,
		text        TEXT    NOT NULL,
		file_url    TEXT    NOT NULL DEFAULT '',
		mentions    TEXT    NOT NULL DEFAULT '[]',
		user_id     TEXT    NOT NULL,
		username    TEXT    NOT NULL DEFAULT '',
		user_photo  TEXT    NOT NULL DEFAULT '',
		parent_id   TEXT    NOT NULL DEFAULT '',
		created_at  INTEGER NOT NULL,
		like_count  INTEGER NOT NULL DEFAULT 0 CHECK (like_count >= 0),
		love_count  INTEGER NOT NULL DEFAULT 0 CHECK (love_count >= 0),
		laugh_count INTEGER NOT NULL DEFAULT 0 CHECK (laugh_count >= 0),
		angry_count INTEGER NOT NULL DEFAULT 0 CHECK (angry_count >= 0)
	)`,
	`CREATE INDEX IF NOT EXISTS comments_created_at ON comments (created_at DESC, id DESC)`,
	`CREATE TABLE IF NOT EXISTS replies (
		id         TEXT    PRIMARY KEY,
		comment_id TEXT    NOT NULL REFERENCES comments(id) ON DELETE CASCADE,
		body       TEXT    NOT NULL,
		file_url   TEXT    NOT NULL DEFAULT '',
		mentions   TEXT    NOT NULL DEFAULT '[]',
		author     TEXT    NOT NULL,
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS replies_comment_id ON replies (comment_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS api_keys (
		id           INTEGER  PRIMARY KEY AUTOINCREMENT,
		name         TEXT     NOT NULL,
		key_prefix   TEXT     NOT NULL,
		key_hash     TEXT     NOT NULL UNIQUE,
		user_id      TEXT     NOT NULL REFERENCES users(uid) ON DELETE CASCADE,
		created_at   DATETIME DEFAULT CURRENT_TIMESTAMP,
		last_used_at DATETIME
	)`,
}

// migrate runs all migrations in order.
func migrate(db *sql.DB) error {
	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}

	// Column additions, skipped when the column exists
	columnMigrations := []struct {
		table, column, definition string
	}{
		{"users", "photo_url", "TEXT NOT NULL DEFAULT ''"},
	}

	for _, cm := range columnMigrations {
		if err := addColumnIfNotExists(db, cm.table, cm.column, cm.definition); err != nil {
			return fmt.Errorf("adding %s.%s: %w", cm.table, cm.column, err)
		}
	}

	return nil
}

// addColumnIfNotExists adds a column to a table if it doesn't already exist.
func addColumnIfNotExists(db *sql.DB, table, column, definition string) error {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return fmt.Errorf("checking table info: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			fmt.Printf("warning: closing rows: %v\n", cerr)
		}
	}()

	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return fmt.Errorf("scanning column info: %w", err)
		}
		if name == column {
			return nil // column already exists
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating columns: %w", err)
	}

	_, err = db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition))
	return err
}
