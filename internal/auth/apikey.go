package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/evcraddock/commentbox/internal/apperr"
)

const (
	apiKeyBytes  = 32 // 256-bit keys
	apiKeyPrefix = "cb_"
)

// APIKey is the stored representation of an API key (no raw key).
type APIKey struct {
	ID         int64
	Name       string
	KeyPrefix  string // first 8 chars for identification
	UserID     string
	CreatedAt  time.Time
	LastUsedAt *time.Time
}

// APIKeyStore manages API keys in SQLite. Every key belongs to one user.
type APIKeyStore struct {
	db *sql.DB
}

// NewAPIKeyStore creates an API key store.
func NewAPIKeyStore(db *sql.DB) *APIKeyStore {
	return &APIKeyStore{db: db}
}

// Create generates a new API key for userID.
// Returns the raw key (shown once to user) and the stored record.
func (s *APIKeyStore) Create(ctx context.Context, name, userID string) (string, *APIKey, error) {
	raw, err := generateAPIKey()
	if err != nil {
		return "", nil, fmt.Errorf("generating key: %w", err)
	}

	prefix := raw[:8]
	hash := hashAPIKey(raw)

	result, err := s.db.ExecContext(ctx,
		"INSERT INTO api_keys (name, key_prefix, key_hash, user_id) VALUES (?, ?, ?, ?)",
		name, prefix, hash, userID,
	)
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY") {
			return "", nil, fmt.Errorf("user %s: %w", userID, apperr.ErrNotFound)
		}
		return "", nil, fmt.Errorf("storing key: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return "", nil, fmt.Errorf("getting key id: %w", err)
	}

	key := &APIKey{
		ID:        id,
		Name:      name,
		KeyPrefix: prefix,
		UserID:    userID,
	}

	return raw, key, nil
}

// List returns the API keys of userID (without the raw key).
func (s *APIKeyStore) List(ctx context.Context, userID string) ([]APIKey, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, key_prefix, user_id, created_at, last_used_at FROM api_keys WHERE user_id = ? ORDER BY created_at DESC, id DESC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying keys: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			fmt.Printf("closing rows: %v\n", cerr)
		}
	}()

	var keys []APIKey
	for rows.Next() {
		var k APIKey
		if err := rows.Scan(&k.ID, &k.Name, &k.KeyPrefix, &k.UserID, &k.CreatedAt, &k.LastUsedAt); err != nil {
			return nil, fmt.Errorf("scanning key: %w", err)
		}
		keys = append(keys, k)
	}

	return keys, rows.Err()
}

// Delete removes an API key owned by userID.
func (s *APIKeyStore) Delete(ctx context.Context, id int64, userID string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM api_keys WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("deleting key: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("key %d: %w", id, apperr.ErrNotFound)
	}

	return nil
}

// Validate checks a raw API key against stored hashes and updates
// last_used_at. Returns the owning user ID, or "" for an unknown key.
func (s *APIKeyStore) Validate(ctx context.Context, rawKey string) (string, error) {
	if !strings.HasPrefix(rawKey, apiKeyPrefix) {
		return "", nil
	}
	hash := hashAPIKey(rawKey)

	var userID string
	err := s.db.QueryRowContext(ctx,
		"UPDATE api_keys SET last_used_at = ? WHERE key_hash = ? RETURNING user_id",
		time.Now(), hash,
	).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("validating key: %w", err)
	}

	return userID, nil
}

// LooksLikeKey reports whether s has the shape of a raw API key.
func LooksLikeKey(s string) bool {
	return strings.HasPrefix(s, apiKeyPrefix) && len(s) == len(apiKeyPrefix)+2*apiKeyBytes
}

func generateAPIKey() (string, error) {
	b := make([]byte, apiKeyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return apiKeyPrefix + hex.EncodeToString(b), nil
}

func hashAPIKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}
