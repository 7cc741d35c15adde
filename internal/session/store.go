// Package session persists the signed-in user's credentials between runs,
// playing the role the browser's localStorage plays for the web dashboard.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// Store is a small key/value table in a local SQLite database.
type Store struct {
	db *sql.DB
}

// Open creates the backing database (and its parent directory) if needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create state dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the stored value for key, or "" when the key is absent.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Keys returns every stored key.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM kv ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// AccessToken returns the cached bearer token, or "" when signed out.
func (s *Store) AccessToken(ctx context.Context) (string, error) {
	return s.Get(ctx, KeyAccessToken)
}

// SaveTokens stores the access/refresh pair issued at sign-in.
func (s *Store) SaveTokens(ctx context.Context, access, refresh string) error {
	if err := s.Set(ctx, KeyAccessToken, access); err != nil {
		return err
	}
	if refresh != "" {
		return s.Set(ctx, KeyRefreshToken, refresh)
	}
	return nil
}

// ClearCredentials removes the token keys plus anything else the identity
// provider has namespaced in the store. Keys belonging to other concerns are
// left untouched.
func (s *Store) ClearCredentials(ctx context.Context) error {
	if err := s.Delete(ctx, KeyAccessToken); err != nil {
		return err
	}
	if err := s.Delete(ctx, KeyRefreshToken); err != nil {
		return err
	}

	keys, err := s.Keys(ctx)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if isProviderKey(key) {
			if err := s.Delete(ctx, key); err != nil {
				return err
			}
		}
	}
	return nil
}

func isProviderKey(key string) bool {
	lower := strings.ToLower(key)
	return strings.HasPrefix(lower, "sb-") || strings.Contains(lower, "supabase")
}
