package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Record is a stored value with its bookkeeping columns.
type Record struct {
	Key       string
	Value     string
	Revision  int64
	UpdatedAt time.Time
}

// Get returns the value stored under key.
// ok is false when the key has never been written.
func (s *Store) Get(ctx context.Context, key string) (value string, ok bool, err error) {
	rec, err := s.Read(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return rec.Value, true, nil
}

// Read retrieves the full record for key.
// Returns sql.ErrNoRows if not found.
func (s *Store) Read(ctx context.Context, key string) (Record, error) {
	var rec Record
	var updatedAt string

	err := s.db.QueryRowContext(ctx, `
		SELECT key, value, revision, updated_at
		FROM kv
		WHERE key = ?
	`, key).Scan(&rec.Key, &rec.Value, &rec.Revision, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, err
	}
	if err != nil {
		return Record{}, fmt.Errorf("read %s: %w", key, err)
	}

	rec.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return Record{}, fmt.Errorf("read %s: parse updated_at: %w", key, err)
	}
	return rec, nil
}
