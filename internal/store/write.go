package store

import (
	"context"
	"fmt"
	"time"
)

// Logical keys used by intake.
const (
	KeyCatalog       = "catalog.v1"
	KeyLedger        = "ledger.v1"
	KeySessionDigest = "session.digest"
)

// Set stores value under key, replacing any previous value.
// The revision counter increments on every overwrite.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return fmt.Errorf("set: empty key")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, revision, updated_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			revision = kv.revision + 1,
			updated_at = excluded.updated_at
	`,
		key,
		value,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}

	return nil
}
