package localstore

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

const lastSyncKey = "last_sync"

// SetKV stores a value in the kv bucket, outside the record tables.
func (s *Store) SetKV(ctx context.Context, key, value string) error {
	const query = `INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return storeFault("set kv", err)
	}
	return nil
}

// GetKV reads a value from the kv bucket. Returns ("", nil) when absent.
func (s *Store) GetKV(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", storeFault("get kv", err)
	}
	return value, nil
}

// SetLastSync persists the process-wide last successful sync timestamp so it
// survives restarts.
func (s *Store) SetLastSync(ctx context.Context, t time.Time) error {
	return s.SetKV(ctx, lastSyncKey, formatTime(t))
}

// LastSync returns the persisted last successful sync timestamp, or nil if
// no pass has completed yet.
func (s *Store) LastSync(ctx context.Context) (*time.Time, error) {
	raw, err := s.GetKV(ctx, lastSyncKey)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}
	t := parseTime(raw)
	if t.IsZero() {
		return nil, nil
	}
	return &t, nil
}
