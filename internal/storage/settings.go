package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// Well-known setting keys.
const (
	KeyMigrated      = "migrated"
	KeyTheme         = "theme"
	KeyLayoutDensity = "layoutDensity"
)

// Settings is the key/value collection. Values are stored as JSON.
type Settings struct {
	db *sql.DB
}

// SettingsReader is satisfied by *Settings and by test fakes.
type SettingsReader interface {
	Get(ctx context.Context, key string) (json.RawMessage, bool, error)
}

// Get returns the raw JSON value stored under key.
func (s *Settings) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, wrap("get setting", err)
	}
	return json.RawMessage(value), true, nil
}

// Set stores value as JSON under key.
func (s *Settings) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode setting %q: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, string(data))
	return wrap("set setting", err)
}

// Delete removes key.
func (s *Settings) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM settings WHERE key = ?", key)
	return wrap("delete setting", err)
}

// GetOr reads key into a T, returning def when the key is absent or its
// value does not decode as T.
func GetOr[T any](ctx context.Context, s SettingsReader, key string, def T) (T, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil {
		return def, err
	}
	if !ok {
		return def, nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return def, nil
	}
	return v, nil
}
