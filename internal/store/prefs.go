package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/abhisek/vidya/internal/chat"
)

// PrefsRepo implements chat.PrefsRepo: scalar key-value preferences
// (active class, per-class open conversation, theme, schema version).
type PrefsRepo struct {
	db *sql.DB
}

var _ chat.PrefsRepo = (*PrefsRepo)(nil)

// GetPref returns the value for key, or "" if unset.
func (r *PrefsRepo) GetPref(ctx context.Context, key string) (string, error) {
	var v string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM prefs WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get pref %q: %w", key, err)
	}
	return v, nil
}

// SetPref stores the value for key, overwriting any previous value.
func (r *PrefsRepo) SetPref(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO prefs (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("set pref %q: %w", key, err)
	}
	return nil
}

// DeletePref removes key. No-op if absent.
func (r *PrefsRepo) DeletePref(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM prefs WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("delete pref %q: %w", key, err)
	}
	return nil
}
