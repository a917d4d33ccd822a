// Package storage persists the dashboard's collections as named JSON slots in
// a local SQLite database, one slot per collection.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Slot keys. They mirror the collections the dashboard keeps.
const (
	SlotTransactions     = "family-transactions"
	SlotMembers          = "family-members"
	SlotCategories       = "family-categories"
	SlotCurrencies       = "active-currencies"
	SlotExchangeRates    = "exchange-rates"
	SlotSelectedCurrency = "selected-currency-code"
)

// SlotStore is a key/value store with JSON values. It does no validation and
// no migration of slot contents; a malformed slot simply reads as absent.
type SlotStore struct {
	db *sql.DB
}

func Open(dbPath string) (*SlotStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SlotStore{db: db}, nil
}

func (s *SlotStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Load reads the named slot into v and reports whether v was populated.
// An absent or malformed slot returns false and leaves the caller's default
// in place; it never returns an error.
func (s *SlotStore) Load(ctx context.Context, key string, v any) bool {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM slots WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false
	}
	if err != nil {
		slog.WarnContext(ctx, "Slot read failed, using default", "key", key, "error", err)
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		slog.WarnContext(ctx, "Slot holds malformed JSON, using default", "key", key, "error", err)
		return false
	}
	return true
}

// Save serializes v and writes it under key, replacing any prior value.
func (s *SlotStore) Save(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal slot %s: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO slots (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(raw))
	if err != nil {
		return fmt.Errorf("write slot %s: %w", key, err)
	}
	return nil
}
