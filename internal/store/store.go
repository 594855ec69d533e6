// Package store provides durable key/value storage for client state.
//
// The session token is the only value kept here. [SQLite] persists values across runs in the kv table
// created by the shared migrations; [Memory] is a process-local variant for tests and throwaway sessions.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Storage reads and writes string values by key.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error) // Get returns the value for key and whether it exists
	Set(ctx context.Context, key, value string) error          // Set creates or replaces the value for key
	Delete(ctx context.Context, key string) error              // Delete removes key; deleting a missing key is not an error
}

var (
	_ Storage = (*SQLite)(nil)
	_ Storage = (*Memory)(nil)
)

// SQLite implements [Storage] on the kv table.
type SQLite struct {
	db *sql.DB
}

// NewSQLite creates a [SQLite] storage with the given database connection. Migrations must already be applied.
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

// Get retrieves the value stored under key.
func (s *SQLite) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query key %q: %w", key, err)
	}
	return value, true, nil
}

// Set upserts the value stored under key.
func (s *SQLite) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, key, value, time.Now()); err != nil {
		return fmt.Errorf("failed to store key %q: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (s *SQLite) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete key %q: %w", key, err)
	}
	return nil
}

// Memory implements [Storage] with a map.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory creates an empty [Memory] storage.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

// Get returns the value stored under key.
func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

// Set creates or replaces the value stored under key.
func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// Delete removes key.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
