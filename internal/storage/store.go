// Package storage implements the durable key-value layer backing the
// registry: a flat namespace of string keys to JSON blobs on SQLite, with
// a read-through in-memory cache. The store enforces no schema; callers
// serialize and deserialize.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/rbxmgr/rbxmgr/internal/common"
	"github.com/rbxmgr/rbxmgr/internal/dbx"
	"github.com/rbxmgr/rbxmgr/internal/logging"
	"github.com/rbxmgr/rbxmgr/internal/storage/migrations"
)

// reservedPrefix marks implementation-owned keys (e.g. the vault key).
// Reserved keys are invisible to ExportAll/ImportAll.
const reservedPrefix = "internal."

// Store is a key-value store over a single SQLite database. Safe for
// concurrent use.
type Store struct {
	db  *sql.DB
	log logging.Logger

	mu    sync.Mutex
	cache map[string][]byte
}

// Open opens (creating if needed) the database at dsn and applies pending
// migrations.
func Open(ctx context.Context, dsn string, log logging.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %w", common.ErrPersistence, err)
	}

	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: migrate: %w", common.ErrPersistence, err)
	}

	return &Store{db: db, log: log, cache: map[string][]byte{}}, nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the raw JSON stored under key. The second result is false
// when the key is absent.
func (s *Store) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	s.mu.Lock()
	if cached, ok := s.cache[key]; ok {
		out := make([]byte, len(cached))
		copy(out, cached)
		s.mu.Unlock()
		return out, true, nil
	}
	s.mu.Unlock()

	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: get %q: %w", common.ErrPersistence, key, err)
	}

	s.mu.Lock()
	s.cache[key] = value
	s.mu.Unlock()

	out := make([]byte, len(value))
	copy(out, value)
	return out, true, nil
}

// GetJSON unmarshals the value under key into v. Returns false (and leaves
// v untouched) when the key is absent.
func (s *Store) GetJSON(ctx context.Context, key string, v any) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return ok, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("%w: decode %q: %w", common.ErrPersistence, key, err)
	}
	return true, nil
}

// Set serializes v and fully overwrites the prior value for key.
func (s *Store) Set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encode %q: %w", common.ErrPersistence, key, err)
	}
	return s.setRaw(ctx, key, data)
}

func (s *Store) setRaw(ctx context.Context, key string, data []byte) error {
	query := `INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	if _, err := s.db.ExecContext(ctx, query, key, data); err != nil {
		return fmt.Errorf("%w: set %q: %w", common.ErrPersistence, key, err)
	}

	s.mu.Lock()
	s.cache[key] = data
	s.mu.Unlock()
	return nil
}

// Remove deletes key and drops it from the cache. Removing an absent key
// is not an error.
func (s *Store) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("%w: remove %q: %w", common.ErrPersistence, key, err)
	}

	s.mu.Lock()
	delete(s.cache, key)
	s.mu.Unlock()
	return nil
}

// Keys lists all non-reserved keys.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM kv ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("%w: list keys: %w", common.ErrPersistence, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("%w: list keys: %w", common.ErrPersistence, err)
		}
		if strings.HasPrefix(k, reservedPrefix) {
			continue
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list keys: %w", common.ErrPersistence, err)
	}
	return keys, nil
}

// ExportAll snapshots every non-reserved key. The result round-trips
// through ImportAll.
func (s *Store) ExportAll(ctx context.Context) (map[string]json.RawMessage, error) {
	keys, err := s.Keys(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]json.RawMessage, len(keys))
	for _, k := range keys {
		raw, ok, err := s.Get(ctx, k)
		if err != nil {
			return nil, err
		}
		if ok {
			out[k] = raw
		}
	}
	return out, nil
}

// ImportAll writes every entry of data in one transaction, skipping
// reserved keys, and invalidates the cache afterwards.
func (s *Store) ImportAll(ctx context.Context, data map[string]json.RawMessage) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		query := `INSERT INTO kv (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`
		for k, v := range data {
			if strings.HasPrefix(k, reservedPrefix) {
				continue
			}
			if _, err := tx.ExecContext(ctx, query, k, []byte(v)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: import: %w", common.ErrPersistence, err)
	}

	s.mu.Lock()
	s.cache = map[string][]byte{}
	s.mu.Unlock()
	return nil
}

// GetSecret reads a reserved, implementation-owned value. Secrets never
// appear in exports and bypass the JSON contract (raw bytes).
func (s *Store) GetSecret(ctx context.Context, name string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, reservedPrefix+name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: get secret %q: %w", common.ErrPersistence, name, err)
	}
	return value, true, nil
}

// SetSecret writes a reserved, implementation-owned value.
func (s *Store) SetSecret(ctx context.Context, name string, value []byte) error {
	query := `INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	if _, err := s.db.ExecContext(ctx, query, reservedPrefix+name, value); err != nil {
		return fmt.Errorf("%w: set secret %q: %w", common.ErrPersistence, name, err)
	}
	return nil
}
