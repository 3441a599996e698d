package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS hidden_categories (
	scope      TEXT PRIMARY KEY,
	ids        TEXT NOT NULL DEFAULT '[]',
	updated_at TEXT NOT NULL
)`

// SQLite is a single-file Backend for single-node installs.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the database at path.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer connection serializes read-modify-write transactions.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Load(ctx context.Context, key string) ([]byte, error) {
	var ids string
	err := s.db.QueryRowContext(ctx, `SELECT ids FROM hidden_categories WHERE scope = ?`, key).Scan(&ids)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}
	return []byte(ids), nil
}

func (s *SQLite) Update(ctx context.Context, key string, fn func(old []byte) ([]byte, error)) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var old []byte
	var ids string
	err = tx.QueryRowContext(ctx, `SELECT ids FROM hidden_categories WHERE scope = ?`, key).Scan(&ids)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("Update select: %w", err)
	default:
		old = []byte(ids)
	}

	data, err := fn(old)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO hidden_categories (scope, ids, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (scope) DO UPDATE SET ids = excluded.ids, updated_at = excluded.updated_at`,
		key, string(data), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("Update upsert: %w", err)
	}
	return tx.Commit()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
