package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is a Backend for multi-instance deployments. The schema comes
// from migrations/ via RunMigrations.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres backend from a DSN. Caller must call Close when done.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) Load(ctx context.Context, key string) ([]byte, error) {
	var ids string
	err := p.pool.QueryRow(ctx, `SELECT ids FROM hidden_categories WHERE scope = $1`, key).Scan(&ids)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}
	return []byte(ids), nil
}

// Update locks the scope row with SELECT ... FOR UPDATE so concurrent
// mutations from other instances apply one after another.
func (p *Postgres) Update(ctx context.Context, key string, fn func(old []byte) ([]byte, error)) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	// Make sure there is a row to lock.
	_, err = tx.Exec(ctx,
		`INSERT INTO hidden_categories (scope) VALUES ($1) ON CONFLICT (scope) DO NOTHING`, key)
	if err != nil {
		return fmt.Errorf("Update ensure: %w", err)
	}
	var ids string
	if err := tx.QueryRow(ctx,
		`SELECT ids FROM hidden_categories WHERE scope = $1 FOR UPDATE`, key).Scan(&ids); err != nil {
		return fmt.Errorf("Update select: %w", err)
	}

	data, err := fn([]byte(ids))
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE hidden_categories SET ids = $2, updated_at = NOW() WHERE scope = $1`,
		key, string(data)); err != nil {
		return fmt.Errorf("Update write: %w", err)
	}
	return tx.Commit(ctx)
}
