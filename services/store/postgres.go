package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	createSnapshotsTable = `CREATE TABLE IF NOT EXISTS snapshots (
	key        TEXT PRIMARY KEY,
	body       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

	upsertSnapshot = `INSERT INTO snapshots (key, body, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at`

	selectSnapshot = `SELECT body FROM snapshots WHERE key = $1`
)

// PostgresBlobStore stores JSON blobs in a single upserted table
type PostgresBlobStore struct {
	pool *pgxpool.Pool
}

// NewPostgresBlobStore connects to dsn and makes sure the snapshots table exists
func NewPostgresBlobStore(ctx context.Context, dsn string, maxConns int) (*PostgresBlobStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("PG_DSN parse: %w", err)
	}
	if maxConns <= 0 {
		maxConns = 2
	}
	cfg.MaxConns = int32(maxConns)

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("PG connect: %w", err)
	}
	if _, err := pool.Exec(ctx, createSnapshotsTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create snapshots table: %w", err)
	}

	return &PostgresBlobStore{pool: pool}, nil
}

// Put implements BlobStore with a single upsert statement
func (p *PostgresBlobStore) Put(ctx context.Context, key string, data []byte) (string, error) {
	// pass as string so the server parses it as jsonb text
	if _, err := p.pool.Exec(ctx, upsertSnapshot, key, string(data)); err != nil {
		return "", err
	}
	return "postgres://snapshots/" + key, nil
}

// Get implements BlobStore
func (p *PostgresBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	var body string
	err := p.pool.QueryRow(ctx, selectSnapshot, key).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(body), nil
}

// Close closes the connection pool
func (p *PostgresBlobStore) Close() error {
	p.pool.Close()
	return nil
}
