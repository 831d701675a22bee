package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore persists entries to the media_requests table.
type PGStore struct {
	pool *pgxpool.Pool
}

// OpenPG connects to dsn and applies the schema.
func OpenPG(ctx context.Context, dsn string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &PGStore{pool: pool}, nil
}

func (p *PGStore) Upsert(ctx context.Context, e Entry) error {
	const query = `
        INSERT INTO media_requests (id, route, operation, status, error_kind, detail, strategy, inputs, artifact, size_bytes, created_at, completed_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        ON CONFLICT (id)
        DO UPDATE SET status = EXCLUDED.status, error_kind = EXCLUDED.error_kind, detail = EXCLUDED.detail,
            strategy = EXCLUDED.strategy, artifact = EXCLUDED.artifact, size_bytes = EXCLUDED.size_bytes,
            completed_at = EXCLUDED.completed_at;`
	inputs := e.Inputs
	if inputs == nil {
		inputs = []string{}
	}
	_, err := p.pool.Exec(ctx, query,
		e.RequestID, e.Route, e.Operation, e.Status, e.ErrorKind, e.Detail, e.Strategy,
		inputs, e.Artifact, e.SizeBytes, e.CreatedAt, e.CompletedAt)
	return err
}

func (p *PGStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *PGStore) Close() {
	p.pool.Close()
}

func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	const stmt = `
        CREATE TABLE IF NOT EXISTS media_requests (
            id TEXT PRIMARY KEY,
            route TEXT NOT NULL,
            operation TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL,
            error_kind TEXT NOT NULL DEFAULT '',
            detail TEXT NOT NULL DEFAULT '',
            strategy TEXT NOT NULL DEFAULT '',
            inputs TEXT[] NOT NULL DEFAULT '{}',
            artifact TEXT NOT NULL DEFAULT '',
            size_bytes BIGINT NOT NULL DEFAULT 0,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            completed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`
	_, err := pool.Exec(ctx, stmt)
	return err
}
