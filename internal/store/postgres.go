package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/sweeney/water-sensor/internal/logic"
)

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS documents (
		path        TEXT PRIMARY KEY,
		device_id   TEXT NOT NULL,
		water_level INTEGER NOT NULL,
		state       TEXT NOT NULL,
		recorded_at TEXT,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)
`

const postgresInsert = `
	INSERT INTO documents (path, device_id, water_level, state, recorded_at)
	VALUES ($1, $2, $3, $4, NULLIF($5, ''))
	ON CONFLICT (path) DO NOTHING
`

// Postgres stores documents as rows keyed by path.
type Postgres struct {
	url string
	log *zap.Logger

	mu   sync.RWMutex
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres store. The pool is opened by Authenticate.
func NewPostgres(url string, log *zap.Logger) *Postgres {
	return &Postgres{url: url, log: log}
}

// Authenticate connects, pings and creates the documents table.
func (p *Postgres) Authenticate(ctx context.Context) error {
	pool, err := pgxpool.New(ctx, p.url)
	if err != nil {
		return fmt.Errorf("postgres config: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("postgres ping: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return fmt.Errorf("postgres migrate: %w", err)
	}

	p.mu.Lock()
	if p.pool != nil {
		p.pool.Close()
	}
	p.pool = pool
	p.mu.Unlock()
	return nil
}

func (p *Postgres) Ready() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.pool != nil
}

// Create inserts rec at path. An existing row is left untouched.
func (p *Postgres) Create(ctx context.Context, path string, rec logic.Record) error {
	p.mu.RLock()
	pool := p.pool
	p.mu.RUnlock()
	if pool == nil {
		return ErrNotReady
	}
	if _, _, err := SplitPath(path); err != nil {
		return fmt.Errorf("%w: %q", err, path)
	}

	tag, err := pool.Exec(ctx, postgresInsert, path, rec.DeviceID, rec.Raw, rec.State, rec.Timestamp)
	if err != nil {
		return fmt.Errorf("postgres create %s: %w", path, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrExists, path)
	}

	p.log.Debug("postgres document created", zap.String("path", path))
	return nil
}

func (p *Postgres) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pool != nil {
		p.pool.Close()
		p.pool = nil
	}
	return nil
}
