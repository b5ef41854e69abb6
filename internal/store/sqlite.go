package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/sweeney/water-sensor/internal/logic"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS documents (
		path        TEXT PRIMARY KEY,
		device_id   TEXT NOT NULL,
		water_level INTEGER NOT NULL,
		state       TEXT NOT NULL,
		recorded_at TEXT,
		created_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
	)
`

const sqliteInsert = `
	INSERT OR IGNORE INTO documents (path, device_id, water_level, state, recorded_at)
	VALUES (?, ?, ?, ?, NULLIF(?, ''))
`

// SQLite keeps documents in a local database file.
type SQLite struct {
	db    *sql.DB
	log   *zap.Logger
	ready atomic.Bool
}

// NewSQLite opens (creating if needed) the database at dbPath.
func NewSQLite(dbPath string, log *zap.Logger) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return newSQLiteFromDB(db, log), nil
}

func newSQLiteFromDB(db *sql.DB, log *zap.Logger) *SQLite {
	return &SQLite{db: db, log: log}
}

// Authenticate pings the database and creates the documents table.
func (s *SQLite) Authenticate(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite ping: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("sqlite migrate: %w", err)
	}
	s.ready.Store(true)
	return nil
}

func (s *SQLite) Ready() bool {
	return s.ready.Load()
}

// Create inserts rec at path. An existing row is left untouched.
func (s *SQLite) Create(ctx context.Context, path string, rec logic.Record) error {
	if !s.Ready() {
		return ErrNotReady
	}
	if _, _, err := SplitPath(path); err != nil {
		return fmt.Errorf("%w: %q", err, path)
	}

	res, err := s.db.ExecContext(ctx, sqliteInsert, path, rec.DeviceID, rec.Raw, rec.State, rec.Timestamp)
	if err != nil {
		return fmt.Errorf("sqlite create %s: %w", path, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite create %s: %w", path, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrExists, path)
	}

	s.log.Debug("sqlite document created", zap.String("path", path))
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
