// Package pgstore is a Postgres implementation of the runner's key-value and
// history store, for deployments where several hosts share one status
// mapping.
//
// It mirrors internal/store method for method. Update additionally holds a
// transaction-scoped advisory lock keyed by (scope, name), so concurrent
// runners on different machines serialize their read-modify-write of the
// status mapping.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS ri_options (
    scope TEXT  NOT NULL,
    name  TEXT  NOT NULL,
    value BYTEA NOT NULL,
    PRIMARY KEY (scope, name)
);

CREATE TABLE IF NOT EXISTS ri_executions (
    id      BIGSERIAL PRIMARY KEY,
    run_id  TEXT   NOT NULL,
    scope   TEXT   NOT NULL,
    seq     BIGINT NOT NULL,
    name    TEXT   NOT NULL,
    owner   TEXT   NOT NULL DEFAULT '',
    version BIGINT NOT NULL DEFAULT 0,
    outcome TEXT   NOT NULL,
    message TEXT   NOT NULL DEFAULT '',
    UNIQUE (run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_ri_executions_scope ON ri_executions(scope, id);
`

// Config holds the connection URL and database/sql pool settings.
type Config struct {
	URL             string
	PingTimeout     time.Duration
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns pool settings suited to a short-lived CLI process.
func DefaultConfig(url string) Config {
	return Config{
		URL:             url,
		PingTimeout:     2 * time.Second,
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: 30 * time.Minute,
	}
}

// Validate reports the first setting that cannot be used to open a pool.
func (c Config) Validate() error {
	if c.URL == "" {
		return errors.New("postgres URL is required")
	}
	if c.PingTimeout <= 0 {
		return errors.New("ping timeout must be positive")
	}
	if c.MaxOpenConns < 1 {
		return errors.New("max open conns must be >= 1")
	}
	if c.MaxIdleConns < 0 {
		return errors.New("max idle conns must be >= 0")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max idle conns must be <= max open conns")
	}
	if c.ConnMaxLifetime < 0 {
		return errors.New("conn max lifetime must be >= 0")
	}
	return nil
}

// Store holds the ri_options table and the ri_executions history in
// Postgres. It satisfies the same contracts as the SQLite store.
type Store struct {
	db *sql.DB
}

// Open connects, pings and applies the schema. The schema is idempotent.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the pool. It is safe to call more than once.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
