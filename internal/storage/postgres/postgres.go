// Package postgres stores arena progression in PostgreSQL using pgx v5: the
// latest snapshot of every fighter and a summary row per finished round.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cory-johannsen/brawl/internal/config"
)

// SchemaVersion is the migration the snapshot and round repositories are
// written against.
const SchemaVersion = 2

// ErrSchemaOutdated is returned by RequireSchema when the database has not
// been migrated to SchemaVersion, or a migration was left dirty.
var ErrSchemaOutdated = errors.New("database schema is not migrated")

// undefinedTable is the SQLSTATE for a missing relation.
const undefinedTable = "42P01"

// Pool is the connection pool shared by the snapshot and round repositories
// behind an ArenaStore.
type Pool struct {
	pool *pgxpool.Pool
}

// NewPool connects the arena's store to the database in cfg. Connections are
// tagged with application_name "brawl" so round writers show up in
// pg_stat_activity.
//
// Precondition: cfg must contain valid database connection parameters; logger may be nil.
// Postcondition: Returns a connected Pool or a non-nil error.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*Pool, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.ConnConfig.RuntimeParams["application_name"] = "brawl"

	start := time.Now()
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	logger.Info("arena store connected",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("name", cfg.Name),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &Pool{pool: pool}, nil
}

// Health checks that the database answers within timeout. The runner calls it
// once before the first round so a dead database fails fast instead of after
// a round has been played.
//
// Precondition: The pool must not be closed.
func (p *Pool) Health(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.pool.Ping(ctx)
}

// RequireSchema reads the golang-migrate bookkeeping table and fails with
// ErrSchemaOutdated unless it records a clean SchemaVersion or later.
//
// Precondition: The pool must not be closed.
func (p *Pool) RequireSchema(ctx context.Context) error {
	var (
		version int64
		dirty   bool
	)
	err := p.pool.QueryRow(ctx, `SELECT version, dirty FROM schema_migrations LIMIT 1`).Scan(&version, &dirty)
	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, pgx.ErrNoRows), errors.As(err, &pgErr) && pgErr.Code == undefinedTable:
		return fmt.Errorf("%w: no version recorded, run cmd/migrate", ErrSchemaOutdated)
	case err != nil:
		return fmt.Errorf("reading schema version: %w", err)
	case dirty:
		return fmt.Errorf("%w: version %d is dirty", ErrSchemaOutdated, version)
	case version < SchemaVersion:
		return fmt.Errorf("%w: at version %d, need %d", ErrSchemaOutdated, version, SchemaVersion)
	}
	return nil
}

// Close releases all pool resources. Repositories built on the pool must not
// be used afterwards.
func (p *Pool) Close() {
	p.pool.Close()
}

// DB returns the raw pool the snapshot and round repositories query.
func (p *Pool) DB() *pgxpool.Pool {
	return p.pool
}
