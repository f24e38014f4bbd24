// Package postgres stores characters and the shared libraries in PostgreSQL
// as JSONB documents, using pgx v5.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/htbah/campaign-manager/internal/config"
)

// ApplicationName is reported to the server for every pooled connection, so
// campaign sessions can be told apart in pg_stat_activity.
const ApplicationName = "htbah-campaign"

// ErrSchemaMissing is returned by CheckSchema when the migrations have not
// been applied to the database.
var ErrSchemaMissing = errors.New("database schema missing; run cmd/migrate")

// documentTables are the tables the repositories read and write.
var documentTables = []string{"characters", "conditions", "items"}

// Pool wraps a pgx connection pool with health and schema checks.
type Pool struct {
	pool *pgxpool.Pool
}

// NewPool connects to the campaign database described by cfg.
//
// Precondition: cfg must contain valid database connection parameters.
// Postcondition: Returns a pinged Pool or a non-nil error.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.ConnConfig.RuntimeParams["application_name"] = ApplicationName

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Name, err)
	}
	return &Pool{pool: pool}, nil
}

// Health checks that the database answers within timeout.
//
// Precondition: The pool must not be closed.
func (p *Pool) Health(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.pool.Ping(ctx)
}

// CheckSchema verifies that every document table exists, so a database that
// was never migrated fails at startup instead of on the first save.
//
// Postcondition: returns an error wrapping ErrSchemaMissing that names the
// missing tables, or nil.
func (p *Pool) CheckSchema(ctx context.Context) error {
	var missing []string
	for _, table := range documentTables {
		var found bool
		if err := p.pool.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, table).Scan(&found); err != nil {
			return fmt.Errorf("checking table %s: %w", table, err)
		}
		if !found {
			missing = append(missing, table)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing tables %v", ErrSchemaMissing, missing)
	}
	return nil
}

// Close releases all pool resources.
func (p *Pool) Close() {
	p.pool.Close()
}

// DB returns the underlying pgxpool.Pool for use by repositories.
func (p *Pool) DB() *pgxpool.Pool {
	return p.pool
}
