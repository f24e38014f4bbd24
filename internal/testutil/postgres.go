// Package testutil provides test helpers for container-backed storage tests.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/htbah/campaign-manager/internal/config"
	"github.com/htbah/campaign-manager/internal/storage/postgres"
)

// PostgresContainer wraps a testcontainers PostgreSQL instance.
type PostgresContainer struct {
	container testcontainers.Container
	Pool      *postgres.Pool
	RawPool   *pgxpool.Pool
	Config    config.DatabaseConfig
}

// NewPostgresContainer starts a PostgreSQL test container and returns
// a connected Pool.
//
// Precondition: Docker must be available.
// Postcondition: Returns a running container with a connected pool,
// or fails the test.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()
	ctx := context.Background()
	start := time.Now()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("starting postgres container (is Docker running?): %v [%s]", err, time.Since(start))
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("getting container host: %v", err)
	}

	mappedPort, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("getting mapped port: %v", err)
	}

	dbCfg := config.DatabaseConfig{
		Host:            host,
		Port:            mappedPort.Int(),
		User:            "test",
		Password:        "test",
		Name:            "test",
		SSLMode:         "disable",
		MaxConns:        5,
		MinConns:        1,
		MaxConnLifetime: 5 * time.Minute,
	}

	pool, err := postgres.NewPool(ctx, dbCfg)
	if err != nil {
		t.Fatalf("connecting to test postgres: %v [%s]", err, time.Since(start))
	}

	t.Logf("postgres container started [%s]", time.Since(start))

	pc := &PostgresContainer{
		container: container,
		Pool:      pool,
		RawPool:   pool.DB(),
		Config:    dbCfg,
	}

	t.Cleanup(func() {
		pool.Close()
		_ = container.Terminate(ctx)
	})

	return pc
}

// ApplyMigrations runs the repository's migrations/ directory against the
// container with golang-migrate.
//
// Precondition: Pool must be connected.
// Postcondition: The characters, conditions, and items tables exist.
func (pc *PostgresContainer) ApplyMigrations(t *testing.T) {
	t.Helper()
	start := time.Now()

	m, err := migrate.New("file://"+MigrationsDir(), pc.DSN())
	if err != nil {
		t.Fatalf("creating migrator: %v", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		t.Fatalf("applying migrations: %v", err)
	}
	t.Logf("migrations applied [%s]", time.Since(start))
}

// MigrationsDir returns the absolute path of the repository's migrations directory.
func MigrationsDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations")
}

// NewPool starts a container, applies the migrations, and returns its pool.
// The test is skipped when Docker is unavailable.
func NewPool(t *testing.T) *postgres.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in -short mode")
	}
	pc := NewPostgresContainer(t)
	pc.ApplyMigrations(t)
	return pc.Pool
}

// DSN returns the connection string for the test database.
func (pc *PostgresContainer) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		pc.Config.User, pc.Config.Password,
		pc.Config.Host, pc.Config.Port,
		pc.Config.Name, pc.Config.SSLMode,
	)
}
