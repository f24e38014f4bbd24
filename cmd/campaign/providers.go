package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/htbah/campaign-manager/internal/config"
	"github.com/htbah/campaign-manager/internal/console"
	"github.com/htbah/campaign-manager/internal/game/character"
	"github.com/htbah/campaign-manager/internal/game/command"
	"github.com/htbah/campaign-manager/internal/game/condition"
	"github.com/htbah/campaign-manager/internal/game/inventory"
	"github.com/htbah/campaign-manager/internal/observability"
	"github.com/htbah/campaign-manager/internal/server"
	"github.com/htbah/campaign-manager/internal/storage"
	"github.com/htbah/campaign-manager/internal/storage/jsonfile"
	"github.com/htbah/campaign-manager/internal/storage/postgres"
)

const dbHealthTimeout = 5 * time.Second

func provideLogger(cfg config.Config) (*zap.Logger, func(), error) {
	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing logger: %w", err)
	}
	return logger, func() { _ = logger.Sync() }, nil
}

// provideBackend opens the storage driver named by cfg.Storage.Driver.
func provideBackend(ctx context.Context, cfg config.Config, logger *zap.Logger) (storage.Backend, func(), error) {
	switch cfg.Storage.Driver {
	case config.DriverJSON:
		return jsonfile.NewOS(cfg.Storage, logger), func() {}, nil
	case config.DriverPostgres:
		dbStart := time.Now()
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to database: %w", err)
		}
		if err := pool.Health(ctx, dbHealthTimeout); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("database health check: %w", err)
		}
		if err := pool.CheckSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
		return postgres.NewStore(pool, logger), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func provideConditions(b storage.Backend, logger *zap.Logger) *condition.Library {
	return condition.NewLibrary(b, logger)
}

func provideItems(b storage.Backend, logger *zap.Logger) *inventory.Library {
	return inventory.NewLibrary(b, logger)
}

func provideSession(
	reg *command.Registry,
	roster *character.Roster,
	conds *condition.Library,
	items *inventory.Library,
	b storage.Backend,
	cfg config.Config,
	logger *zap.Logger,
) (*console.Session, error) {
	return console.NewSession(console.Deps{
		Registry:   reg,
		Roster:     roster,
		Conditions: conds,
		Items:      items,
		Store:      b,
		In:         os.Stdin,
		Out:        os.Stdout,
		Config:     cfg.Console,
		Logger:     logger,
	})
}

// provideLifecycle registers the console as the foreground service; the run
// ends when the operator quits.
func provideLifecycle(sess *console.Session, logger *zap.Logger) *server.Lifecycle {
	lc := server.NewLifecycle(logger)
	lc.Add("console", sess)
	return lc
}
