// Package main provides the campaign console: it loads the campaign from the
// configured storage backend and hands the terminal to the operator.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/htbah/campaign-manager/internal/config"
	"github.com/htbah/campaign-manager/internal/console"
	"github.com/htbah/campaign-manager/internal/server"
)

// app is the assembled object graph of the console binary.
type app struct {
	logger    *zap.Logger
	session   *console.Session
	lifecycle *server.Lifecycle
}

func main() {
	configPath := flag.String("config", "", "path to configuration file (empty = defaults and environment)")
	dataDir := flag.String("data", "", "override storage.data_dir")
	driver := flag.String("driver", "", "override storage.driver: json or postgres")
	flag.Parse()

	// A missing .env file is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *dataDir != "" {
		cfg.Storage.DataDir = *dataDir
	}
	if *driver != "" {
		cfg.Storage.Driver = *driver
		if err := cfg.Validate(); err != nil {
			log.Fatalf("invalid -driver: %v", err)
		}
	}

	if err := run(context.Background(), cfg); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	start := time.Now()

	a, cleanup, err := initializeApp(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing: %w", err)
	}
	defer cleanup()

	a.logger.Info("loading campaign",
		zap.String("driver", cfg.Storage.Driver),
		zap.String("data_dir", cfg.Storage.DataDir),
	)
	if err := a.session.Load(ctx); err != nil {
		return fmt.Errorf("loading campaign: %w", err)
	}
	a.logger.Info("campaign loaded", zap.Duration("elapsed", time.Since(start)))

	return a.lifecycle.Run(ctx)
}
