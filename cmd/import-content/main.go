// Package main imports condition and item seeds, or a whole JSON campaign,
// into the configured storage backend.
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
	"github.com/htbah/campaign-manager/internal/importer"
	"github.com/htbah/campaign-manager/internal/observability"
	"github.com/htbah/campaign-manager/internal/storage"
	"github.com/htbah/campaign-manager/internal/storage/jsonfile"
	"github.com/htbah/campaign-manager/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file (empty = defaults and environment)")
	conditionsDir := flag.String("conditions", "", "directory of condition YAML seeds (default content.conditions_dir)")
	itemsDir := flag.String("items", "", "directory of item YAML seeds (default content.items_dir)")
	fromJSON := flag.String("from-json", "", "copy a JSON campaign data directory instead of YAML seeds")
	keep := flag.Bool("keep-existing", false, "leave records whose id already exists untouched")
	dryRun := flag.Bool("dry-run", false, "validate and count without writing")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	var src importer.Source
	if *fromJSON != "" {
		srcCfg := cfg.Storage
		srcCfg.DataDir = *fromJSON
		src = importer.BackendSource{Backend: jsonfile.NewOS(srcCfg, logger)}
	} else {
		ys := importer.YAMLSource{ConditionsDir: cfg.Content.ConditionsDir, ItemsDir: cfg.Content.ItemsDir}
		if *conditionsDir != "" {
			ys.ConditionsDir = *conditionsDir
		}
		if *itemsDir != "" {
			ys.ItemsDir = *itemsDir
		}
		if ys.ConditionsDir == "" && ys.ItemsDir == "" {
			fmt.Fprintln(os.Stderr, "usage: import-content [-config <file>] (-conditions <dir> | -items <dir> | -from-json <dir>) [-keep-existing] [-dry-run]")
			os.Exit(1)
		}
		src = ys
	}

	target, closeTarget, err := openTarget(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("opening target backend", zap.Error(err))
	}
	defer closeTarget()

	start := time.Now()
	sum, err := importer.New(src, target, logger).Run(ctx, importer.Options{KeepExisting: *keep, DryRun: *dryRun})
	for _, w := range sum.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %v\n", w)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		closeTarget()
		os.Exit(1)
	}

	verb := "imported"
	if *dryRun {
		verb = "would import"
	}
	fmt.Printf("%s %d condition(s), %d item(s), %d character(s); skipped %d [%s]\n",
		verb, sum.Conditions, sum.Items, sum.Characters, sum.Skipped,
		time.Since(start).Round(time.Millisecond))
}

func openTarget(ctx context.Context, cfg config.Config, logger *zap.Logger) (storage.Backend, func(), error) {
	if cfg.Storage.Driver != config.DriverPostgres {
		return jsonfile.NewOS(cfg.Storage, logger), func() {}, nil
	}
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	if err := pool.CheckSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return postgres.NewStore(pool, logger), pool.Close, nil
}
