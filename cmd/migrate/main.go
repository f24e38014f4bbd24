// Package main applies the PostgreSQL schema migrations used by the postgres
// storage driver.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"

	"github.com/htbah/campaign-manager/internal/config"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "", "path to configuration file (empty = defaults and environment)")
	source := flag.String("source", "file://migrations", "migration source URL")
	direction := flag.String("direction", "up", "migration direction: up or down")
	steps := flag.Int("steps", 0, "number of steps (0 = all)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	m, err := migrate.New(*source, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("creating migrator: %v", err)
	}
	defer m.Close()

	switch *direction {
	case "up":
		if *steps > 0 {
			err = m.Steps(*steps)
		} else {
			err = m.Up()
		}
	case "down":
		if *steps > 0 {
			err = m.Steps(-*steps)
		} else {
			err = m.Down()
		}
	default:
		log.Fatalf("invalid direction %q: must be 'up' or 'down'", *direction)
	}

	if err != nil && err != migrate.ErrNoChange {
		log.Fatalf("migration failed: %v", err)
	}

	version, dirty, _ := m.Version()
	elapsed := time.Since(start)

	if err == migrate.ErrNoChange {
		fmt.Fprintf(os.Stdout, "no changes (version=%d dirty=%v) [%s]\n", version, dirty, elapsed)
	} else {
		fmt.Fprintf(os.Stdout, "migrated %s to version=%d dirty=%v [%s]\n", *direction, version, dirty, elapsed)
	}
}
