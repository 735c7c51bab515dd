// Command migrate applies pending schema steps to the configured database
// and prints the report as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"time"

	"mustawda/backend/internal/bootstrap"
	"mustawda/backend/internal/config"
	"mustawda/backend/internal/logging"
	"mustawda/backend/internal/service"
)

func main() {
	cfg := config.Load()
	driver := flag.String("driver", cfg.StoreDriver, "store driver: sqlite or postgres")
	dbPath := flag.String("db", cfg.DatabasePath, "sqlite database file")
	flag.Parse()
	cfg.StoreDriver = *driver
	cfg.DatabasePath = *dbPath

	logger := logging.New(cfg.LogLevel)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	repo, closeRepo, err := bootstrap.OpenRepository(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to open repository")
	}
	defer closeRepo()

	report, err := service.New(repo, logger, cfg.PhoneRegion, cfg.Location()).RunMigrations(ctx)
	if err != nil {
		logger.WithError(err).Error("migration failed")
		_ = closeRepo()
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(report)
}
