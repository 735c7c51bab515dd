// Package bootstrap opens the configured repository for the binaries under
// cmd/.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"mustawda/backend/internal/config"
	"mustawda/backend/internal/store"
	"mustawda/backend/internal/store/memory"
	"mustawda/backend/internal/store/sqlstore"
)

// OpenRepository connects to the configured store. The returned close
// function is never nil.
func OpenRepository(ctx context.Context, cfg config.Config, logger *logrus.Logger) (store.Repository, func() error, error) {
	noop := func() error { return nil }

	switch cfg.StoreDriver {
	case config.DriverMemory:
		logger.WithField("module", "bootstrap").Warn("repository: in-memory, data is lost on restart")
		return memory.NewSeeded(), noop, nil
	case config.DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, noop, fmt.Errorf("STORE_DRIVER=postgres requires DATABASE_URL")
		}
		db, err := sqlstore.ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, noop, fmt.Errorf("postgres unavailable: %w", err)
		}
		logger.WithField("module", "bootstrap").Info("repository: postgres")
		repo := sqlstore.New(db, logger)
		return repo, repo.Close, nil
	default:
		db, err := sqlstore.ConnectSQLite(ctx, cfg.DatabasePath)
		if err != nil {
			return nil, noop, err
		}
		logger.WithFields(logrus.Fields{"module": "bootstrap", "path": cfg.DatabasePath}).Info("repository: sqlite")
		repo := sqlstore.New(db, logger)
		return repo, repo.Close, nil
	}
}
