// Command reset-password sets a new password for an existing account and
// reactivates it. It is the recovery path when no admin can sign in.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"mustawda/backend/internal/bootstrap"
	"mustawda/backend/internal/config"
	"mustawda/backend/internal/logging"
	"mustawda/backend/internal/service"
)

func main() {
	cfg := config.Load()
	username := flag.String("username", cfg.SeedAdminUsername, "account to reset")
	password := flag.String("password", "", "new password (at least 6 characters)")
	flag.Parse()

	if *password == "" {
		fmt.Fprintln(os.Stderr, "usage: reset-password -username admin -password <new password>")
		os.Exit(2)
	}

	logger := logging.New(cfg.LogLevel)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo, closeRepo, err := bootstrap.OpenRepository(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to open repository")
	}
	defer closeRepo()

	svc := service.New(repo, logger, cfg.PhoneRegion, cfg.Location())
	if _, err := svc.RunMigrations(ctx); err != nil {
		logger.WithError(err).Error("migration failed")
		_ = closeRepo()
		os.Exit(1)
	}

	user, err := svc.ResetPassword(ctx, *username, *password)
	if err != nil {
		logger.WithError(err).Error("password reset failed")
		_ = closeRepo()
		os.Exit(1)
	}
	fmt.Printf("password reset for %s (%s)\n", user.Username, user.Role)
}
