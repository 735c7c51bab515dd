package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"mustawda/backend/internal/backup"
	"mustawda/backend/internal/bootstrap"
	"mustawda/backend/internal/config"
	"mustawda/backend/internal/httpapi"
	"mustawda/backend/internal/logging"
	"mustawda/backend/internal/service"
	"mustawda/backend/internal/session"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)
	if err := validateSecurityConfig(cfg); err != nil {
		logger.WithError(err).Fatal("invalid security configuration")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	closers := make([]func() error, 0, 2)

	repo, closeRepo, err := bootstrap.OpenRepository(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to open repository")
	}
	closers = append(closers, closeRepo)

	svc := service.New(repo, logger, cfg.PhoneRegion, cfg.Location())
	if _, err := svc.RunMigrations(ctx); err != nil {
		logger.WithError(err).Fatal("schema migration failed")
	}
	if cfg.SeedAdminPassword != "" {
		created, err := svc.EnsureAdmin(ctx, cfg.SeedAdminUsername, cfg.SeedAdminPassword)
		if err != nil {
			logger.WithError(err).Fatal("failed to seed admin account")
		}
		if created {
			logger.WithField("username", cfg.SeedAdminUsername).Info("admin account created")
		}
	} else {
		logger.Warn("SEED_ADMIN_PASSWORD is empty, no admin account will be created")
	}

	var revocations session.Revocations = session.NewMemory()
	if cfg.RedisAddr != "" {
		redisSessions := session.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisSessions.Ping(ctx); err != nil {
			logger.WithError(err).Warn("redis unavailable, keeping logouts in memory")
			_ = redisSessions.Close()
		} else {
			revocations = redisSessions
			closers = append(closers, redisSessions.Close)
			logger.Info("sessions: redis")
		}
	} else {
		logger.Info("sessions: in-memory")
	}

	auth := httpapi.NewAuthManager(cfg.AuthSecret, cfg.AccessTokenTTL(), svc, revocations)
	api := httpapi.New(svc, auth, backup.NewWriter(cfg.BackupDir), logger, cfg.AllowedOrigin)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.WithFields(logrus.Fields{"addr": cfg.Address(), "driver": cfg.StoreDriver}).Info("warehouse backend listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server error")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("shutdown error")
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logger.WithError(err).Error("close error")
		}
	}

	logger.Info("server stopped")
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if cfg.SeedAdminPassword == "" {
		return nil
	}
	if err := validatePasswordStrength(cfg.SeedAdminPassword); err != nil {
		return fmt.Errorf("SEED_ADMIN_PASSWORD is too weak: %w", err)
	}
	return nil
}

// validatePasswordStrength rejects short passwords, a single repeated
// character, runs like "12345678" or "abcdefgh", and a known-weak list.
func validatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("at least 8 characters required")
	}
	known := map[string]bool{
		"password": true, "12345678": true, "87654321": true, "admin123": true,
		"admin1234": true, "qwertyui": true, "11111111": true, "password1": true,
	}
	if known[strings.ToLower(password)] {
		return fmt.Errorf("common password not allowed")
	}

	allSame := true
	for i := 1; i < len(password); i++ {
		if password[i] != password[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return fmt.Errorf("repeated character not allowed")
	}

	ascending, descending := true, true
	for i := 1; i < len(password); i++ {
		diff := int(password[i]) - int(password[i-1])
		if diff != 1 {
			ascending = false
		}
		if diff != -1 {
			descending = false
		}
	}
	if ascending || descending {
		return fmt.Errorf("sequential password not allowed")
	}

	return nil
}
