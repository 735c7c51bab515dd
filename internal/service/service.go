package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/sirupsen/logrus"

	"mustawda/backend/internal/domain"
	"mustawda/backend/internal/logging"
	"mustawda/backend/internal/store"
	"mustawda/backend/internal/validate"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo        store.Repository
	logger      *logrus.Logger
	phoneRegion string
	loc         *time.Location
	now         func() time.Time
}

func New(repo store.Repository, logger *logrus.Logger, phoneRegion string, loc *time.Location) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	if phoneRegion == "" {
		phoneRegion = "IQ"
	}
	if loc == nil {
		loc = time.UTC
	}

	return &Service{
		repo:        repo,
		logger:      logger,
		phoneRegion: phoneRegion,
		loc:         loc,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the time source; tests pin it to a fixed instant.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) Migrate(ctx context.Context) (domain.MigrationReport, error) {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.MigrationReport{}, err
	}
	return s.RunMigrations(ctx)
}

// RunMigrations applies pending schema steps without an actor check. It is
// meant for process startup and the migrate command.
func (s *Service) RunMigrations(ctx context.Context) (domain.MigrationReport, error) {
	report, err := s.repo.Migrate(ctx)
	if err != nil {
		logging.LogError(s.logger, "service", "RunMigrations", "migrate schema", report.Changes, err)
		return report, err
	}
	s.logger.WithFields(logrus.Fields{
		"module":           "service",
		"changes":          len(report.Changes),
		"already_migrated": report.AlreadyMigrated,
	}).Info("schema migration finished")
	return report, nil
}

func (s *Service) logAudit(ctx context.Context, action string, entity string, entityID string, fields logrus.Fields) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	entry := s.logger.WithFields(logrus.Fields{
		"module":    "audit",
		"action":    action,
		"entity":    entity,
		"entity_id": entityID,
		"actor":     actor.Username,
		"role":      actor.Role,
	})
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Info("audit")
}

func requireRole(ctx context.Context, roles ...string) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || !slices.Contains(roles, actor.Role) {
		return store.Errorf(store.ErrForbidden, "ليس لديك صلاحية لتنفيذ هذه العملية")
	}
	return nil
}

func invalid(format string, args ...any) error {
	return store.Errorf(store.ErrInvalidInput, format, args...)
}

func validateInput(data any) error {
	if msg := validate.First(data); msg != "" {
		return invalid("%s", msg)
	}
	return nil
}

// notFound keeps a repository's own message when it has one.
func notFound(err error, format string, args ...any) error {
	var carried *store.Error
	if errors.As(err, &carried) {
		return err
	}
	if errors.Is(err, store.ErrNotFound) {
		return store.Errorf(store.ErrNotFound, format, args...)
	}
	return err
}

func actorName(ctx context.Context) string {
	if actor, ok := ActorFromContext(ctx); ok && actor.Username != "" {
		return actor.Username
	}
	return "system"
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
