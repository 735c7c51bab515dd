package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"mustawda/backend/internal/domain"
	"mustawda/backend/internal/logging"
	"mustawda/backend/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account is inactive")
)

func (s *Service) ListUsers(ctx context.Context) ([]domain.User, error) {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return nil, err
	}
	return s.repo.ListUsers(ctx)
}

func (s *Service) CreateUser(ctx context.Context, req domain.UserCreateRequest) (domain.User, error) {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.User{}, err
	}
	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	if err := validateInput(req); err != nil {
		return domain.User{}, err
	}
	if strings.ContainsAny(req.Username, " \t\r\n") {
		return domain.User{}, invalid("اسم المستخدم يجب ألا يحتوي على مسافات")
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to hash password: %w", err)
	}
	created, err := s.repo.CreateUser(ctx, domain.User{
		Username: req.Username,
		Password: hash,
		Role:     defaultString(req.Role, domain.RoleUser),
		FullName: strings.TrimSpace(req.FullName),
		Email:    strings.TrimSpace(req.Email),
		Phone:    strings.TrimSpace(req.Phone),
		IsActive: true,
	})
	if err != nil {
		return domain.User{}, err
	}

	s.logAudit(ctx, "user_create", "user", created.ID, logrus.Fields{"username": created.Username, "user_role": created.Role})
	return *created, nil
}

// UpdateUser applies only the fields present in req.
func (s *Service) UpdateUser(ctx context.Context, req domain.UserUpdateRequest) (domain.User, error) {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.User{}, err
	}
	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" {
		return domain.User{}, invalid("معرف المستخدم مطلوب")
	}
	if err := validateInput(req); err != nil {
		return domain.User{}, err
	}

	existing, err := s.repo.GetUserByID(ctx, req.ID)
	if err != nil {
		return domain.User{}, notFound(err, "المستخدم %s غير موجود", req.ID)
	}
	user := *existing
	if req.Username != nil {
		user.Username = strings.ToLower(strings.TrimSpace(*req.Username))
	}
	if req.Password != nil {
		hash, err := hashPassword(*req.Password)
		if err != nil {
			return domain.User{}, fmt.Errorf("failed to hash password: %w", err)
		}
		user.Password = hash
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.FullName != nil {
		user.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Email != nil {
		user.Email = strings.TrimSpace(*req.Email)
	}
	if req.Phone != nil {
		user.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	actor, _ := ActorFromContext(ctx)
	if actor.UserID == user.ID && (!user.IsActive || user.Role != domain.RoleAdmin) {
		return domain.User{}, invalid("لا يمكنك تعطيل حسابك أو تغيير صلاحيته")
	}

	updated, err := s.repo.UpdateUser(ctx, user)
	if err != nil {
		return domain.User{}, notFound(err, "المستخدم %s غير موجود", req.ID)
	}
	s.logAudit(ctx, "user_update", "user", updated.ID, logrus.Fields{
		"password_changed": req.Password != nil,
		"user_role":        updated.Role,
		"active":           updated.IsActive,
	})
	return *updated, nil
}

func (s *Service) DeactivateUser(ctx context.Context, id string) error {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return invalid("معرف المستخدم مطلوب")
	}
	if actor, _ := ActorFromContext(ctx); actor.UserID == id {
		return invalid("لا يمكنك تعطيل حسابك")
	}
	if err := s.repo.DeactivateUser(ctx, id); err != nil {
		return notFound(err, "المستخدم %s غير موجود", id)
	}
	s.logAudit(ctx, "user_deactivate", "user", id, nil)
	return nil
}

func (s *Service) GetUser(ctx context.Context, id string) (domain.User, error) {
	u, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return domain.User{}, notFound(err, "المستخدم %s غير موجود", id)
	}
	return *u, nil
}

// Authenticate checks a username and password. Accounts still holding a
// plain-text password are upgraded to bcrypt on their first good login.
func (s *Service) Authenticate(ctx context.Context, username string, password string) (domain.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || password == "" {
		return domain.User{}, ErrInvalidCredentials
	}

	user, err := s.repo.GetUserByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return domain.User{}, err
	}

	if isPasswordHash(user.Password) {
		if !verifyPassword(user.Password, password) {
			return domain.User{}, ErrInvalidCredentials
		}
	} else {
		if subtle.ConstantTimeCompare([]byte(user.Password), []byte(password)) != 1 {
			return domain.User{}, ErrInvalidCredentials
		}
		if err := s.upgradePassword(ctx, user, password); err != nil {
			logging.LogError(s.logger, "service", "Authenticate", "upgrade legacy password", user.ID, err)
		}
	}
	if !user.IsActive {
		return domain.User{}, ErrAccountInactive
	}

	at := s.now()
	if err := s.repo.UpdateLastLogin(ctx, user.ID, at); err != nil {
		logging.LogError(s.logger, "service", "Authenticate", "record last login", user.ID, err)
	} else {
		user.LastLogin = &at
	}
	return *user, nil
}

func (s *Service) upgradePassword(ctx context.Context, user *domain.User, password string) error {
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	upgraded := *user
	upgraded.Password = hash
	if _, err := s.repo.UpdateUser(ctx, upgraded); err != nil {
		return err
	}
	user.Password = hash
	return nil
}

// EnsureAdmin creates the admin account on first start. An existing account
// with that username is left untouched.
func (s *Service) EnsureAdmin(ctx context.Context, username string, password string) (bool, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || password == "" {
		return false, invalid("اسم المستخدم وكلمة المرور مطلوبان")
	}
	_, err := s.repo.GetUserByUsername(ctx, username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return false, err
	}

	hash, err := hashPassword(password)
	if err != nil {
		return false, fmt.Errorf("failed to hash password: %w", err)
	}
	created, err := s.repo.CreateUser(ctx, domain.User{
		Username: username,
		Password: hash,
		Role:     domain.RoleAdmin,
		FullName: "مدير النظام",
		IsActive: true,
	})
	if err != nil {
		return false, err
	}
	s.logAudit(ctx, "user_seed", "user", created.ID, logrus.Fields{"username": created.Username})
	return true, nil
}

// ResetPassword sets a new password and reactivates the account. It is an
// operator action with no actor check.
func (s *Service) ResetPassword(ctx context.Context, username string, password string) (domain.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if len(password) < 6 {
		return domain.User{}, invalid("كلمة المرور يجب أن تكون 6 أحرف على الأقل")
	}
	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return domain.User{}, notFound(err, "المستخدم %s غير موجود", username)
	}
	hash, err := hashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = hash
	user.IsActive = true
	updated, err := s.repo.UpdateUser(ctx, *user)
	if err != nil {
		return domain.User{}, err
	}
	s.logAudit(ctx, "password_reset", "user", updated.ID, nil)
	return *updated, nil
}
