package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mustawda/backend/internal/domain"
	"mustawda/backend/internal/store"
	"mustawda/backend/internal/xid"
)

func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := s.db.QueryxContext(ctx, userSelect+` ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	out := make([]domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return s.getUser(ctx, "id", id)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.getUser(ctx, "username", username)
}

func (s *Store) getUser(ctx context.Context, column, value string) (*domain.User, error) {
	u, err := scanUser(s.db.QueryRowxContext(ctx, s.db.Rebind(userSelect+` WHERE `+column+` = ?`), value))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", value, err)
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.User) (*domain.User, error) {
	now := s.now()
	if user.ID == "" {
		user.ID = xid.New("user")
	}
	if user.Role == "" {
		user.Role = domain.RoleUser
	}
	_, err := exec(ctx, s.db, `INSERT INTO users (id, username, password, role, full_name, email, phone, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.Password, user.Role, user.FullName, user.Email, user.Phone,
		boolToInt(user.IsActive), formatTime(now), formatTime(now))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.Errorf(store.ErrConflict, "اسم المستخدم %q مستخدم مسبقاً", user.Username)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return s.GetUserByID(ctx, user.ID)
}

func (s *Store) UpdateUser(ctx context.Context, user domain.User) (*domain.User, error) {
	affected, err := exec(ctx, s.db, `UPDATE users SET username = ?, password = ?, role = ?, full_name = ?, email = ?,
		phone = ?, is_active = ?, updated_at = ? WHERE id = ?`,
		user.Username, user.Password, user.Role, user.FullName, user.Email,
		user.Phone, boolToInt(user.IsActive), formatTime(s.now()), user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.Errorf(store.ErrConflict, "اسم المستخدم %q مستخدم مسبقاً", user.Username)
		}
		return nil, fmt.Errorf("failed to update user %s: %w", user.ID, err)
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetUserByID(ctx, user.ID)
}

// DeactivateUser is the only way users leave; rows are never deleted.
func (s *Store) DeactivateUser(ctx context.Context, id string) error {
	affected, err := exec(ctx, s.db, `UPDATE users SET is_active = 0, updated_at = ? WHERE id = ?`, formatTime(s.now()), id)
	if err != nil {
		return fmt.Errorf("failed to deactivate user %s: %w", id, err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	affected, err := exec(ctx, s.db, `UPDATE users SET last_login = ? WHERE id = ?`, formatTime(at), id)
	if err != nil {
		return fmt.Errorf("failed to record login of user %s: %w", id, err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
