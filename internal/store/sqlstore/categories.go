package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"mustawda/backend/internal/domain"
	"mustawda/backend/internal/store"
	"mustawda/backend/internal/xid"
)

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.db.QueryxContext(ctx, categorySelect+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	out := make([]domain.Category, 0)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	subs, err := s.listSubcategories(ctx, s.db, "")
	if err != nil {
		return nil, err
	}
	byCategory := make(map[string][]domain.Subcategory)
	for _, sc := range subs {
		byCategory[sc.CategoryID] = append(byCategory[sc.CategoryID], sc)
	}
	for i := range out {
		if list, ok := byCategory[out[i].ID]; ok {
			out[i].Subcategories = list
		}
	}
	return out, nil
}

func (s *Store) GetCategoryByID(ctx context.Context, id string) (*domain.Category, error) {
	return s.getCategory(ctx, s.db, id)
}

func (s *Store) getCategory(ctx context.Context, q sqlx.QueryerContext, id string) (*domain.Category, error) {
	c, err := scanCategory(q.QueryRowxContext(ctx, s.db.Rebind(categorySelect+` WHERE id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load category %s: %w", id, err)
	}
	subs, err := s.listSubcategories(ctx, q, id)
	if err != nil {
		return nil, err
	}
	c.Subcategories = subs
	return &c, nil
}

func (s *Store) listSubcategories(ctx context.Context, q sqlx.QueryerContext, categoryID string) ([]domain.Subcategory, error) {
	query := subcategorySelect + ` ORDER BY name`
	var args []any
	if categoryID != "" {
		query = subcategorySelect + ` WHERE category_id = ? ORDER BY name`
		args = append(args, categoryID)
	}
	rows, err := q.QueryxContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list subcategories: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Subcategory, 0)
	for rows.Next() {
		sc, err := scanSubcategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (s *Store) CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	now := s.now()
	if category.ID == "" {
		category.ID = xid.New("cat")
	}
	var created *domain.Category
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := exec(ctx, tx, `INSERT INTO categories (id, name, description, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			category.ID, category.Name, category.Description, formatTime(now), formatTime(now))
		if err != nil {
			if isUniqueViolation(err) {
				return store.Errorf(store.ErrConflict, "الفئة %q موجودة مسبقاً", category.Name)
			}
			return fmt.Errorf("failed to create category: %w", err)
		}
		if err := s.insertSubcategories(ctx, tx, category.ID, category.Subcategories); err != nil {
			return err
		}
		created, err = s.getCategory(ctx, tx, category.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateCategory replaces the category's subcategories wholesale. Supplied
// subcategory ids are kept so clients can round-trip them.
func (s *Store) UpdateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	var updated *domain.Category
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		affected, err := exec(ctx, tx, `UPDATE categories SET name = ?, description = ?, updated_at = ? WHERE id = ?`,
			category.Name, category.Description, formatTime(s.now()), category.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return store.Errorf(store.ErrConflict, "الفئة %q موجودة مسبقاً", category.Name)
			}
			return fmt.Errorf("failed to update category %s: %w", category.ID, err)
		}
		if affected == 0 {
			return store.ErrNotFound
		}
		if _, err := exec(ctx, tx, `DELETE FROM subcategories WHERE category_id = ?`, category.ID); err != nil {
			return fmt.Errorf("failed to clear subcategories of %s: %w", category.ID, err)
		}
		if err := s.insertSubcategories(ctx, tx, category.ID, category.Subcategories); err != nil {
			return err
		}
		updated, err = s.getCategory(ctx, tx, category.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Store) insertSubcategories(ctx context.Context, tx *sqlx.Tx, categoryID string, subs []domain.Subcategory) error {
	for _, sc := range subs {
		id := sc.ID
		if id == "" {
			id = xid.New("sub")
		}
		_, err := exec(ctx, tx, `INSERT INTO subcategories (id, category_id, name, description) VALUES (?, ?, ?, ?)`,
			id, categoryID, sc.Name, sc.Description)
		if err != nil {
			if isUniqueViolation(err) {
				return store.Errorf(store.ErrConflict, "الفئة الفرعية %s مستخدمة في فئة أخرى", id)
			}
			return fmt.Errorf("failed to insert subcategory %q: %w", sc.Name, err)
		}
	}
	return nil
}

func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := exec(ctx, tx, `DELETE FROM subcategories WHERE category_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete subcategories of %s: %w", id, err)
		}
		affected, err := exec(ctx, tx, `DELETE FROM categories WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete category %s: %w", id, err)
		}
		if affected == 0 {
			return store.ErrNotFound
		}
		return nil
	})
}
