package service

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"mustawda/backend/internal/domain"
)

func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) GetCategory(ctx context.Context, id string) (domain.Category, error) {
	c, err := s.repo.GetCategoryByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Category{}, notFound(err, "الفئة %s غير موجودة", id)
	}
	return *c, nil
}

func (s *Service) CreateCategory(ctx context.Context, req domain.CategoryInput) (domain.Category, error) {
	category, err := categoryFromInput(req)
	if err != nil {
		return domain.Category{}, err
	}
	created, err := s.repo.CreateCategory(ctx, category)
	if err != nil {
		return domain.Category{}, err
	}
	s.logAudit(ctx, "category_create", "category", created.ID, logrus.Fields{"subcategories": len(created.Subcategories)})
	return *created, nil
}

// UpdateCategory replaces the subcategory list with the one in req.
func (s *Service) UpdateCategory(ctx context.Context, id string, req domain.CategoryInput) (domain.Category, error) {
	category, err := categoryFromInput(req)
	if err != nil {
		return domain.Category{}, err
	}
	category.ID = strings.TrimSpace(id)
	updated, err := s.repo.UpdateCategory(ctx, category)
	if err != nil {
		return domain.Category{}, notFound(err, "الفئة %s غير موجودة", id)
	}
	s.logAudit(ctx, "category_update", "category", updated.ID, logrus.Fields{"subcategories": len(updated.Subcategories)})
	return *updated, nil
}

func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return notFound(err, "الفئة %s غير موجودة", id)
	}
	s.logAudit(ctx, "category_delete", "category", id, nil)
	return nil
}

func categoryFromInput(req domain.CategoryInput) (domain.Category, error) {
	if err := validateInput(req); err != nil {
		return domain.Category{}, err
	}

	seen := make(map[string]bool, len(req.Subcategories))
	subs := make([]domain.Subcategory, 0, len(req.Subcategories))
	for _, sc := range req.Subcategories {
		name := strings.TrimSpace(sc.Name)
		if seen[name] {
			return domain.Category{}, invalid("الفئة الفرعية %q مكررة", name)
		}
		seen[name] = true
		subs = append(subs, domain.Subcategory{
			ID:          strings.TrimSpace(sc.ID),
			Name:        name,
			Description: strings.TrimSpace(sc.Description),
		})
	}
	return domain.Category{
		Name:          strings.TrimSpace(req.Name),
		Description:   strings.TrimSpace(req.Description),
		Subcategories: subs,
	}, nil
}
