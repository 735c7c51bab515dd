package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"mustawda/backend/internal/backup"
	"mustawda/backend/internal/domain"
)

func (s *Service) ExportBackup(ctx context.Context) (domain.BackupDocument, error) {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.BackupDocument{}, err
	}
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return domain.BackupDocument{}, err
	}
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return domain.BackupDocument{}, err
	}
	sales, err := s.repo.ListSales(ctx)
	if err != nil {
		return domain.BackupDocument{}, err
	}
	for i := range sales {
		sales[i].Product = nil
	}

	return domain.BackupDocument{
		Products:   products,
		Categories: categories,
		Sales:      sales,
		ExportDate: s.now().In(s.loc),
	}, nil
}

func (s *Service) WriteBackup(ctx context.Context, w *backup.Writer) (domain.BackupResult, error) {
	doc, err := s.ExportBackup(ctx)
	if err != nil {
		return domain.BackupResult{}, err
	}
	path, err := w.Write(doc)
	if err != nil {
		return domain.BackupResult{}, err
	}

	s.logAudit(ctx, "backup_write", "backup", path, logrus.Fields{
		"products":   len(doc.Products),
		"categories": len(doc.Categories),
		"sales":      len(doc.Sales),
	})
	return domain.BackupResult{
		Success:    true,
		Path:       path,
		Products:   len(doc.Products),
		Categories: len(doc.Categories),
		Sales:      len(doc.Sales),
	}, nil
}
