package service

import (
	"context"

	"mustawda/backend/internal/domain"
	"mustawda/backend/internal/stats"
)

// Dashboard recomputes every metric from the full data set.
func (s *Service) Dashboard(ctx context.Context) (domain.DashboardStats, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return domain.DashboardStats{}, err
	}
	sales, err := s.repo.ListSales(ctx)
	if err != nil {
		return domain.DashboardStats{}, err
	}
	returns, err := s.repo.ListReturns(ctx)
	if err != nil {
		return domain.DashboardStats{}, err
	}
	debts, err := s.repo.ListDebts(ctx, domain.DebtFilter{})
	if err != nil {
		return domain.DashboardStats{}, err
	}

	return stats.Compute(stats.Input{
		Products: products,
		Sales:    sales,
		Returns:  returns,
		Debts:    debts,
	}, s.now().In(s.loc)), nil
}
