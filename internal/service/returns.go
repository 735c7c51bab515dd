package service

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"mustawda/backend/internal/domain"
)

func (s *Service) ListReturns(ctx context.Context, saleID string) ([]domain.Return, error) {
	saleID = strings.TrimSpace(saleID)
	if saleID != "" {
		return s.repo.ListReturnsBySale(ctx, saleID)
	}
	return s.repo.ListReturns(ctx)
}

func (s *Service) CreateReturn(ctx context.Context, req domain.ReturnRequest) (domain.Return, error) {
	req.SaleID = strings.TrimSpace(req.SaleID)
	if err := validateInput(req); err != nil {
		return domain.Return{}, err
	}
	if req.ReturnedQuantity <= 0 && req.ReturnedWeight <= 0 {
		return domain.Return{}, invalid("يجب تحديد الكمية أو الوزن المرتجع")
	}

	ret := domain.Return{
		SaleID:           req.SaleID,
		ReturnedQuantity: req.ReturnedQuantity,
		ReturnedWeight:   req.ReturnedWeight,
		Reason:           strings.TrimSpace(req.Reason),
		ProcessedBy:      defaultString(req.ProcessedBy, actorName(ctx)),
		ReturnDate:       s.now(),
	}
	created, err := s.repo.CreateReturn(ctx, ret)
	if err != nil {
		return domain.Return{}, err
	}

	s.logAudit(ctx, "return_create", "return", created.ID, logrus.Fields{
		"sale_id": created.SaleID,
		"refund":  created.TotalRefund,
	})
	return *created, nil
}

func (s *Service) ListSales(ctx context.Context) ([]domain.Sale, error) {
	return s.repo.ListSales(ctx)
}

func (s *Service) GetSale(ctx context.Context, id string) (domain.Sale, error) {
	sale, err := s.repo.GetSaleByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Sale{}, notFound(err, "عملية البيع %s غير موجودة", id)
	}
	return *sale, nil
}
