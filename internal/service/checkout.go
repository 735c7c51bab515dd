package service

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"mustawda/backend/internal/domain"
	"mustawda/backend/internal/xid"
)

// Checkout validates a cart and hands it to the repository, which prices and
// records every line atomically against locked stock.
func (s *Service) Checkout(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutResult, error) {
	if len(req.Items) == 0 {
		return domain.CheckoutResult{}, invalid("السلة فارغة")
	}
	req.PaymentMethod = defaultString(req.PaymentMethod, domain.PaymentCash)
	req.DebtCustomerID = strings.TrimSpace(req.DebtCustomerID)
	if req.PaymentMethod == domain.PaymentDebt && req.DebtCustomerID == "" {
		return domain.CheckoutResult{}, invalid("يجب اختيار عميل الدين عند البيع بالآجل")
	}
	if err := validateInput(req); err != nil {
		return domain.CheckoutResult{}, err
	}

	lines := make([]domain.CartLine, 0, len(req.Items))
	for _, item := range req.Items {
		item.ProductID = strings.TrimSpace(item.ProductID)
		item.SaleType = defaultString(item.SaleType, domain.SaleTypeRetail)
		lines = append(lines, item)
	}

	transactionID := strings.TrimSpace(req.TransactionID)
	if transactionID == "" {
		transactionID = xid.New("txn")
	}
	checkout := domain.Checkout{
		TransactionID: transactionID,
		Lines:         lines,
		PaymentMethod: req.PaymentMethod,
		CustomerName:  strings.TrimSpace(req.CustomerName),
		DueDate:       req.DueDate,
		SaleDate:      s.now(),
	}
	if req.PaymentMethod == domain.PaymentDebt {
		checkout.DebtCustomerID = req.DebtCustomerID
	}

	result, err := s.repo.CreateCheckout(ctx, checkout)
	if err != nil {
		return domain.CheckoutResult{}, err
	}

	s.logAudit(ctx, "checkout", "transaction", result.TransactionID, logrus.Fields{
		"sales":          result.SalesCount,
		"total":          result.TotalAmount,
		"payment_method": checkout.PaymentMethod,
		"debt_id":        result.DebtID,
	})
	return *result, nil
}
