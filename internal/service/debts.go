package service

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/ttacon/libphonenumber"

	"mustawda/backend/internal/domain"
)

func (s *Service) ListDebtCustomers(ctx context.Context) ([]domain.DebtCustomer, error) {
	return s.repo.ListDebtCustomers(ctx)
}

func (s *Service) GetDebtCustomer(ctx context.Context, id string) (domain.DebtCustomer, error) {
	c, err := s.repo.GetDebtCustomerByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.DebtCustomer{}, notFound(err, "عميل الدين %s غير موجود", id)
	}
	return *c, nil
}

func (s *Service) CreateDebtCustomer(ctx context.Context, req domain.DebtCustomerInput) (domain.DebtCustomer, error) {
	customer, err := s.customerFromInput(req)
	if err != nil {
		return domain.DebtCustomer{}, err
	}
	created, err := s.repo.CreateDebtCustomer(ctx, customer)
	if err != nil {
		return domain.DebtCustomer{}, err
	}
	s.logAudit(ctx, "debt_customer_create", "debt_customer", created.ID, nil)
	return *created, nil
}

func (s *Service) UpdateDebtCustomer(ctx context.Context, id string, req domain.DebtCustomerInput) (domain.DebtCustomer, error) {
	customer, err := s.customerFromInput(req)
	if err != nil {
		return domain.DebtCustomer{}, err
	}
	customer.ID = strings.TrimSpace(id)
	updated, err := s.repo.UpdateDebtCustomer(ctx, customer)
	if err != nil {
		return domain.DebtCustomer{}, notFound(err, "عميل الدين %s غير موجود", id)
	}
	s.logAudit(ctx, "debt_customer_update", "debt_customer", updated.ID, nil)
	return *updated, nil
}

func (s *Service) DeleteDebtCustomer(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if err := s.repo.DeleteDebtCustomer(ctx, id); err != nil {
		return notFound(err, "عميل الدين %s غير موجود", id)
	}
	s.logAudit(ctx, "debt_customer_delete", "debt_customer", id, nil)
	return nil
}

func (s *Service) customerFromInput(req domain.DebtCustomerInput) (domain.DebtCustomer, error) {
	if err := validateInput(req); err != nil {
		return domain.DebtCustomer{}, err
	}
	phone, err := s.normalizePhone(req.Phone)
	if err != nil {
		return domain.DebtCustomer{}, err
	}
	return domain.DebtCustomer{
		Name:    strings.TrimSpace(req.Name),
		Phone:   phone,
		Address: strings.TrimSpace(req.Address),
	}, nil
}

// normalizePhone stores numbers in E.164 so the same customer is not entered
// twice with different spellings. Local numbers are read in the configured
// region.
func (s *Service) normalizePhone(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	num, err := libphonenumber.Parse(raw, s.phoneRegion)
	if err != nil || !libphonenumber.IsValidNumber(num) {
		return "", invalid("رقم الهاتف %s غير صالح", raw)
	}
	return libphonenumber.Format(num, libphonenumber.E164), nil
}

func (s *Service) ListDebts(ctx context.Context, filter domain.DebtFilter) ([]domain.Debt, error) {
	filter.CustomerID = strings.TrimSpace(filter.CustomerID)
	filter.Status = strings.TrimSpace(filter.Status)
	switch filter.Status {
	case "", domain.DebtUnpaid, domain.DebtPartial, domain.DebtPaid:
	default:
		return nil, invalid("حالة الدين %q غير معروفة", filter.Status)
	}
	return s.repo.ListDebts(ctx, filter)
}

func (s *Service) GetDebt(ctx context.Context, id string) (domain.Debt, error) {
	d, err := s.repo.GetDebtByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Debt{}, notFound(err, "الدين %s غير موجود", id)
	}
	return *d, nil
}

func (s *Service) AddDebtPayment(ctx context.Context, debtID string, req domain.DebtPaymentRequest) (domain.DebtPaymentResult, error) {
	if err := validateInput(req); err != nil {
		return domain.DebtPaymentResult{}, err
	}

	payment := domain.DebtPayment{
		DebtID:        strings.TrimSpace(debtID),
		Amount:        req.Amount,
		PaymentMethod: defaultString(req.PaymentMethod, domain.PaymentCash),
		Notes:         strings.TrimSpace(req.Notes),
		PaymentDate:   s.now(),
	}
	if req.PaymentDate != nil && !req.PaymentDate.IsZero() {
		payment.PaymentDate = req.PaymentDate.UTC()
	}

	result, err := s.repo.ApplyDebtPayment(ctx, payment)
	if err != nil {
		return domain.DebtPaymentResult{}, notFound(err, "الدين %s غير موجود", debtID)
	}

	s.logAudit(ctx, "debt_payment", "debt", result.Debt.ID, logrus.Fields{
		"amount":    result.Payment.Amount,
		"remaining": result.Debt.AmountRemaining,
		"status":    result.Debt.Status,
	})
	return *result, nil
}
