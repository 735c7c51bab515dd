package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"mustawda/backend/internal/domain"
	"mustawda/backend/internal/ledger"
	"mustawda/backend/internal/store"
	"mustawda/backend/internal/xid"
)

func (s *Store) ListDebtCustomers(ctx context.Context) ([]domain.DebtCustomer, error) {
	rows, err := s.db.QueryxContext(ctx, debtCustomerSelect+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list debt customers: %w", err)
	}
	defer rows.Close()

	out := make([]domain.DebtCustomer, 0)
	for rows.Next() {
		c, err := scanDebtCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) GetDebtCustomerByID(ctx context.Context, id string) (*domain.DebtCustomer, error) {
	c, err := scanDebtCustomer(s.db.QueryRowxContext(ctx, s.db.Rebind(debtCustomerSelect+` WHERE id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load debt customer %s: %w", id, err)
	}
	return &c, nil
}

func (s *Store) CreateDebtCustomer(ctx context.Context, customer domain.DebtCustomer) (*domain.DebtCustomer, error) {
	now := s.now()
	if customer.ID == "" {
		customer.ID = xid.New("cust")
	}
	_, err := exec(ctx, s.db, `INSERT INTO debt_customers (id, name, phone, address, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		customer.ID, customer.Name, customer.Phone, customer.Address, formatTime(now), formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("failed to create debt customer: %w", err)
	}
	return s.GetDebtCustomerByID(ctx, customer.ID)
}

func (s *Store) UpdateDebtCustomer(ctx context.Context, customer domain.DebtCustomer) (*domain.DebtCustomer, error) {
	affected, err := exec(ctx, s.db, `UPDATE debt_customers SET name = ?, phone = ?, address = ?, updated_at = ? WHERE id = ?`,
		customer.Name, customer.Phone, customer.Address, formatTime(s.now()), customer.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update debt customer %s: %w", customer.ID, err)
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetDebtCustomerByID(ctx, customer.ID)
}

// DeleteDebtCustomer is refused while any debt still points at the customer.
func (s *Store) DeleteDebtCustomer(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		debts, err := countRows(ctx, tx, `SELECT count(*) FROM debts WHERE customer_id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to count debts of customer %s: %w", id, err)
		}
		if debts > 0 {
			return store.Errorf(store.ErrConflict, "لا يمكن حذف العميل لوجود %d دين مرتبط به", debts)
		}
		affected, err := exec(ctx, tx, `DELETE FROM debt_customers WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete debt customer %s: %w", id, err)
		}
		if affected == 0 {
			return store.ErrNotFound
		}
		return nil
	})
}

func (s *Store) insertDebt(ctx context.Context, tx *sqlx.Tx, debt domain.Debt, at time.Time) error {
	_, err := exec(ctx, tx, `INSERT INTO debts (id, sale_id, customer_id, total_amount, amount_paid, amount_remaining,
		status, due_date, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		debt.ID, debt.SaleID, debt.CustomerID, debt.TotalAmount, debt.AmountPaid, debt.AmountRemaining,
		debt.Status, nullTime(debt.DueDate), formatTime(at), formatTime(at))
	if err != nil {
		return fmt.Errorf("failed to create debt: %w", err)
	}
	return nil
}

func (s *Store) ListDebts(ctx context.Context, filter domain.DebtFilter) ([]domain.Debt, error) {
	var where []string
	var args []any
	if filter.CustomerID != "" {
		where = append(where, "customer_id = ?")
		args = append(args, filter.CustomerID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	query := debtSelect
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryxContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list debts: %w", err)
	}
	out := make([]domain.Debt, 0)
	for rows.Next() {
		d, err := scanDebt(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	customers, err := s.ListDebtCustomers(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.DebtCustomer, len(customers))
	for _, c := range customers {
		byID[c.ID] = c
	}
	for i := range out {
		if c, ok := byID[out[i].CustomerID]; ok {
			out[i].Customer = &c
		}
	}
	return out, nil
}

func (s *Store) GetDebtByID(ctx context.Context, id string) (*domain.Debt, error) {
	debt, err := s.getDebt(ctx, s.db, id, false)
	if err != nil {
		return nil, err
	}
	if c, err := s.GetDebtCustomerByID(ctx, debt.CustomerID); err == nil {
		debt.Customer = c
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	payments, err := s.ListDebtPayments(ctx, id)
	if err != nil {
		return nil, err
	}
	debt.Payments = payments
	return debt, nil
}

func (s *Store) getDebt(ctx context.Context, q sqlx.QueryerContext, id string, lock bool) (*domain.Debt, error) {
	query := debtSelect + ` WHERE id = ?`
	if lock {
		query += s.dialect.forUpdate
	}
	d, err := scanDebt(q.QueryRowxContext(ctx, s.db.Rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load debt %s: %w", id, err)
	}
	return &d, nil
}

func (s *Store) ListDebtPayments(ctx context.Context, debtID string) ([]domain.DebtPayment, error) {
	rows, err := s.db.QueryxContext(ctx, s.db.Rebind(debtPaymentSelect+` WHERE debt_id = ? ORDER BY payment_date`), debtID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments of debt %s: %w", debtID, err)
	}
	defer rows.Close()

	out := make([]domain.DebtPayment, 0)
	for rows.Next() {
		p, err := scanDebtPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ApplyDebtPayment records a payment and moves the debt balance in one
// transaction.
func (s *Store) ApplyDebtPayment(ctx context.Context, payment domain.DebtPayment) (*domain.DebtPaymentResult, error) {
	now := s.now()
	if payment.ID == "" {
		payment.ID = xid.New("pay")
	}
	if payment.PaymentDate.IsZero() {
		payment.PaymentDate = now
	}
	if payment.PaymentMethod == "" {
		payment.PaymentMethod = domain.PaymentCash
	}

	var result *domain.DebtPaymentResult
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		debt, err := s.getDebt(ctx, tx, payment.DebtID, true)
		if errors.Is(err, store.ErrNotFound) {
			return store.Errorf(store.ErrNotFound, "الدين %s غير موجود", payment.DebtID)
		}
		if err != nil {
			return err
		}

		updated, err := ledger.ApplyPayment(*debt, payment.Amount)
		if err != nil {
			return err
		}
		updated.UpdatedAt = now

		_, err = exec(ctx, tx, `UPDATE debts SET amount_paid = ?, amount_remaining = ?, status = ?, updated_at = ? WHERE id = ?`,
			updated.AmountPaid, updated.AmountRemaining, updated.Status, formatTime(now), updated.ID)
		if err != nil {
			return fmt.Errorf("failed to update debt %s: %w", updated.ID, err)
		}
		_, err = exec(ctx, tx, `INSERT INTO debt_payments (id, debt_id, amount, payment_date, payment_method, notes) VALUES (?, ?, ?, ?, ?, ?)`,
			payment.ID, payment.DebtID, payment.Amount, formatTime(payment.PaymentDate), payment.PaymentMethod, payment.Notes)
		if err != nil {
			return fmt.Errorf("failed to record payment for debt %s: %w", payment.DebtID, err)
		}

		result = &domain.DebtPaymentResult{Debt: updated, Payment: payment}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
