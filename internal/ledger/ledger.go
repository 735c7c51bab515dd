package ledger

import (
	"github.com/shopspring/decimal"

	"mustawda/backend/internal/domain"
	"mustawda/backend/internal/store"
)

// Status derives a debt status from its balances.
func Status(amountPaid, amountRemaining float64) string {
	if amountRemaining <= 0 {
		return domain.DebtPaid
	}
	if amountPaid > 0 {
		return domain.DebtPartial
	}
	return domain.DebtUnpaid
}

// NewDebt opens an unpaid debt for the full amount.
func NewDebt(id, saleID, customerID string, total float64) domain.Debt {
	return domain.Debt{
		ID:              id,
		SaleID:          saleID,
		CustomerID:      customerID,
		TotalAmount:     total,
		AmountPaid:      0,
		AmountRemaining: total,
		Status:          Status(0, total),
	}
}

// ApplyPayment moves amount from remaining to paid. The amount must be
// positive and may not exceed the remaining balance.
func ApplyPayment(debt domain.Debt, amount float64) (domain.Debt, error) {
	if amount <= 0 {
		return domain.Debt{}, store.Errorf(store.ErrInvalidInput, "مبلغ الدفعة يجب أن يكون أكبر من صفر")
	}
	if debt.Status == domain.DebtPaid || debt.AmountRemaining <= 0 {
		return domain.Debt{}, store.Errorf(store.ErrInvalidInput, "هذا الدين مسدد بالكامل")
	}

	pay := decimal.NewFromFloat(amount)
	remaining := decimal.NewFromFloat(debt.AmountRemaining)
	if pay.GreaterThan(remaining) {
		return domain.Debt{}, store.Errorf(store.ErrInvalidInput, "مبلغ الدفعة (%s) أكبر من المبلغ المتبقي (%s)", pay.String(), remaining.String())
	}

	out := debt
	paid := decimal.NewFromFloat(debt.AmountPaid).Add(pay)
	left := remaining.Sub(pay)
	out.AmountPaid = paid.InexactFloat64()
	out.AmountRemaining = left.InexactFloat64()
	out.Status = Status(out.AmountPaid, out.AmountRemaining)
	return out, nil
}

// Reconcile recomputes remaining and status from total and paid. Used when
// loading balances written by older schemas.
func Reconcile(debt domain.Debt) domain.Debt {
	out := debt
	left := decimal.NewFromFloat(debt.TotalAmount).Sub(decimal.NewFromFloat(debt.AmountPaid))
	if left.IsNegative() {
		left = decimal.Zero
	}
	out.AmountRemaining = left.InexactFloat64()
	out.Status = Status(out.AmountPaid, out.AmountRemaining)
	return out
}
