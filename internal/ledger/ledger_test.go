package ledger

import (
	"errors"
	"testing"

	"mustawda/backend/internal/domain"
	"mustawda/backend/internal/store"
)

func TestApplyPaymentTransitions(t *testing.T) {
	debt := NewDebt("debt-1", "sale-1", "cust-1", 950)
	if debt.Status != domain.DebtUnpaid {
		t.Fatalf("expected unpaid, got %s", debt.Status)
	}

	partial, err := ApplyPayment(debt, 400.5)
	if err != nil {
		t.Fatalf("apply payment: %v", err)
	}
	if partial.Status != domain.DebtPartial {
		t.Fatalf("expected partial, got %s", partial.Status)
	}
	if partial.AmountPaid+partial.AmountRemaining != partial.TotalAmount {
		t.Fatalf("balance invariant broken: %+v", partial)
	}
	if partial.AmountRemaining != 549.5 {
		t.Fatalf("expected 549.5 remaining, got %v", partial.AmountRemaining)
	}

	paid, err := ApplyPayment(partial, 549.5)
	if err != nil {
		t.Fatalf("apply final payment: %v", err)
	}
	if paid.Status != domain.DebtPaid || paid.AmountRemaining != 0 || paid.AmountPaid != 950 {
		t.Fatalf("expected fully paid debt, got %+v", paid)
	}

	if _, err := ApplyPayment(paid, 1); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected paid debt to reject payments, got %v", err)
	}
}

func TestApplyPaymentRejectsInvalidAmounts(t *testing.T) {
	debt := NewDebt("debt-1", "sale-1", "cust-1", 100)
	for _, amount := range []float64{0, -5, 100.01} {
		if _, err := ApplyPayment(debt, amount); !errors.Is(err, store.ErrInvalidInput) {
			t.Fatalf("amount %v: expected invalid input, got %v", amount, err)
		}
	}
}

func TestReconcileClampsOverpaidLegacyRows(t *testing.T) {
	got := Reconcile(domain.Debt{TotalAmount: 100, AmountPaid: 120})
	if got.AmountRemaining != 0 || got.Status != domain.DebtPaid {
		t.Fatalf("expected paid with zero remaining, got %+v", got)
	}
}
