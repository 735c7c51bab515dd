package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"mustawda/backend/internal/domain"
	"mustawda/backend/internal/inventory"
	"mustawda/backend/internal/store"
	"mustawda/backend/internal/xid"
)

func (s *Store) ListReturns(ctx context.Context) ([]domain.Return, error) {
	return s.listReturns(ctx, "")
}

func (s *Store) ListReturnsBySale(ctx context.Context, saleID string) ([]domain.Return, error) {
	return s.listReturns(ctx, saleID)
}

func (s *Store) listReturns(ctx context.Context, saleID string) ([]domain.Return, error) {
	out, err := s.queryReturns(ctx, s.db, saleID)
	if err != nil {
		return nil, err
	}
	products, err := s.productIndex(ctx)
	if err != nil {
		return nil, err
	}
	for i := range out {
		if p, ok := products[out[i].ProductID]; ok {
			out[i].Product = &p
		}
	}
	return out, nil
}

func (s *Store) queryReturns(ctx context.Context, q sqlx.QueryerContext, saleID string) ([]domain.Return, error) {
	query := returnSelect + ` ORDER BY return_date DESC`
	var args []any
	if saleID != "" {
		query = returnSelect + ` WHERE sale_id = ? ORDER BY return_date DESC`
		args = append(args, saleID)
	}
	rows, err := q.QueryxContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list returns: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Return, 0)
	for rows.Next() {
		r, err := scanReturn(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CreateReturn restores stock for part of a sale. The running total of
// returned amounts for a sale may never exceed what was sold. The refund is
// priced at the sale's unit price.
func (s *Store) CreateReturn(ctx context.Context, ret domain.Return) (*domain.Return, error) {
	if ret.ID == "" {
		ret.ID = xid.New("ret")
	}
	if ret.ReturnDate.IsZero() {
		ret.ReturnDate = s.now()
	}

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		sale, err := s.getSale(ctx, tx, ret.SaleID)
		if errors.Is(err, store.ErrNotFound) {
			return store.Errorf(store.ErrNotFound, "عملية البيع %s غير موجودة", ret.SaleID)
		}
		if err != nil {
			return err
		}
		product, err := s.lockProduct(ctx, tx, sale.ProductID)
		if errors.Is(err, store.ErrNotFound) {
			return store.Errorf(store.ErrNotFound, "المنتج %s غير موجود", sale.ProductID)
		}
		if err != nil {
			return err
		}

		previous, err := s.queryReturns(ctx, tx, sale.ID)
		if err != nil {
			return err
		}
		checked, err := inventory.PrepareReturn(*product, *sale, previous, ret)
		if err != nil {
			return err
		}
		ret = checked

		_, err = exec(ctx, tx, `INSERT INTO returns (id, sale_id, product_id, returned_quantity, returned_weight,
			unit_price, total_refund, reason, processed_by, return_date) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			ret.ID, ret.SaleID, ret.ProductID, ret.ReturnedQuantity, ret.ReturnedWeight,
			ret.UnitPrice, ret.TotalRefund, ret.Reason, ret.ProcessedBy, formatTime(ret.ReturnDate))
		if err != nil {
			return fmt.Errorf("failed to record return for sale %s: %w", sale.ID, err)
		}

		amount := inventory.SoldAmount(*product, ret.ReturnedQuantity, ret.ReturnedWeight)
		return s.saveStock(ctx, tx, inventory.IncreaseStock(*product, amount))
	})
	if err != nil {
		return nil, err
	}
	return &ret, nil
}
