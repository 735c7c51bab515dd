package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"mustawda/backend/internal/domain"
	"mustawda/backend/internal/inventory"
	"mustawda/backend/internal/ledger"
	"mustawda/backend/internal/store"
	"mustawda/backend/internal/xid"
)

func (s *Store) ListSales(ctx context.Context) ([]domain.Sale, error) {
	rows, err := s.db.QueryxContext(ctx, saleSelect+` ORDER BY sale_date DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	out := make([]domain.Sale, 0)
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		out = append(out, sale)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
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

func (s *Store) GetSaleByID(ctx context.Context, id string) (*domain.Sale, error) {
	sale, err := s.getSale(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if p, err := s.GetProductByID(ctx, sale.ProductID); err == nil {
		sale.Product = p
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	return sale, nil
}

func (s *Store) getSale(ctx context.Context, q sqlx.QueryerContext, id string) (*domain.Sale, error) {
	sale, err := scanSale(q.QueryRowxContext(ctx, s.db.Rebind(saleSelect+` WHERE id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load sale %s: %w", id, err)
	}
	return &sale, nil
}

// CreateCheckout records every cart line as a sale and decrements stock in a
// single transaction. Lines for the same product see the stock left by the
// lines before them. A debt checkout opens one debt for the whole cart,
// anchored to the first sale.
func (s *Store) CreateCheckout(ctx context.Context, checkout domain.Checkout) (*domain.CheckoutResult, error) {
	if len(checkout.Lines) == 0 {
		return nil, store.Errorf(store.ErrInvalidInput, "السلة فارغة")
	}
	saleDate := checkout.SaleDate
	if saleDate.IsZero() {
		saleDate = s.now()
	}
	paymentMethod := checkout.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = domain.PaymentCash
	}
	if paymentMethod == domain.PaymentDebt && checkout.DebtCustomerID == "" {
		return nil, store.Errorf(store.ErrInvalidInput, "يجب اختيار عميل الدين عند البيع بالآجل")
	}

	result := &domain.CheckoutResult{TransactionID: checkout.TransactionID}
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if paymentMethod == domain.PaymentDebt {
			n, err := countRows(ctx, tx, `SELECT count(*) FROM debt_customers WHERE id = ?`, checkout.DebtCustomerID)
			if err != nil {
				return fmt.Errorf("failed to check debt customer: %w", err)
			}
			if n == 0 {
				return store.Errorf(store.ErrNotFound, "عميل الدين %s غير موجود", checkout.DebtCustomerID)
			}
		}

		working := make(map[string]domain.Product)
		sales := make([]domain.Sale, 0, len(checkout.Lines))
		finals := make([]float64, 0, len(checkout.Lines))

		for _, line := range checkout.Lines {
			product, ok := working[line.ProductID]
			if !ok {
				loaded, err := s.lockProduct(ctx, tx, line.ProductID)
				if errors.Is(err, store.ErrNotFound) {
					return store.Errorf(store.ErrNotFound, "المنتج %s غير موجود", line.ProductID)
				}
				if err != nil {
					return err
				}
				product = *loaded
			}

			sale, err := inventory.BuildSale(xid.New("sale"), product, line, checkout, paymentMethod, saleDate)
			if err != nil {
				return err
			}
			amount := inventory.SoldAmount(product, line.Quantity, line.Weight)

			_, err = exec(ctx, tx, `INSERT INTO sales (`+salesColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				sale.ID, sale.ProductID, sale.SaleType, sale.Quantity, sale.Weight, sale.UnitPrice, sale.TotalPrice,
				sale.Discount, sale.FinalPrice, sale.CustomerName, sale.PaymentMethod,
				nullIfEmpty(sale.DebtCustomerID), nil, formatTime(sale.SaleDate))
			if err != nil {
				return fmt.Errorf("failed to record sale of %s: %w", product.Name, err)
			}

			product = inventory.ReduceStock(product, amount)
			if err := s.saveStock(ctx, tx, product); err != nil {
				return err
			}
			working[product.ID] = product
			sales = append(sales, sale)
			finals = append(finals, sale.FinalPrice)
		}

		total := inventory.Sum(finals...)
		if paymentMethod == domain.PaymentDebt {
			debt := ledger.NewDebt(xid.New("debt"), sales[0].ID, checkout.DebtCustomerID, total)
			debt.DueDate = checkout.DueDate
			if err := s.insertDebt(ctx, tx, debt, saleDate); err != nil {
				return err
			}
			for i := range sales {
				if _, err := exec(ctx, tx, `UPDATE sales SET debt_id = ? WHERE id = ?`, debt.ID, sales[i].ID); err != nil {
					return fmt.Errorf("failed to link sale %s to debt: %w", sales[i].ID, err)
				}
				sales[i].DebtID = debt.ID
			}
			result.DebtID = debt.ID
		}

		result.SalesCount = len(sales)
		result.TotalAmount = total
		result.Sales = sales
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
