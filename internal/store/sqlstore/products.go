package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"mustawda/backend/internal/domain"
	"mustawda/backend/internal/store"
	"mustawda/backend/internal/xid"
)

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryxContext(ctx, productSelect+` ORDER BY created_at DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	return s.getProduct(ctx, s.db, "id", id, false)
}

func (s *Store) GetProductByBarcode(ctx context.Context, barcode string) (*domain.Product, error) {
	if barcode == "" {
		return nil, store.ErrNotFound
	}
	return s.getProduct(ctx, s.db, "barcode", barcode, false)
}

// lockProduct reads a product inside tx, holding a row lock where the engine
// supports one.
func (s *Store) lockProduct(ctx context.Context, tx *sqlx.Tx, id string) (*domain.Product, error) {
	return s.getProduct(ctx, tx, "id", id, true)
}

func (s *Store) getProduct(ctx context.Context, q sqlx.QueryerContext, column, value string, lock bool) (*domain.Product, error) {
	query := productSelect + ` WHERE ` + column + ` = ? LIMIT 1`
	if lock {
		query += s.dialect.forUpdate
	}
	p, err := scanProduct(q.QueryRowxContext(ctx, s.db.Rebind(query), value))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load product %s: %w", value, err)
	}
	return &p, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	now := s.now()
	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	if product.UpdatedAt.IsZero() {
		product.UpdatedAt = now
	}

	_, err := exec(ctx, s.db, `INSERT INTO products (id, name, description, category, subcategory, measurement_type,
		wholesale_cost_price, wholesale_price, sale_price, discount, quantity, min_quantity, weight, min_weight,
		weight_unit, currency, barcode, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		product.ID, product.Name, product.Description, product.Category, product.Subcategory, product.MeasurementType,
		product.WholesaleCostPrice, product.WholesalePrice, product.SalePrice, product.Discount,
		product.Quantity, product.MinQuantity, product.Weight, product.MinWeight,
		product.WeightUnit, product.Currency, product.Barcode, formatTime(product.CreatedAt), formatTime(product.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.Errorf(store.ErrConflict, "المنتج %s موجود مسبقاً", product.ID)
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return s.GetProductByID(ctx, product.ID)
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.UpdatedAt.IsZero() {
		product.UpdatedAt = s.now()
	}
	affected, err := exec(ctx, s.db, `UPDATE products SET name = ?, description = ?, category = ?, subcategory = ?,
		measurement_type = ?, wholesale_cost_price = ?, wholesale_price = ?, sale_price = ?, discount = ?,
		quantity = ?, min_quantity = ?, weight = ?, min_weight = ?, weight_unit = ?, currency = ?, barcode = ?,
		updated_at = ?
		WHERE id = ?`,
		product.Name, product.Description, product.Category, product.Subcategory,
		product.MeasurementType, product.WholesaleCostPrice, product.WholesalePrice, product.SalePrice, product.Discount,
		product.Quantity, product.MinQuantity, product.Weight, product.MinWeight, product.WeightUnit, product.Currency,
		product.Barcode, formatTime(product.UpdatedAt), product.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update product %s: %w", product.ID, err)
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetProductByID(ctx, product.ID)
}

// DeleteProduct refuses to remove a product that sales or returns still
// reference and reports the reason instead of failing.
func (s *Store) DeleteProduct(ctx context.Context, id string) (domain.DeleteResult, error) {
	var result domain.DeleteResult
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		sales, err := countRows(ctx, tx, `SELECT count(*) FROM sales WHERE product_id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to count sales of product %s: %w", id, err)
		}
		returns, err := countRows(ctx, tx, `SELECT count(*) FROM returns WHERE product_id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to count returns of product %s: %w", id, err)
		}
		if sales > 0 || returns > 0 {
			result = domain.DeleteResult{
				Success: false,
				Error:   fmt.Sprintf("لا يمكن حذف المنتج لأنه مرتبط بـ %d عملية بيع و %d عملية إرجاع", sales, returns),
			}
			return nil
		}

		affected, err := exec(ctx, tx, `DELETE FROM products WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete product %s: %w", id, err)
		}
		if affected == 0 {
			return store.ErrNotFound
		}
		result = domain.DeleteResult{Success: true}
		return nil
	})
	if err != nil {
		return domain.DeleteResult{}, err
	}
	return result, nil
}

func (s *Store) saveStock(ctx context.Context, tx *sqlx.Tx, p domain.Product) error {
	_, err := exec(ctx, tx, `UPDATE products SET quantity = ?, weight = ?, updated_at = ? WHERE id = ?`,
		p.Quantity, p.Weight, formatTime(s.now()), p.ID)
	if err != nil {
		return fmt.Errorf("failed to update stock of product %s: %w", p.ID, err)
	}
	return nil
}

// productIndex loads every product keyed by id for read-time joins.
func (s *Store) productIndex(ctx context.Context) (map[string]domain.Product, error) {
	products, err := s.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	index := make(map[string]domain.Product, len(products))
	for _, p := range products {
		index[p.ID] = p
	}
	return index, nil
}
