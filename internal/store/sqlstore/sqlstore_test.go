package sqlstore

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mustawda/backend/internal/domain"
	"mustawda/backend/internal/logging"
	"mustawda/backend/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	db, err := ConnectSQLite(ctx, filepath.Join(t.TempDir(), "warehouse.db"))
	if err != nil {
		t.Fatalf("connect sqlite: %v", err)
	}
	s := New(db, logging.Discard())
	t.Cleanup(func() {
		_ = s.Close()
	})
	if _, err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func seedProduct(t *testing.T, s *Store, p domain.Product) *domain.Product {
	t.Helper()
	if p.MeasurementType == "" {
		p.MeasurementType = domain.MeasurementQuantity
	}
	if p.WeightUnit == "" {
		p.WeightUnit = "kg"
	}
	if p.Currency == "" {
		p.Currency = domain.CurrencyIQD
	}
	created, err := s.CreateProduct(context.Background(), p)
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	return created
}

func TestMigrateFreshDatabaseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := ConnectSQLite(ctx, filepath.Join(t.TempDir(), "fresh.db"))
	if err != nil {
		t.Fatalf("connect sqlite: %v", err)
	}
	s := New(db, logging.Discard())
	defer s.Close()

	first, err := s.Migrate(ctx)
	if err != nil {
		t.Fatalf("first migrate: %v", err)
	}
	if !first.Success || first.AlreadyMigrated || len(first.Changes) == 0 {
		t.Fatalf("expected first run to create schema, got %+v", first)
	}

	second, err := s.Migrate(ctx)
	if err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if !second.Success || !second.AlreadyMigrated || len(second.Changes) != 0 {
		t.Fatalf("expected second run to be a no-op, got %+v", second)
	}

	n, err := countRows(ctx, s.db, `SELECT count(*) FROM schema_migrations`)
	if err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if n != len(migrations) {
		t.Fatalf("expected %d recorded migrations, got %d", len(migrations), n)
	}
}

func TestMigrateUpgradesLegacySchema(t *testing.T) {
	ctx := context.Background()
	db, err := ConnectSQLite(ctx, filepath.Join(t.TempDir(), "legacy.db"))
	if err != nil {
		t.Fatalf("connect sqlite: %v", err)
	}
	s := New(db, logging.Discard())
	defer s.Close()

	legacy := []string{
		`CREATE TABLE products (
			id TEXT PRIMARY KEY, name TEXT NOT NULL, description TEXT, category TEXT, subcategory TEXT,
			wholesale_cost_price REAL, wholesale_price REAL, sale_price REAL, discount_percent REAL,
			quantity INTEGER, min_quantity INTEGER, created_at TEXT, updated_at TEXT)`,
		`CREATE TABLE sales (
			id TEXT PRIMARY KEY, product_id TEXT NOT NULL, quantity INTEGER, unit_price REAL,
			total_price REAL, discount REAL, final_price REAL, customer_name TEXT,
			payment_method TEXT DEFAULT 'cash' CHECK (payment_method IN ('cash', 'card')),
			sale_date TEXT NOT NULL)`,
		`CREATE TABLE debts (
			id TEXT PRIMARY KEY, sale_id TEXT NOT NULL, customer_id TEXT NOT NULL,
			total_amount REAL NOT NULL, status TEXT, due_date TEXT, created_at TEXT, updated_at TEXT)`,
		`CREATE TABLE users (
			id TEXT PRIMARY KEY, username TEXT NOT NULL UNIQUE, password TEXT NOT NULL,
			role TEXT NOT NULL, created_at TEXT)`,
		`INSERT INTO products (id, name, sale_price, discount_percent, quantity, min_quantity, created_at, updated_at)
			VALUES ('p-1', 'أرز', 2000, 10, 5, 1, '2023-01-01 10:00:00', '2023-01-01 10:00:00')`,
		`INSERT INTO sales (id, product_id, quantity, unit_price, total_price, discount, final_price, customer_name, sale_date)
			VALUES ('s-1', 'p-1', 2, 2000, 4000, 0, 4000, NULL, '2023-01-02 09:30:00')`,
		`INSERT INTO debts (id, sale_id, customer_id, total_amount, status, created_at, updated_at)
			VALUES ('d-1', 's-1', 'c-1', 4000, 'unpaid', '2023-01-02 09:30:00', '2023-01-02 09:30:00')`,
		`INSERT INTO users (id, username, password, role, created_at)
			VALUES ('u-1', 'legacy', 'plain', 'admin', '2023-01-01 08:00:00')`,
	}
	for _, stmt := range legacy {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("seed legacy schema: %v", err)
		}
	}

	report, err := s.Migrate(ctx)
	if err != nil {
		t.Fatalf("migrate legacy: %v", err)
	}
	if report.AlreadyMigrated {
		t.Fatalf("expected legacy schema to change, got %+v", report)
	}
	joined := strings.Join(report.Changes, "\n")
	for _, want := range []string{"products.measurement_type", "converted 1 percentage", "rebuilt sales", "debts.amount_remaining", "users.is_active"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected change mentioning %q, got:\n%s", want, joined)
		}
	}

	product, err := s.GetProductByID(ctx, "p-1")
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if product.Discount != 200 {
		t.Fatalf("expected discount 200 from 10%% of 2000, got %v", product.Discount)
	}
	if product.MeasurementType != domain.MeasurementQuantity || product.Currency != domain.CurrencyIQD {
		t.Fatalf("expected defaults on legacy product, got %+v", product)
	}

	sale, err := s.GetSaleByID(ctx, "s-1")
	if err != nil {
		t.Fatalf("get sale: %v", err)
	}
	if sale.PaymentMethod != domain.PaymentCash || sale.SaleType != domain.SaleTypeRetail {
		t.Fatalf("expected copied defaults on legacy sale, got %+v", sale)
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE sales SET payment_method = 'debt' WHERE id = 's-1'`); err != nil {
		t.Fatalf("expected widened payment check to accept debt: %v", err)
	}

	debt, err := s.GetDebtByID(ctx, "d-1")
	if err != nil {
		t.Fatalf("get debt: %v", err)
	}
	if debt.AmountRemaining != 4000 || debt.AmountPaid != 0 || debt.Status != domain.DebtUnpaid {
		t.Fatalf("expected backfilled balance, got %+v", debt)
	}

	user, err := s.GetUserByUsername(ctx, "legacy")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if !user.IsActive {
		t.Fatalf("expected legacy user to default to active")
	}

	again, err := s.Migrate(ctx)
	if err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if !again.AlreadyMigrated {
		t.Fatalf("expected second run to be a no-op, got %+v", again)
	}
}

func TestMigrateRebuildsSalesReferencedByForeignKeys(t *testing.T) {
	ctx := context.Background()
	db, err := ConnectSQLite(ctx, filepath.Join(t.TempDir(), "legacy-fk.db"))
	if err != nil {
		t.Fatalf("connect sqlite: %v", err)
	}
	s := New(db, logging.Discard())
	defer s.Close()

	legacy := []string{
		`CREATE TABLE products (
			id TEXT PRIMARY KEY, name TEXT NOT NULL, description TEXT, category TEXT, subcategory TEXT,
			wholesale_cost_price REAL, wholesale_price REAL, sale_price REAL, discount_percent REAL,
			quantity INTEGER, min_quantity INTEGER, created_at TEXT, updated_at TEXT)`,
		`CREATE TABLE sales (
			id TEXT PRIMARY KEY, product_id TEXT NOT NULL REFERENCES products(id), quantity INTEGER, unit_price REAL,
			total_price REAL, discount REAL, final_price REAL, customer_name TEXT,
			payment_method TEXT DEFAULT 'cash' CHECK (payment_method IN ('cash', 'card')),
			sale_date TEXT NOT NULL)`,
		`CREATE TABLE returns (
			id TEXT PRIMARY KEY, sale_id TEXT NOT NULL, product_id TEXT NOT NULL, returned_quantity INTEGER,
			unit_price REAL, total_refund REAL, reason TEXT, processed_by TEXT, return_date TEXT NOT NULL,
			FOREIGN KEY (sale_id) REFERENCES sales(id))`,
		`INSERT INTO products (id, name, sale_price, quantity, min_quantity, created_at, updated_at)
			VALUES ('p-1', 'عدس', 1500, 8, 1, '2023-03-01 10:00:00', '2023-03-01 10:00:00')`,
		`INSERT INTO sales (id, product_id, quantity, unit_price, total_price, discount, final_price, sale_date)
			VALUES ('s-1', 'p-1', 2, 1500, 3000, 0, 3000, '2023-03-02 11:00:00')`,
		`INSERT INTO returns (id, sale_id, product_id, returned_quantity, unit_price, total_refund, reason, processed_by, return_date)
			VALUES ('r-1', 's-1', 'p-1', 1, 1500, 1500, 'تالف', 'admin', '2023-03-03 12:00:00')`,
	}
	for _, stmt := range legacy {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("seed legacy schema: %v", err)
		}
	}

	report, err := s.Migrate(ctx)
	if err != nil {
		t.Fatalf("migrate legacy: %v", err)
	}
	if !report.Success || !strings.Contains(strings.Join(report.Changes, "\n"), "rebuilt sales") {
		t.Fatalf("expected sales rebuild, got %+v", report)
	}

	returns, err := s.ListReturnsBySale(ctx, "s-1")
	if err != nil {
		t.Fatalf("list returns: %v", err)
	}
	if len(returns) != 1 || returns[0].ReturnedQuantity != 1 {
		t.Fatalf("expected legacy return to survive the rebuild, got %+v", returns)
	}
	if _, err := s.GetSaleByID(ctx, "s-1"); err != nil {
		t.Fatalf("get sale: %v", err)
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE sales SET payment_method = 'debt' WHERE id = 's-1'`); err != nil {
		t.Fatalf("expected widened payment check to accept debt: %v", err)
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO returns (id, sale_id, product_id, returned_quantity, unit_price, total_refund, reason, processed_by, return_date)
		VALUES ('r-2', 's-missing', 'p-1', 1, 1500, 1500, '', 'admin', '2023-03-04 12:00:00')`)
	if err == nil {
		t.Fatalf("expected foreign keys to be enforced again after migrate")
	}

	again, err := s.Migrate(ctx)
	if err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if !again.AlreadyMigrated {
		t.Fatalf("expected second run to be a no-op, got %+v", again)
	}
}

func TestCheckoutComputesTotalsAndDecrementsStock(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	product := seedProduct(t, s, domain.Product{Name: "سكر", SalePrice: 500, Quantity: 10, MinQuantity: 2})

	result, err := s.CreateCheckout(ctx, domain.Checkout{
		TransactionID: "txn-1",
		PaymentMethod: domain.PaymentCash,
		Lines: []domain.CartLine{
			{ProductID: product.ID, Quantity: 2, UnitPrice: 500, Discount: 50, SaleType: domain.SaleTypeRetail},
		},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if result.SalesCount != 1 || result.TotalAmount != 950 || result.DebtID != "" {
		t.Fatalf("unexpected checkout result: %+v", result)
	}
	sale := result.Sales[0]
	if sale.TotalPrice != 1000 || sale.FinalPrice != 950 {
		t.Fatalf("unexpected sale totals: %+v", sale)
	}

	after, err := s.GetProductByID(ctx, product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if after.Quantity != 8 {
		t.Fatalf("expected stock 8, got %d", after.Quantity)
	}

	sales, err := s.ListSales(ctx)
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}
	if len(sales) != 1 || sales[0].Product == nil || sales[0].Product.Name != "سكر" {
		t.Fatalf("expected sale with joined product, got %+v", sales)
	}
}

func TestCheckoutRollsBackWhenAnyLineExceedsStock(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	first := seedProduct(t, s, domain.Product{Name: "شاي", SalePrice: 100, Quantity: 5})
	second := seedProduct(t, s, domain.Product{Name: "قهوة", SalePrice: 300, Quantity: 1})

	_, err := s.CreateCheckout(ctx, domain.Checkout{
		TransactionID: "txn-2",
		Lines: []domain.CartLine{
			{ProductID: first.ID, Quantity: 3, UnitPrice: 100},
			{ProductID: second.ID, Quantity: 2, UnitPrice: 300},
		},
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if !strings.Contains(err.Error(), "قهوة") {
		t.Fatalf("expected error to name the product, got %q", err.Error())
	}

	after, err := s.GetProductByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if after.Quantity != 5 {
		t.Fatalf("expected first product stock untouched, got %d", after.Quantity)
	}
	sales, err := s.ListSales(ctx)
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}
	if len(sales) != 0 {
		t.Fatalf("expected no sales after rollback, got %d", len(sales))
	}
}

func TestDebtCheckoutFailureLeavesNoDebt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	rice := seedProduct(t, s, domain.Product{Name: "أرز", SalePrice: 1000, Quantity: 10})
	beans := seedProduct(t, s, domain.Product{Name: "فاصوليا", SalePrice: 800, Quantity: 1})
	salt := seedProduct(t, s, domain.Product{Name: "ملح", SalePrice: 250, Quantity: 6})

	customer, err := s.CreateDebtCustomer(ctx, domain.DebtCustomer{Name: "أم حسن", Phone: "+9647801112233"})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}

	_, err = s.CreateCheckout(ctx, domain.Checkout{
		TransactionID:  "txn-debt-fail",
		PaymentMethod:  domain.PaymentDebt,
		DebtCustomerID: customer.ID,
		Lines: []domain.CartLine{
			{ProductID: rice.ID, Quantity: 2, UnitPrice: 1000},
			{ProductID: beans.ID, Quantity: 3, UnitPrice: 800},
			{ProductID: salt.ID, Quantity: 1, UnitPrice: 250},
		},
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	debts, err := s.ListDebts(ctx, domain.DebtFilter{})
	if err != nil {
		t.Fatalf("list debts: %v", err)
	}
	if len(debts) != 0 {
		t.Fatalf("expected no debt after failed checkout, got %d", len(debts))
	}
	sales, err := s.ListSales(ctx)
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}
	if len(sales) != 0 {
		t.Fatalf("expected no sales after failed checkout, got %d", len(sales))
	}
	after, err := s.GetProductByID(ctx, rice.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if after.Quantity != 10 {
		t.Fatalf("expected rice stock untouched, got %d", after.Quantity)
	}
}

func TestCheckoutRepeatedLinesShareWorkingStock(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	product := seedProduct(t, s, domain.Product{Name: "طحين", SalePrice: 100, Quantity: 4})

	_, err := s.CreateCheckout(ctx, domain.Checkout{
		Lines: []domain.CartLine{
			{ProductID: product.ID, Quantity: 3, UnitPrice: 100},
			{ProductID: product.ID, Quantity: 2, UnitPrice: 100},
		},
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected second line to see decremented stock, got %v", err)
	}
}

func TestDebtCheckoutAndPayment(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	rice := seedProduct(t, s, domain.Product{Name: "أرز", SalePrice: 1000, Quantity: 10})
	meat := seedProduct(t, s, domain.Product{Name: "لحم", MeasurementType: domain.MeasurementWeight, SalePrice: 12000, Weight: 5})

	customer, err := s.CreateDebtCustomer(ctx, domain.DebtCustomer{Name: "أبو علي", Phone: "+9647701234567"})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}

	due := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	result, err := s.CreateCheckout(ctx, domain.Checkout{
		TransactionID:  "txn-debt",
		PaymentMethod:  domain.PaymentDebt,
		DebtCustomerID: customer.ID,
		DueDate:        &due,
		Lines: []domain.CartLine{
			{ProductID: rice.ID, Quantity: 2, UnitPrice: 1000},
			{ProductID: meat.ID, Weight: 1.5, UnitPrice: 12000},
		},
	})
	if err != nil {
		t.Fatalf("debt checkout: %v", err)
	}
	if result.DebtID == "" || result.TotalAmount != 20000 {
		t.Fatalf("unexpected debt checkout result: %+v", result)
	}

	meatAfter, err := s.GetProductByID(ctx, meat.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if meatAfter.Weight != 3.5 {
		t.Fatalf("expected weight 3.5, got %v", meatAfter.Weight)
	}

	for _, id := range []string{result.Sales[0].ID, result.Sales[1].ID} {
		sale, err := s.GetSaleByID(ctx, id)
		if err != nil {
			t.Fatalf("get sale: %v", err)
		}
		if sale.DebtID != result.DebtID || sale.DebtCustomerID != customer.ID {
			t.Fatalf("expected sale linked to debt, got %+v", sale)
		}
	}

	debt, err := s.GetDebtByID(ctx, result.DebtID)
	if err != nil {
		t.Fatalf("get debt: %v", err)
	}
	if debt.SaleID != result.Sales[0].ID || debt.Status != domain.DebtUnpaid || debt.AmountRemaining != 20000 {
		t.Fatalf("unexpected debt: %+v", debt)
	}
	if debt.DueDate == nil || !debt.DueDate.Equal(due) {
		t.Fatalf("expected due date %v, got %v", due, debt.DueDate)
	}

	paid, err := s.ApplyDebtPayment(ctx, domain.DebtPayment{DebtID: debt.ID, Amount: 5000})
	if err != nil {
		t.Fatalf("apply payment: %v", err)
	}
	if paid.Debt.Status != domain.DebtPartial || paid.Debt.AmountRemaining != 15000 || paid.Payment.PaymentMethod != domain.PaymentCash {
		t.Fatalf("unexpected payment result: %+v", paid)
	}

	if _, err := s.ApplyDebtPayment(ctx, domain.DebtPayment{DebtID: debt.ID, Amount: 16000}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected overpayment to be rejected, got %v", err)
	}

	if _, err := s.ApplyDebtPayment(ctx, domain.DebtPayment{DebtID: debt.ID, Amount: 15000}); err != nil {
		t.Fatalf("settle debt: %v", err)
	}
	settled, err := s.GetDebtByID(ctx, debt.ID)
	if err != nil {
		t.Fatalf("get debt: %v", err)
	}
	if settled.Status != domain.DebtPaid || len(settled.Payments) != 2 {
		t.Fatalf("expected paid debt with two payments, got %+v", settled)
	}

	if err := s.DeleteDebtCustomer(ctx, customer.ID); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected customer delete to be blocked, got %v", err)
	}
}

func TestDebtCheckoutRequiresExistingCustomer(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	product := seedProduct(t, s, domain.Product{Name: "زيت", SalePrice: 3000, Quantity: 3})

	_, err := s.CreateCheckout(ctx, domain.Checkout{
		PaymentMethod:  domain.PaymentDebt,
		DebtCustomerID: "cust-missing",
		Lines:          []domain.CartLine{{ProductID: product.ID, Quantity: 1, UnitPrice: 3000}},
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected missing customer to be not found, got %v", err)
	}
}

func TestReturnIsBoundedBySoldAmount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	product := seedProduct(t, s, domain.Product{Name: "صابون", SalePrice: 500, Quantity: 5})

	result, err := s.CreateCheckout(ctx, domain.Checkout{
		Lines: []domain.CartLine{{ProductID: product.ID, Quantity: 2, UnitPrice: 500}},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	saleID := result.Sales[0].ID

	ret, err := s.CreateReturn(ctx, domain.Return{SaleID: saleID, ReturnedQuantity: 1, Reason: "تالف"})
	if err != nil {
		t.Fatalf("return: %v", err)
	}
	if ret.TotalRefund != 500 || ret.ProductID != product.ID {
		t.Fatalf("unexpected return: %+v", ret)
	}

	if _, err := s.CreateReturn(ctx, domain.Return{SaleID: saleID, ReturnedQuantity: 2}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected over-return to be rejected, got %v", err)
	}

	after, err := s.GetProductByID(ctx, product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if after.Quantity != 4 {
		t.Fatalf("expected stock 4 after one return, got %d", after.Quantity)
	}

	returns, err := s.ListReturnsBySale(ctx, saleID)
	if err != nil {
		t.Fatalf("list returns: %v", err)
	}
	if len(returns) != 1 || returns[0].Product == nil {
		t.Fatalf("expected one return with product, got %+v", returns)
	}

	if _, err := s.CreateReturn(ctx, domain.Return{SaleID: "sale-missing", ReturnedQuantity: 1}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected missing sale to be not found, got %v", err)
	}
}

func TestDeleteProductBlockedWhileReferenced(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sold := seedProduct(t, s, domain.Product{Name: "ملح", SalePrice: 250, Quantity: 4})
	unused := seedProduct(t, s, domain.Product{Name: "فلفل", SalePrice: 250, Quantity: 4})

	if _, err := s.CreateCheckout(ctx, domain.Checkout{
		Lines: []domain.CartLine{{ProductID: sold.ID, Quantity: 1, UnitPrice: 250}},
	}); err != nil {
		t.Fatalf("checkout: %v", err)
	}

	blocked, err := s.DeleteProduct(ctx, sold.ID)
	if err != nil {
		t.Fatalf("delete referenced product: %v", err)
	}
	if blocked.Success || blocked.Error == "" {
		t.Fatalf("expected blocked delete with reason, got %+v", blocked)
	}

	ok, err := s.DeleteProduct(ctx, unused.ID)
	if err != nil || !ok.Success {
		t.Fatalf("expected delete to succeed, got %+v, %v", ok, err)
	}
	if _, err := s.DeleteProduct(ctx, unused.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected second delete to be not found, got %v", err)
	}
}

func TestCategoryUpdateReplacesSubcategoriesKeepingIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateCategory(ctx, domain.Category{
		Name:          "مواد غذائية",
		Subcategories: []domain.Subcategory{{Name: "حبوب"}, {Name: "زيوت"}},
	})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	if len(created.Subcategories) != 2 {
		t.Fatalf("expected two subcategories, got %+v", created.Subcategories)
	}
	kept := created.Subcategories[0]

	updated, err := s.UpdateCategory(ctx, domain.Category{
		ID:            created.ID,
		Name:          created.Name,
		Subcategories: []domain.Subcategory{kept, {Name: "معلبات"}},
	})
	if err != nil {
		t.Fatalf("update category: %v", err)
	}
	if len(updated.Subcategories) != 2 {
		t.Fatalf("expected two subcategories after update, got %+v", updated.Subcategories)
	}
	found := false
	for _, sc := range updated.Subcategories {
		if sc.ID == kept.ID && sc.Name == kept.Name {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected subcategory %s to keep its id", kept.ID)
	}

	if _, err := s.CreateCategory(ctx, domain.Category{Name: "مواد غذائية"}); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected duplicate name conflict, got %v", err)
	}

	if err := s.DeleteCategory(ctx, created.ID); err != nil {
		t.Fatalf("delete category: %v", err)
	}
	if _, err := s.GetCategoryByID(ctx, created.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected deleted category to be not found, got %v", err)
	}
}

func TestUsersAreDeactivatedNotDeleted(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user, err := s.CreateUser(ctx, domain.User{Username: "cashier", Password: "hash", Role: domain.RoleUser, IsActive: true})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := s.CreateUser(ctx, domain.User{Username: "cashier", Password: "hash", IsActive: true}); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected duplicate username conflict, got %v", err)
	}

	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	if err := s.UpdateLastLogin(ctx, user.ID, at); err != nil {
		t.Fatalf("update last login: %v", err)
	}
	if err := s.DeactivateUser(ctx, user.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	got, err := s.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got.IsActive {
		t.Fatalf("expected user to be inactive")
	}
	if got.LastLogin == nil || !got.LastLogin.Equal(at) {
		t.Fatalf("expected last login %v, got %v", at, got.LastLogin)
	}
}
