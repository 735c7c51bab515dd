package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"mustawda/backend/internal/backup"
	"mustawda/backend/internal/domain"
	"mustawda/backend/internal/store"
	"mustawda/backend/internal/store/memory"
)

func newTestService() (*Service, *memory.Store) {
	repo := memory.NewSeeded()
	return New(repo, nil, "IQ", time.UTC), repo
}

func adminContext() context.Context {
	return WithActor(context.Background(), domain.Actor{UserID: "user-admin", Username: "admin", Role: domain.RoleAdmin})
}

func TestCheckoutRejectsEmptyCart(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Checkout(adminContext(), domain.CheckoutRequest{})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if !strings.Contains(err.Error(), "السلة فارغة") {
		t.Fatalf("expected empty cart message, got %q", err.Error())
	}
}

func TestCheckoutDefaultsUnitPriceBySaleType(t *testing.T) {
	svc, repo := newTestService()
	ctx := adminContext()

	result, err := svc.Checkout(ctx, domain.CheckoutRequest{
		Items: []domain.CartLine{
			{ProductID: "prod-rice", Quantity: 1, SaleType: domain.SaleTypeRetail},
			{ProductID: "prod-rice", Quantity: 2, SaleType: domain.SaleTypeWholesale},
		},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if result.TotalAmount != 12000+2*10000 {
		t.Fatalf("expected 32000, got %v", result.TotalAmount)
	}
	if !strings.HasPrefix(result.TransactionID, "txn-") {
		t.Fatalf("expected generated transaction id, got %q", result.TransactionID)
	}

	rice, _ := repo.GetProductByID(ctx, "prod-rice")
	if rice.Quantity != 37 {
		t.Fatalf("expected stock 37, got %d", rice.Quantity)
	}
}

func TestCheckoutRejectsDiscountAboveLineTotal(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Checkout(adminContext(), domain.CheckoutRequest{
		Items: []domain.CartLine{{ProductID: "prod-oil", Quantity: 1, UnitPrice: 3000, Discount: 3500}},
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestCheckoutUnknownProductIsNotFound(t *testing.T) {
	svc, repo := newTestService()
	ctx := adminContext()

	_, err := svc.Checkout(ctx, domain.CheckoutRequest{
		Items: []domain.CartLine{
			{ProductID: "prod-rice", Quantity: 1},
			{ProductID: " prod-missing ", Quantity: 1},
		},
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if !strings.Contains(err.Error(), "prod-missing") {
		t.Fatalf("expected error to name the product, got %q", err.Error())
	}

	rice, _ := repo.GetProductByID(ctx, "prod-rice")
	if rice.Quantity != 40 {
		t.Fatalf("expected stock 40, got %d", rice.Quantity)
	}
}

func TestCheckoutRejectsNegativeAmounts(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Checkout(adminContext(), domain.CheckoutRequest{
		Items: []domain.CartLine{{ProductID: "prod-oil", Quantity: -1, UnitPrice: 3000}},
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestDebtCheckoutRequiresCustomer(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Checkout(adminContext(), domain.CheckoutRequest{
		PaymentMethod: domain.PaymentDebt,
		Items:         []domain.CartLine{{ProductID: "prod-oil", Quantity: 1}},
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestDebtLifecycle(t *testing.T) {
	svc, _ := newTestService()
	ctx := adminContext()

	customer, err := svc.CreateDebtCustomer(ctx, domain.DebtCustomerInput{Name: "حسن", Phone: "0770 123 4567"})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}
	if customer.Phone != "+9647701234567" {
		t.Fatalf("expected E.164 phone, got %q", customer.Phone)
	}

	result, err := svc.Checkout(ctx, domain.CheckoutRequest{
		PaymentMethod:  domain.PaymentDebt,
		DebtCustomerID: customer.ID,
		Items:          []domain.CartLine{{ProductID: "prod-oil", Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("debt checkout: %v", err)
	}
	if result.DebtID == "" {
		t.Fatalf("expected debt id")
	}

	paid, err := svc.AddDebtPayment(ctx, result.DebtID, domain.DebtPaymentRequest{Amount: 2000, Notes: " دفعة أولى "})
	if err != nil {
		t.Fatalf("payment: %v", err)
	}
	if paid.Debt.Status != domain.DebtPartial || paid.Debt.AmountRemaining != 4000 || paid.Payment.Notes != "دفعة أولى" {
		t.Fatalf("unexpected payment result: %+v", paid)
	}

	debts, err := svc.ListDebts(ctx, domain.DebtFilter{CustomerID: customer.ID, Status: domain.DebtPartial})
	if err != nil {
		t.Fatalf("list debts: %v", err)
	}
	if len(debts) != 1 || debts[0].Customer == nil {
		t.Fatalf("expected one partial debt with customer, got %+v", debts)
	}

	if _, err := svc.ListDebts(ctx, domain.DebtFilter{Status: "overdue"}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected unknown status to be rejected, got %v", err)
	}
	if _, err := svc.AddDebtPayment(ctx, "debt-missing", domain.DebtPaymentRequest{Amount: 1}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected missing debt, got %v", err)
	}
}

func TestCreateDebtCustomerRejectsInvalidPhone(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.CreateDebtCustomer(adminContext(), domain.DebtCustomerInput{Name: "زبون", Phone: "12"})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid phone, got %v", err)
	}
}

func TestCreateReturnDefaultsProcessedBy(t *testing.T) {
	svc, _ := newTestService()
	ctx := adminContext()

	if _, err := svc.Checkout(ctx, domain.CheckoutRequest{
		Items: []domain.CartLine{{ProductID: "prod-oil", Quantity: 2, UnitPrice: 500}},
	}); err != nil {
		t.Fatalf("checkout: %v", err)
	}
	sales, err := svc.ListSales(ctx)
	if err != nil || len(sales) != 1 {
		t.Fatalf("list sales: %v (%d)", err, len(sales))
	}

	ret, err := svc.CreateReturn(ctx, domain.ReturnRequest{SaleID: sales[0].ID, ReturnedQuantity: 1})
	if err != nil {
		t.Fatalf("return: %v", err)
	}
	if ret.TotalRefund != 500 || ret.ProcessedBy != "admin" {
		t.Fatalf("unexpected return: %+v", ret)
	}
	if _, err := svc.CreateReturn(ctx, domain.ReturnRequest{SaleID: sales[0].ID}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected empty return to be rejected, got %v", err)
	}
}

func TestProductValidationAndStockStatus(t *testing.T) {
	svc, _ := newTestService()
	ctx := adminContext()

	if _, err := svc.CreateProduct(ctx, domain.ProductInput{Name: "  "}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected blank name to be rejected, got %v", err)
	}
	if _, err := svc.CreateProduct(ctx, domain.ProductInput{Name: "علبة", MeasurementType: "box"}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected unknown measurement type to be rejected, got %v", err)
	}

	created, err := svc.CreateProduct(ctx, domain.ProductInput{Name: "حليب", SalePrice: 1500, Quantity: 0, MinQuantity: 2})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if created.StockStatus != domain.StockOutOfStock || created.Currency != domain.CurrencyIQD || created.MeasurementType != domain.MeasurementQuantity {
		t.Fatalf("unexpected product view: %+v", created)
	}

	soap, err := svc.GetProduct(ctx, "prod-soap")
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if soap.StockStatus != domain.StockLow {
		t.Fatalf("expected soap to be low stock, got %s", soap.StockStatus)
	}

	byBarcode, err := svc.GetProductByBarcode(ctx, "6281000000028")
	if err != nil || byBarcode.ID != "prod-oil" {
		t.Fatalf("expected oil by barcode, got %+v, %v", byBarcode, err)
	}
}

func TestUserManagementRequiresAdmin(t *testing.T) {
	svc, _ := newTestService()
	ctx := WithActor(context.Background(), domain.Actor{UserID: "user-2", Username: "cashier", Role: domain.RoleAssistantAdmin})

	if _, err := svc.ListUsers(ctx); !errors.Is(err, store.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestAuthenticateUpgradesLegacyPassword(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	legacy, err := repo.CreateUser(ctx, domain.User{Username: "legacy", Password: "secret1", Role: domain.RoleUser, IsActive: true})
	if err != nil {
		t.Fatalf("seed legacy user: %v", err)
	}

	if _, err := svc.Authenticate(ctx, "legacy", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}

	user, err := svc.Authenticate(ctx, "Legacy", "secret1")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if user.LastLogin == nil {
		t.Fatalf("expected last login to be recorded")
	}

	stored, err := repo.GetUserByID(ctx, legacy.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if !isPasswordHash(stored.Password) {
		t.Fatalf("expected password upgraded to bcrypt")
	}
	if _, err := svc.Authenticate(ctx, "legacy", "secret1"); err != nil {
		t.Fatalf("authenticate after upgrade: %v", err)
	}
}

func TestAuthenticateRejectsInactiveUser(t *testing.T) {
	svc, _ := newTestService()
	ctx := adminContext()

	created, err := svc.CreateUser(ctx, domain.UserCreateRequest{Username: "worker", Password: "worker123"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if created.Role != domain.RoleUser {
		t.Fatalf("expected default role user, got %s", created.Role)
	}
	if err := svc.DeactivateUser(ctx, created.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "worker", "worker123"); !errors.Is(err, ErrAccountInactive) {
		t.Fatalf("expected inactive account, got %v", err)
	}
}

func TestAdminCannotDeactivateSelf(t *testing.T) {
	svc, _ := newTestService()
	ctx := adminContext()

	if err := svc.DeactivateUser(ctx, "user-admin"); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected self deactivation to be refused, got %v", err)
	}
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	created, err := svc.EnsureAdmin(ctx, "admin", "Str0ngPass!")
	if err != nil || !created {
		t.Fatalf("expected admin to be created, got %v, %v", created, err)
	}
	created, err = svc.EnsureAdmin(ctx, "admin", "other")
	if err != nil || created {
		t.Fatalf("expected existing admin to be kept, got %v, %v", created, err)
	}
	if _, err := svc.Authenticate(ctx, "admin", "Str0ngPass!"); err != nil {
		t.Fatalf("authenticate seeded admin: %v", err)
	}
}

func TestDashboardUsesConfiguredLocation(t *testing.T) {
	loc := time.FixedZone("AST", 3*60*60)
	repo := memory.NewSeeded()
	svc := New(repo, nil, "IQ", loc)
	now := time.Date(2026, 6, 10, 22, 30, 0, 0, time.UTC)
	svc.SetClock(func() time.Time { return now })
	repo.SetClock(func() time.Time { return now })
	ctx := adminContext()

	if _, err := svc.Checkout(ctx, domain.CheckoutRequest{
		Items: []domain.CartLine{{ProductID: "prod-oil", Quantity: 1}},
	}); err != nil {
		t.Fatalf("checkout: %v", err)
	}

	dash, err := svc.Dashboard(ctx)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if dash.TodaySales != 1 || dash.TodayRevenue != 3000 {
		t.Fatalf("expected today's sale to be counted, got %+v", dash)
	}
	if dash.TotalProducts != 4 || dash.LowStockProducts != 1 {
		t.Fatalf("unexpected stock counters: %+v", dash)
	}
}

func TestWriteBackup(t *testing.T) {
	svc, _ := newTestService()
	dir := t.TempDir()

	result, err := svc.WriteBackup(adminContext(), backup.NewWriter(dir))
	if err != nil {
		t.Fatalf("write backup: %v", err)
	}
	if !result.Success || result.Products != 4 || result.Categories != 3 || !strings.HasPrefix(result.Path, dir) {
		t.Fatalf("unexpected backup result: %+v", result)
	}
}

func TestMigrateRequiresAdmin(t *testing.T) {
	svc, _ := newTestService()

	if _, err := svc.Migrate(context.Background()); !errors.Is(err, store.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	report, err := svc.Migrate(adminContext())
	if err != nil || !report.AlreadyMigrated {
		t.Fatalf("expected memory store to report migrated, got %+v, %v", report, err)
	}
}

func TestCheckoutAcceptsZeroAmountLine(t *testing.T) {
	svc, repo := newTestService()
	ctx := adminContext()

	result, err := svc.Checkout(ctx, domain.CheckoutRequest{
		Items: []domain.CartLine{{ProductID: "prod-soap", Quantity: 0}},
	})
	if err != nil {
		t.Fatalf("zero line checkout: %v", err)
	}
	if result.SalesCount != 1 || result.TotalAmount != 0 {
		t.Fatalf("expected one empty sale, got %+v", result)
	}
	soap, _ := repo.GetProductByID(ctx, "prod-soap")
	if soap.Quantity != 3 {
		t.Fatalf("expected stock untouched, got %d", soap.Quantity)
	}
}

func TestResetPasswordReactivatesAccount(t *testing.T) {
	svc, _ := newTestService()
	ctx := adminContext()

	created, err := svc.CreateUser(ctx, domain.UserCreateRequest{Username: "keeper", Password: "old-pass"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := svc.DeactivateUser(ctx, created.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	if _, err := svc.ResetPassword(context.Background(), "keeper", "short"); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected short password to be rejected, got %v", err)
	}
	if _, err := svc.ResetPassword(context.Background(), "nobody", "new-pass"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected unknown user, got %v", err)
	}

	reset, err := svc.ResetPassword(context.Background(), "Keeper", "new-pass")
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if !reset.IsActive {
		t.Fatalf("expected account to be reactivated")
	}
	if _, err := svc.Authenticate(context.Background(), "keeper", "new-pass"); err != nil {
		t.Fatalf("authenticate with new password: %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "keeper", "old-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected old password to fail, got %v", err)
	}
}
