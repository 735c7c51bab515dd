package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mustawda/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidInput      = errors.New("invalid input")
	ErrConflict          = errors.New("conflict")
	ErrForbidden         = errors.New("forbidden")
)

// Error carries a user-facing message and unwraps to one of the sentinels
// above so callers can still branch with errors.Is.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func Errorf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	GetProductByBarcode(ctx context.Context, barcode string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) (domain.DeleteResult, error)

	ListCategories(ctx context.Context) ([]domain.Category, error)
	GetCategoryByID(ctx context.Context, id string) (*domain.Category, error)
	CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error)
	UpdateCategory(ctx context.Context, category domain.Category) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id string) error

	ListSales(ctx context.Context) ([]domain.Sale, error)
	GetSaleByID(ctx context.Context, id string) (*domain.Sale, error)
	CreateCheckout(ctx context.Context, checkout domain.Checkout) (*domain.CheckoutResult, error)

	ListReturns(ctx context.Context) ([]domain.Return, error)
	ListReturnsBySale(ctx context.Context, saleID string) ([]domain.Return, error)
	CreateReturn(ctx context.Context, ret domain.Return) (*domain.Return, error)

	ListDebtCustomers(ctx context.Context) ([]domain.DebtCustomer, error)
	GetDebtCustomerByID(ctx context.Context, id string) (*domain.DebtCustomer, error)
	CreateDebtCustomer(ctx context.Context, customer domain.DebtCustomer) (*domain.DebtCustomer, error)
	UpdateDebtCustomer(ctx context.Context, customer domain.DebtCustomer) (*domain.DebtCustomer, error)
	DeleteDebtCustomer(ctx context.Context, id string) error

	ListDebts(ctx context.Context, filter domain.DebtFilter) ([]domain.Debt, error)
	GetDebtByID(ctx context.Context, id string) (*domain.Debt, error)
	ListDebtPayments(ctx context.Context, debtID string) ([]domain.DebtPayment, error)
	ApplyDebtPayment(ctx context.Context, payment domain.DebtPayment) (*domain.DebtPaymentResult, error)

	ListUsers(ctx context.Context) ([]domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	CreateUser(ctx context.Context, user domain.User) (*domain.User, error)
	UpdateUser(ctx context.Context, user domain.User) (*domain.User, error)
	DeactivateUser(ctx context.Context, id string) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error

	Migrate(ctx context.Context) (domain.MigrationReport, error)
}
