// Package memory is an in-process Repository for tests and the demo mode.
// One mutex serialises every write, so checkout and return are atomic.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"mustawda/backend/internal/domain"
	"mustawda/backend/internal/inventory"
	"mustawda/backend/internal/ledger"
	"mustawda/backend/internal/store"
	"mustawda/backend/internal/xid"
)

var _ store.Repository = (*Store)(nil)

type Store struct {
	mu           sync.RWMutex
	products     map[string]domain.Product
	categories   map[string]domain.Category
	sales        map[string]domain.Sale
	returns      map[string]domain.Return
	customers    map[string]domain.DebtCustomer
	debts        map[string]domain.Debt
	debtPayments map[string][]domain.DebtPayment
	usersByID    map[string]domain.User
	now          func() time.Time
}

func New() *Store {
	return &Store{
		products:     make(map[string]domain.Product),
		categories:   make(map[string]domain.Category),
		sales:        make(map[string]domain.Sale),
		returns:      make(map[string]domain.Return),
		customers:    make(map[string]domain.DebtCustomer),
		debts:        make(map[string]domain.Debt),
		debtPayments: make(map[string][]domain.DebtPayment),
		usersByID:    make(map[string]domain.User),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// NewSeeded returns a store holding a small demo catalogue. Users are not
// seeded here; the server creates the admin account on start.
func NewSeeded() *Store {
	s := New()
	now := s.now()

	categories := []domain.Category{
		{ID: "cat-food", Name: "مواد غذائية", Subcategories: []domain.Subcategory{
			{ID: "sub-grains", Name: "حبوب", CategoryID: "cat-food"},
			{ID: "sub-oils", Name: "زيوت", CategoryID: "cat-food"},
		}},
		{ID: "cat-meat", Name: "لحوم", Subcategories: []domain.Subcategory{
			{ID: "sub-red", Name: "لحم أحمر", CategoryID: "cat-meat"},
		}},
		{ID: "cat-clean", Name: "منظفات", Subcategories: []domain.Subcategory{}},
	}
	for _, c := range categories {
		c.CreatedAt, c.UpdatedAt = now, now
		s.categories[c.ID] = c
	}

	products := []domain.Product{
		{ID: "prod-rice", Name: "أرز 5 كغم", Category: "مواد غذائية", Subcategory: "حبوب", MeasurementType: domain.MeasurementQuantity,
			WholesaleCostPrice: 9000, WholesalePrice: 10000, SalePrice: 12000, Quantity: 40, MinQuantity: 5, Barcode: "6281000000011"},
		{ID: "prod-oil", Name: "زيت نباتي 1 لتر", Category: "مواد غذائية", Subcategory: "زيوت", MeasurementType: domain.MeasurementQuantity,
			WholesaleCostPrice: 2200, WholesalePrice: 2500, SalePrice: 3000, Quantity: 60, MinQuantity: 10, Barcode: "6281000000028"},
		{ID: "prod-lamb", Name: "لحم غنم", Category: "لحوم", Subcategory: "لحم أحمر", MeasurementType: domain.MeasurementWeight,
			WholesaleCostPrice: 14000, WholesalePrice: 15000, SalePrice: 18000, Weight: 25, MinWeight: 5},
		{ID: "prod-soap", Name: "صابون غسيل", Category: "منظفات", MeasurementType: domain.MeasurementQuantity,
			WholesaleCostPrice: 600, WholesalePrice: 750, SalePrice: 1000, Quantity: 3, MinQuantity: 5, Barcode: "6281000000035"},
	}
	for _, p := range products {
		if p.WeightUnit == "" {
			p.WeightUnit = "kg"
		}
		p.Currency = domain.CurrencyIQD
		p.CreatedAt, p.UpdatedAt = now, now
		s.products[p.ID] = p
	}
	return s
}

// SetClock overrides the time source used for generated timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return products, nil
}

func (s *Store) GetProductByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (s *Store) GetProductByBarcode(_ context.Context, barcode string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if barcode == "" {
		return nil, store.ErrNotFound
	}
	for _, p := range s.products {
		if p.Barcode == barcode {
			return &p, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	if _, exists := s.products[product.ID]; exists {
		return nil, store.Errorf(store.ErrConflict, "المنتج %s موجود مسبقاً", product.ID)
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	if product.UpdatedAt.IsZero() {
		product.UpdatedAt = now
	}
	s.products[product.ID] = product
	return &product, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.products[product.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	product.CreatedAt = existing.CreatedAt
	if product.UpdatedAt.IsZero() {
		product.UpdatedAt = s.now()
	}
	s.products[product.ID] = product
	return &product, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) (domain.DeleteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return domain.DeleteResult{}, store.ErrNotFound
	}
	sales, returns := 0, 0
	for _, sale := range s.sales {
		if sale.ProductID == id {
			sales++
		}
	}
	for _, r := range s.returns {
		if r.ProductID == id {
			returns++
		}
	}
	if sales > 0 || returns > 0 {
		return domain.DeleteResult{
			Success: false,
			Error:   fmt.Sprintf("لا يمكن حذف المنتج لأنه مرتبط بـ %d عملية بيع و %d عملية إرجاع", sales, returns),
		}, nil
	}
	delete(s.products, id)
	return domain.DeleteResult{Success: true}, nil
}

func (s *Store) ListCategories(_ context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, cloneCategory(c))
	}
	slices.SortFunc(out, func(a, b domain.Category) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return out, nil
}

func (s *Store) GetCategoryByID(_ context.Context, id string) (*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.categories[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := cloneCategory(c)
	return &out, nil
}

func (s *Store) CreateCategory(_ context.Context, category domain.Category) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if category.ID == "" {
		category.ID = xid.New("cat")
	}
	if err := s.checkCategoryName(category.ID, category.Name); err != nil {
		return nil, err
	}
	subs, err := s.assignSubcategories(category.ID, category.Subcategories)
	if err != nil {
		return nil, err
	}
	now := s.now()
	category.Subcategories = subs
	category.CreatedAt, category.UpdatedAt = now, now
	s.categories[category.ID] = category
	out := cloneCategory(category)
	return &out, nil
}

func (s *Store) UpdateCategory(_ context.Context, category domain.Category) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.categories[category.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if err := s.checkCategoryName(category.ID, category.Name); err != nil {
		return nil, err
	}
	subs, err := s.assignSubcategories(category.ID, category.Subcategories)
	if err != nil {
		return nil, err
	}
	category.Subcategories = subs
	category.CreatedAt = existing.CreatedAt
	category.UpdatedAt = s.now()
	s.categories[category.ID] = category
	out := cloneCategory(category)
	return &out, nil
}

func (s *Store) checkCategoryName(id, name string) error {
	for _, c := range s.categories {
		if c.ID != id && c.Name == name {
			return store.Errorf(store.ErrConflict, "الفئة %q موجودة مسبقاً", name)
		}
	}
	return nil
}

// assignSubcategories gives new subcategories ids and rejects ids owned by
// another category.
func (s *Store) assignSubcategories(categoryID string, subs []domain.Subcategory) ([]domain.Subcategory, error) {
	owner := make(map[string]string)
	for _, c := range s.categories {
		for _, sc := range c.Subcategories {
			owner[sc.ID] = c.ID
		}
	}
	out := make([]domain.Subcategory, 0, len(subs))
	for _, sc := range subs {
		if sc.ID == "" {
			sc.ID = xid.New("sub")
		} else if other, ok := owner[sc.ID]; ok && other != categoryID {
			return nil, store.Errorf(store.ErrConflict, "الفئة الفرعية %s مستخدمة في فئة أخرى", sc.ID)
		}
		sc.CategoryID = categoryID
		out = append(out, sc)
	}
	slices.SortFunc(out, func(a, b domain.Subcategory) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return out, nil
}

func (s *Store) DeleteCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.categories, id)
	return nil
}

func (s *Store) ListSales(_ context.Context) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Sale, 0, len(s.sales))
	for _, sale := range s.sales {
		out = append(out, s.joinSale(sale))
	}
	slices.SortFunc(out, func(a, b domain.Sale) int {
		return b.SaleDate.Compare(a.SaleDate)
	})
	return out, nil
}

func (s *Store) GetSaleByID(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.sales[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := s.joinSale(sale)
	return &out, nil
}

func (s *Store) joinSale(sale domain.Sale) domain.Sale {
	if p, ok := s.products[sale.ProductID]; ok {
		sale.Product = &p
	}
	return sale
}

// CreateCheckout mirrors the SQL store: every line is checked against a
// working copy of stock, and nothing is written unless every line passes.
func (s *Store) CreateCheckout(_ context.Context, checkout domain.Checkout) (*domain.CheckoutResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

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
	if paymentMethod == domain.PaymentDebt {
		if checkout.DebtCustomerID == "" {
			return nil, store.Errorf(store.ErrInvalidInput, "يجب اختيار عميل الدين عند البيع بالآجل")
		}
		if _, ok := s.customers[checkout.DebtCustomerID]; !ok {
			return nil, store.Errorf(store.ErrNotFound, "عميل الدين %s غير موجود", checkout.DebtCustomerID)
		}
	}

	working := make(map[string]domain.Product)
	sales := make([]domain.Sale, 0, len(checkout.Lines))
	finals := make([]float64, 0, len(checkout.Lines))
	for _, line := range checkout.Lines {
		product, ok := working[line.ProductID]
		if !ok {
			product, ok = s.products[line.ProductID]
			if !ok {
				return nil, store.Errorf(store.ErrNotFound, "المنتج %s غير موجود", line.ProductID)
			}
		}
		sale, err := inventory.BuildSale(xid.New("sale"), product, line, checkout, paymentMethod, saleDate)
		if err != nil {
			return nil, err
		}
		product = inventory.ReduceStock(product, inventory.SoldAmount(product, line.Quantity, line.Weight))
		product.UpdatedAt = saleDate
		working[product.ID] = product
		sales = append(sales, sale)
		finals = append(finals, sale.FinalPrice)
	}

	result := &domain.CheckoutResult{
		TransactionID: checkout.TransactionID,
		SalesCount:    len(sales),
		TotalAmount:   inventory.Sum(finals...),
	}
	if paymentMethod == domain.PaymentDebt {
		debt := ledger.NewDebt(xid.New("debt"), sales[0].ID, checkout.DebtCustomerID, result.TotalAmount)
		debt.DueDate = checkout.DueDate
		debt.CreatedAt, debt.UpdatedAt = saleDate, saleDate
		s.debts[debt.ID] = debt
		for i := range sales {
			sales[i].DebtID = debt.ID
		}
		result.DebtID = debt.ID
	}

	for id, p := range working {
		s.products[id] = p
	}
	for _, sale := range sales {
		s.sales[sale.ID] = sale
	}
	result.Sales = sales
	return result, nil
}

func (s *Store) ListReturns(_ context.Context) ([]domain.Return, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listReturns(""), nil
}

func (s *Store) ListReturnsBySale(_ context.Context, saleID string) ([]domain.Return, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listReturns(saleID), nil
}

func (s *Store) listReturns(saleID string) []domain.Return {
	out := make([]domain.Return, 0)
	for _, r := range s.returns {
		if saleID != "" && r.SaleID != saleID {
			continue
		}
		if p, ok := s.products[r.ProductID]; ok {
			r.Product = &p
		}
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b domain.Return) int {
		return b.ReturnDate.Compare(a.ReturnDate)
	})
	return out
}

func (s *Store) CreateReturn(_ context.Context, ret domain.Return) (*domain.Return, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, ok := s.sales[ret.SaleID]
	if !ok {
		return nil, store.Errorf(store.ErrNotFound, "عملية البيع %s غير موجودة", ret.SaleID)
	}
	product, ok := s.products[sale.ProductID]
	if !ok {
		return nil, store.Errorf(store.ErrNotFound, "المنتج %s غير موجود", sale.ProductID)
	}

	if ret.ID == "" {
		ret.ID = xid.New("ret")
	}
	if ret.ReturnDate.IsZero() {
		ret.ReturnDate = s.now()
	}
	checked, err := inventory.PrepareReturn(product, sale, s.listReturns(sale.ID), ret)
	if err != nil {
		return nil, err
	}

	product = inventory.IncreaseStock(product, inventory.SoldAmount(product, checked.ReturnedQuantity, checked.ReturnedWeight))
	product.UpdatedAt = checked.ReturnDate
	s.products[product.ID] = product
	s.returns[checked.ID] = checked
	return &checked, nil
}

func (s *Store) ListDebtCustomers(_ context.Context) ([]domain.DebtCustomer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.DebtCustomer, 0, len(s.customers))
	for _, c := range s.customers {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b domain.DebtCustomer) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return out, nil
}

func (s *Store) GetDebtCustomerByID(_ context.Context, id string) (*domain.DebtCustomer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.customers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (s *Store) CreateDebtCustomer(_ context.Context, customer domain.DebtCustomer) (*domain.DebtCustomer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if customer.ID == "" {
		customer.ID = xid.New("cust")
	}
	now := s.now()
	customer.CreatedAt, customer.UpdatedAt = now, now
	s.customers[customer.ID] = customer
	return &customer, nil
}

func (s *Store) UpdateDebtCustomer(_ context.Context, customer domain.DebtCustomer) (*domain.DebtCustomer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.customers[customer.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	customer.CreatedAt = existing.CreatedAt
	customer.UpdatedAt = s.now()
	s.customers[customer.ID] = customer
	return &customer, nil
}

func (s *Store) DeleteDebtCustomer(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.customers[id]; !ok {
		return store.ErrNotFound
	}
	debts := 0
	for _, d := range s.debts {
		if d.CustomerID == id {
			debts++
		}
	}
	if debts > 0 {
		return store.Errorf(store.ErrConflict, "لا يمكن حذف العميل لوجود %d دين مرتبط به", debts)
	}
	delete(s.customers, id)
	return nil
}

func (s *Store) ListDebts(_ context.Context, filter domain.DebtFilter) ([]domain.Debt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Debt, 0)
	for _, d := range s.debts {
		if filter.CustomerID != "" && d.CustomerID != filter.CustomerID {
			continue
		}
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		if c, ok := s.customers[d.CustomerID]; ok {
			d.Customer = &c
		}
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b domain.Debt) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func (s *Store) GetDebtByID(_ context.Context, id string) (*domain.Debt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.debts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if c, ok := s.customers[d.CustomerID]; ok {
		d.Customer = &c
	}
	d.Payments = slices.Clone(s.debtPayments[id])
	if d.Payments == nil {
		d.Payments = []domain.DebtPayment{}
	}
	return &d, nil
}

func (s *Store) ListDebtPayments(_ context.Context, debtID string) ([]domain.DebtPayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := slices.Clone(s.debtPayments[debtID])
	if out == nil {
		out = []domain.DebtPayment{}
	}
	return out, nil
}

func (s *Store) ApplyDebtPayment(_ context.Context, payment domain.DebtPayment) (*domain.DebtPaymentResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	debt, ok := s.debts[payment.DebtID]
	if !ok {
		return nil, store.Errorf(store.ErrNotFound, "الدين %s غير موجود", payment.DebtID)
	}
	updated, err := ledger.ApplyPayment(debt, payment.Amount)
	if err != nil {
		return nil, err
	}

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
	updated.UpdatedAt = now
	s.debts[updated.ID] = updated
	s.debtPayments[updated.ID] = append(s.debtPayments[updated.ID], payment)
	return &domain.DebtPaymentResult{Debt: updated, Payment: payment}, nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.User, 0, len(s.usersByID))
	for _, u := range s.usersByID {
		users = append(users, u)
	}
	slices.SortFunc(users, func(a, b domain.User) int {
		return cmp.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.usersByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.usersByID {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) CreateUser(_ context.Context, user domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(user.Username) == "" || strings.TrimSpace(user.Password) == "" {
		return nil, store.Errorf(store.ErrInvalidInput, "اسم المستخدم وكلمة المرور مطلوبان")
	}
	if s.usernameTaken("", user.Username) {
		return nil, store.Errorf(store.ErrConflict, "اسم المستخدم %q مستخدم مسبقاً", user.Username)
	}
	if user.ID == "" {
		user.ID = xid.New("user")
	}
	if user.Role == "" {
		user.Role = domain.RoleUser
	}
	now := s.now()
	user.CreatedAt, user.UpdatedAt = now, now
	s.usersByID[user.ID] = user
	return &user, nil
}

func (s *Store) UpdateUser(_ context.Context, user domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.usersByID[user.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if s.usernameTaken(user.ID, user.Username) {
		return nil, store.Errorf(store.ErrConflict, "اسم المستخدم %q مستخدم مسبقاً", user.Username)
	}
	user.CreatedAt = existing.CreatedAt
	user.LastLogin = existing.LastLogin
	user.UpdatedAt = s.now()
	s.usersByID[user.ID] = user
	return &user, nil
}

func (s *Store) usernameTaken(exceptID, username string) bool {
	for _, u := range s.usersByID {
		if u.ID != exceptID && u.Username == username {
			return true
		}
	}
	return false
}

func (s *Store) DeactivateUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.usersByID[id]
	if !ok {
		return store.ErrNotFound
	}
	u.IsActive = false
	u.UpdatedAt = s.now()
	s.usersByID[id] = u
	return nil
}

func (s *Store) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.usersByID[id]
	if !ok {
		return store.ErrNotFound
	}
	u.LastLogin = &at
	s.usersByID[id] = u
	return nil
}

// Migrate has nothing to do; the maps are always in the latest shape.
func (s *Store) Migrate(_ context.Context) (domain.MigrationReport, error) {
	return domain.MigrationReport{Success: true, Changes: []string{}, AlreadyMigrated: true}, nil
}

func cloneCategory(c domain.Category) domain.Category {
	c.Subcategories = slices.Clone(c.Subcategories)
	if c.Subcategories == nil {
		c.Subcategories = []domain.Subcategory{}
	}
	return c
}
