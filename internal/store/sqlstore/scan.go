package sqlstore

import (
	"database/sql"
	"fmt"

	"mustawda/backend/internal/domain"
)

// rowScanner is satisfied by *sql.Row, *sql.Rows and their sqlx wrappers.
type rowScanner interface {
	Scan(dest ...any) error
}

const productSelect = `SELECT id, name, COALESCE(description, ''), COALESCE(category, ''), COALESCE(subcategory, ''),
	COALESCE(measurement_type, 'quantity'), COALESCE(wholesale_cost_price, 0), COALESCE(wholesale_price, 0),
	COALESCE(sale_price, 0), COALESCE(discount, 0), COALESCE(quantity, 0), COALESCE(min_quantity, 0),
	COALESCE(weight, 0), COALESCE(min_weight, 0), COALESCE(weight_unit, 'kg'), COALESCE(currency, 'IQD'),
	COALESCE(barcode, ''), COALESCE(created_at, ''), COALESCE(updated_at, '')
	FROM products`

func scanProduct(row rowScanner) (domain.Product, error) {
	var p domain.Product
	var createdAt, updatedAt string
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.Subcategory,
		&p.MeasurementType, &p.WholesaleCostPrice, &p.WholesalePrice,
		&p.SalePrice, &p.Discount, &p.Quantity, &p.MinQuantity,
		&p.Weight, &p.MinWeight, &p.WeightUnit, &p.Currency,
		&p.Barcode, &createdAt, &updatedAt); err != nil {
		return domain.Product{}, err
	}

	switch p.MeasurementType {
	case domain.MeasurementQuantity, domain.MeasurementWeight:
	default:
		return domain.Product{}, fmt.Errorf("product %s: unexpected measurement_type %q", p.ID, p.MeasurementType)
	}
	var err error
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.Product{}, fmt.Errorf("product %s created_at: %w", p.ID, err)
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return domain.Product{}, fmt.Errorf("product %s updated_at: %w", p.ID, err)
	}
	return p, nil
}

const categorySelect = `SELECT id, name, COALESCE(description, ''), COALESCE(created_at, ''), COALESCE(updated_at, '') FROM categories`

func scanCategory(row rowScanner) (domain.Category, error) {
	var c domain.Category
	var createdAt, updatedAt string
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &createdAt, &updatedAt); err != nil {
		return domain.Category{}, err
	}
	var err error
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.Category{}, fmt.Errorf("category %s created_at: %w", c.ID, err)
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return domain.Category{}, fmt.Errorf("category %s updated_at: %w", c.ID, err)
	}
	c.Subcategories = []domain.Subcategory{}
	return c, nil
}

const subcategorySelect = `SELECT id, category_id, name, COALESCE(description, '') FROM subcategories`

func scanSubcategory(row rowScanner) (domain.Subcategory, error) {
	var sc domain.Subcategory
	if err := row.Scan(&sc.ID, &sc.CategoryID, &sc.Name, &sc.Description); err != nil {
		return domain.Subcategory{}, err
	}
	return sc, nil
}

const saleSelect = `SELECT id, product_id, COALESCE(sale_type, ''), COALESCE(quantity, 0), COALESCE(weight, 0),
	COALESCE(unit_price, 0), COALESCE(total_price, 0), COALESCE(discount, 0), COALESCE(final_price, 0),
	COALESCE(customer_name, ''), COALESCE(payment_method, 'cash'), debt_customer_id, debt_id, sale_date
	FROM sales`

func scanSale(row rowScanner) (domain.Sale, error) {
	var s domain.Sale
	var debtCustomerID, debtID sql.NullString
	var saleDate string
	if err := row.Scan(&s.ID, &s.ProductID, &s.SaleType, &s.Quantity, &s.Weight,
		&s.UnitPrice, &s.TotalPrice, &s.Discount, &s.FinalPrice,
		&s.CustomerName, &s.PaymentMethod, &debtCustomerID, &debtID, &saleDate); err != nil {
		return domain.Sale{}, err
	}

	switch s.SaleType {
	case "", domain.SaleTypeRetail, domain.SaleTypeWholesale:
	default:
		return domain.Sale{}, fmt.Errorf("sale %s: unexpected sale_type %q", s.ID, s.SaleType)
	}
	switch s.PaymentMethod {
	case domain.PaymentCash, domain.PaymentDebt:
	default:
		return domain.Sale{}, fmt.Errorf("sale %s: unexpected payment_method %q", s.ID, s.PaymentMethod)
	}
	s.DebtCustomerID = debtCustomerID.String
	s.DebtID = debtID.String

	var err error
	if s.SaleDate, err = parseTime(saleDate); err != nil {
		return domain.Sale{}, fmt.Errorf("sale %s sale_date: %w", s.ID, err)
	}
	return s, nil
}

const returnSelect = `SELECT id, sale_id, product_id, COALESCE(returned_quantity, 0), COALESCE(returned_weight, 0),
	COALESCE(unit_price, 0), COALESCE(total_refund, 0), COALESCE(reason, ''), COALESCE(processed_by, ''), return_date
	FROM returns`

func scanReturn(row rowScanner) (domain.Return, error) {
	var r domain.Return
	var returnDate string
	if err := row.Scan(&r.ID, &r.SaleID, &r.ProductID, &r.ReturnedQuantity, &r.ReturnedWeight,
		&r.UnitPrice, &r.TotalRefund, &r.Reason, &r.ProcessedBy, &returnDate); err != nil {
		return domain.Return{}, err
	}
	var err error
	if r.ReturnDate, err = parseTime(returnDate); err != nil {
		return domain.Return{}, fmt.Errorf("return %s return_date: %w", r.ID, err)
	}
	return r, nil
}

const debtCustomerSelect = `SELECT id, name, COALESCE(phone, ''), COALESCE(address, ''), COALESCE(created_at, ''), COALESCE(updated_at, '') FROM debt_customers`

func scanDebtCustomer(row rowScanner) (domain.DebtCustomer, error) {
	var c domain.DebtCustomer
	var createdAt, updatedAt string
	if err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.Address, &createdAt, &updatedAt); err != nil {
		return domain.DebtCustomer{}, err
	}
	var err error
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.DebtCustomer{}, fmt.Errorf("debt customer %s created_at: %w", c.ID, err)
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return domain.DebtCustomer{}, fmt.Errorf("debt customer %s updated_at: %w", c.ID, err)
	}
	return c, nil
}

const debtSelect = `SELECT id, sale_id, customer_id, total_amount, amount_paid, amount_remaining, status, due_date,
	COALESCE(created_at, ''), COALESCE(updated_at, '') FROM debts`

func scanDebt(row rowScanner) (domain.Debt, error) {
	var d domain.Debt
	var dueDate sql.NullString
	var createdAt, updatedAt string
	if err := row.Scan(&d.ID, &d.SaleID, &d.CustomerID, &d.TotalAmount, &d.AmountPaid, &d.AmountRemaining,
		&d.Status, &dueDate, &createdAt, &updatedAt); err != nil {
		return domain.Debt{}, err
	}

	switch d.Status {
	case domain.DebtUnpaid, domain.DebtPartial, domain.DebtPaid:
	default:
		return domain.Debt{}, fmt.Errorf("debt %s: unexpected status %q", d.ID, d.Status)
	}
	var err error
	if dueDate.Valid && dueDate.String != "" {
		due, err := parseTime(dueDate.String)
		if err != nil {
			return domain.Debt{}, fmt.Errorf("debt %s due_date: %w", d.ID, err)
		}
		d.DueDate = &due
	}
	if d.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.Debt{}, fmt.Errorf("debt %s created_at: %w", d.ID, err)
	}
	if d.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return domain.Debt{}, fmt.Errorf("debt %s updated_at: %w", d.ID, err)
	}
	return d, nil
}

const debtPaymentSelect = `SELECT id, debt_id, amount, payment_date, COALESCE(payment_method, 'cash'), COALESCE(notes, '') FROM debt_payments`

func scanDebtPayment(row rowScanner) (domain.DebtPayment, error) {
	var p domain.DebtPayment
	var paymentDate string
	if err := row.Scan(&p.ID, &p.DebtID, &p.Amount, &paymentDate, &p.PaymentMethod, &p.Notes); err != nil {
		return domain.DebtPayment{}, err
	}
	var err error
	if p.PaymentDate, err = parseTime(paymentDate); err != nil {
		return domain.DebtPayment{}, fmt.Errorf("debt payment %s payment_date: %w", p.ID, err)
	}
	return p, nil
}

const userSelect = `SELECT id, username, password, role, COALESCE(full_name, ''), COALESCE(email, ''), COALESCE(phone, ''),
	COALESCE(is_active, 1), last_login, COALESCE(created_at, ''), COALESCE(updated_at, '') FROM users`

func scanUser(row rowScanner) (domain.User, error) {
	var u domain.User
	var active int
	var lastLogin sql.NullString
	var createdAt, updatedAt string
	if err := row.Scan(&u.ID, &u.Username, &u.Password, &u.Role, &u.FullName, &u.Email, &u.Phone,
		&active, &lastLogin, &createdAt, &updatedAt); err != nil {
		return domain.User{}, err
	}

	switch u.Role {
	case domain.RoleAdmin, domain.RoleAssistantAdmin, domain.RoleUser:
	default:
		return domain.User{}, fmt.Errorf("user %s: unexpected role %q", u.ID, u.Role)
	}
	u.IsActive = active != 0

	var err error
	if lastLogin.Valid && lastLogin.String != "" {
		at, err := parseTime(lastLogin.String)
		if err != nil {
			return domain.User{}, fmt.Errorf("user %s last_login: %w", u.ID, err)
		}
		u.LastLogin = &at
	}
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.User{}, fmt.Errorf("user %s created_at: %w", u.ID, err)
	}
	if u.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return domain.User{}, fmt.Errorf("user %s updated_at: %w", u.ID, err)
	}
	return u, nil
}
