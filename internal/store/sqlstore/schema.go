package sqlstore

import "fmt"

// Column types are chosen to mean the same thing on SQLite and Postgres:
// TEXT ids and timestamps, INTEGER counts and flags, DOUBLE PRECISION money.

const schemaMigrationsDDL = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version TEXT PRIMARY KEY,
	description TEXT NOT NULL,
	applied_at TEXT NOT NULL
)`

const productsDDL = `CREATE TABLE IF NOT EXISTS products (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	subcategory TEXT NOT NULL DEFAULT '',
	measurement_type TEXT NOT NULL DEFAULT 'quantity' CHECK (measurement_type IN ('quantity', 'weight')),
	wholesale_cost_price DOUBLE PRECISION NOT NULL DEFAULT 0,
	wholesale_price DOUBLE PRECISION NOT NULL DEFAULT 0,
	sale_price DOUBLE PRECISION NOT NULL DEFAULT 0,
	discount DOUBLE PRECISION NOT NULL DEFAULT 0,
	quantity INTEGER NOT NULL DEFAULT 0,
	min_quantity INTEGER NOT NULL DEFAULT 0,
	weight DOUBLE PRECISION NOT NULL DEFAULT 0,
	min_weight DOUBLE PRECISION NOT NULL DEFAULT 0,
	weight_unit TEXT NOT NULL DEFAULT 'kg',
	currency TEXT NOT NULL DEFAULT 'IQD',
	barcode TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

const categoriesDDL = `CREATE TABLE IF NOT EXISTS categories (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

const subcategoriesDDL = `CREATE TABLE IF NOT EXISTS subcategories (
	id TEXT PRIMARY KEY,
	category_id TEXT NOT NULL,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT ''
)`

// salesColumns lists the sales columns in DDL order; the rebuild step copies
// exactly these.
const salesColumns = `id, product_id, sale_type, quantity, weight, unit_price, total_price, discount,
	final_price, customer_name, payment_method, debt_customer_id, debt_id, sale_date`

func salesDDL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	product_id TEXT NOT NULL,
	sale_type TEXT NOT NULL DEFAULT 'retail',
	quantity INTEGER NOT NULL DEFAULT 0,
	weight DOUBLE PRECISION NOT NULL DEFAULT 0,
	unit_price DOUBLE PRECISION NOT NULL DEFAULT 0,
	total_price DOUBLE PRECISION NOT NULL DEFAULT 0,
	discount DOUBLE PRECISION NOT NULL DEFAULT 0,
	final_price DOUBLE PRECISION NOT NULL DEFAULT 0,
	customer_name TEXT NOT NULL DEFAULT '',
	payment_method TEXT NOT NULL DEFAULT 'cash' CHECK (payment_method IN ('cash', 'debt')),
	debt_customer_id TEXT,
	debt_id TEXT,
	sale_date TEXT NOT NULL
)`, table)
}

const returnsDDL = `CREATE TABLE IF NOT EXISTS returns (
	id TEXT PRIMARY KEY,
	sale_id TEXT NOT NULL,
	product_id TEXT NOT NULL,
	returned_quantity INTEGER NOT NULL DEFAULT 0,
	returned_weight DOUBLE PRECISION NOT NULL DEFAULT 0,
	unit_price DOUBLE PRECISION NOT NULL DEFAULT 0,
	total_refund DOUBLE PRECISION NOT NULL DEFAULT 0,
	reason TEXT NOT NULL DEFAULT '',
	processed_by TEXT NOT NULL DEFAULT '',
	return_date TEXT NOT NULL
)`

const debtCustomersDDL = `CREATE TABLE IF NOT EXISTS debt_customers (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	phone TEXT NOT NULL DEFAULT '',
	address TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

const debtsDDL = `CREATE TABLE IF NOT EXISTS debts (
	id TEXT PRIMARY KEY,
	sale_id TEXT NOT NULL,
	customer_id TEXT NOT NULL,
	total_amount DOUBLE PRECISION NOT NULL,
	amount_paid DOUBLE PRECISION NOT NULL DEFAULT 0,
	amount_remaining DOUBLE PRECISION NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'unpaid' CHECK (status IN ('unpaid', 'partial', 'paid')),
	due_date TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

const debtPaymentsDDL = `CREATE TABLE IF NOT EXISTS debt_payments (
	id TEXT PRIMARY KEY,
	debt_id TEXT NOT NULL,
	amount DOUBLE PRECISION NOT NULL,
	payment_date TEXT NOT NULL,
	payment_method TEXT NOT NULL DEFAULT 'cash',
	notes TEXT NOT NULL DEFAULT ''
)`

const usersDDL = `CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	password TEXT NOT NULL,
	role TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'assistant-admin', 'user')),
	full_name TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	phone TEXT NOT NULL DEFAULT '',
	is_active INTEGER NOT NULL DEFAULT 1,
	last_login TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL DEFAULT ''
)`

type tableDef struct {
	name string
	ddl  string
}

var baseTables = []tableDef{
	{"products", productsDDL},
	{"categories", categoriesDDL},
	{"subcategories", subcategoriesDDL},
	{"sales", salesDDL("sales")},
	{"returns", returnsDDL},
	{"debt_customers", debtCustomersDDL},
	{"debts", debtsDDL},
	{"debt_payments", debtPaymentsDDL},
	{"users", usersDDL},
}

type indexDef struct {
	name string
	ddl  string
}

var indexes = []indexDef{
	{"idx_sales_product", `CREATE INDEX IF NOT EXISTS idx_sales_product ON sales (product_id)`},
	{"idx_sales_date", `CREATE INDEX IF NOT EXISTS idx_sales_date ON sales (sale_date)`},
	{"idx_sales_debt", `CREATE INDEX IF NOT EXISTS idx_sales_debt ON sales (debt_id)`},
	{"idx_returns_sale", `CREATE INDEX IF NOT EXISTS idx_returns_sale ON returns (sale_id)`},
	{"idx_returns_product", `CREATE INDEX IF NOT EXISTS idx_returns_product ON returns (product_id)`},
	{"idx_debts_customer", `CREATE INDEX IF NOT EXISTS idx_debts_customer ON debts (customer_id)`},
	{"idx_debt_payments_debt", `CREATE INDEX IF NOT EXISTS idx_debt_payments_debt ON debt_payments (debt_id)`},
	{"idx_subcategories_category", `CREATE INDEX IF NOT EXISTS idx_subcategories_category ON subcategories (category_id)`},
	{"idx_products_barcode", `CREATE INDEX IF NOT EXISTS idx_products_barcode ON products (barcode)`},
}
