package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"mustawda/backend/internal/domain"
)

type migration struct {
	version     string
	description string
	// needed inspects the live schema; apply runs only when it reports true.
	needed func(ctx context.Context, s *Store, tx *sqlx.Tx) (bool, error)
	apply  func(ctx context.Context, s *Store, tx *sqlx.Tx) ([]string, error)
}

type columnDef struct {
	name string
	ddl  string
}

var migrations = []migration{
	{
		version:     "001_base_tables",
		description: "create missing tables",
		needed:      missingTablesNeeded,
		apply:       createMissingTables,
	},
	addColumnsStep("002_product_measurement", "products", []columnDef{
		{"measurement_type", "TEXT NOT NULL DEFAULT 'quantity'"},
		{"weight", "DOUBLE PRECISION NOT NULL DEFAULT 0"},
		{"min_weight", "DOUBLE PRECISION NOT NULL DEFAULT 0"},
		{"weight_unit", "TEXT NOT NULL DEFAULT 'kg'"},
	}),
	addColumnsStep("003_product_currency_barcode", "products", []columnDef{
		{"currency", "TEXT NOT NULL DEFAULT 'IQD'"},
		{"barcode", "TEXT NOT NULL DEFAULT ''"},
	}),
	{
		version:     "004_product_discount_amount",
		description: "convert percentage discounts to fixed amounts",
		needed:      discountConversionNeeded,
		apply:       convertDiscounts,
	},
	addColumnsStep("005_sale_columns", "sales", []columnDef{
		{"sale_type", "TEXT NOT NULL DEFAULT 'retail'"},
		{"weight", "DOUBLE PRECISION NOT NULL DEFAULT 0"},
		{"payment_method", "TEXT NOT NULL DEFAULT 'cash'"},
		{"debt_customer_id", "TEXT"},
		{"debt_id", "TEXT"},
	}),
	{
		version:     "006_sale_payment_check",
		description: "allow debt as a sale payment method",
		needed:      paymentCheckNeeded,
		apply:       rebuildSales,
	},
	addColumnsStep("007_return_weight", "returns", []columnDef{
		{"returned_weight", "DOUBLE PRECISION NOT NULL DEFAULT 0"},
	}),
	{
		version:     "008_debt_balances",
		description: "add and backfill debt balances",
		needed:      debtBalancesNeeded,
		apply:       backfillDebtBalances,
	},
	addColumnsStep("009_user_profile", "users", []columnDef{
		{"full_name", "TEXT NOT NULL DEFAULT ''"},
		{"email", "TEXT NOT NULL DEFAULT ''"},
		{"phone", "TEXT NOT NULL DEFAULT ''"},
		{"is_active", "INTEGER NOT NULL DEFAULT 1"},
		{"last_login", "TEXT"},
		{"updated_at", "TEXT NOT NULL DEFAULT ''"},
	}),
	{
		version:     "010_indexes",
		description: "create lookup indexes",
		needed:      indexesNeeded,
		apply:       createIndexes,
	},
}

// Migrate brings the schema up to date inside one transaction. Steps already
// recorded in schema_migrations are skipped; an unrecorded step whose
// precondition is already satisfied is recorded without changes.
func (s *Store) Migrate(ctx context.Context) (domain.MigrationReport, error) {
	changes := make([]string, 0)

	err := s.withMigrationTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, schemaMigrationsDDL); err != nil {
			return fmt.Errorf("failed to create schema_migrations: %w", err)
		}
		applied, err := appliedVersions(ctx, tx)
		if err != nil {
			return err
		}

		for _, m := range migrations {
			if applied[m.version] {
				continue
			}
			needed, err := m.needed(ctx, s, tx)
			if err != nil {
				return fmt.Errorf("migration %s precondition: %w", m.version, err)
			}
			if needed {
				stepChanges, err := m.apply(ctx, s, tx)
				if err != nil {
					return fmt.Errorf("migration %s: %w", m.version, err)
				}
				changes = append(changes, stepChanges...)
				s.logger.WithFields(logrus.Fields{
					"module":  "sqlstore",
					"version": m.version,
					"changes": len(stepChanges),
				}).Info("migration applied")
			}
			if _, err := exec(ctx, tx, `INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)`,
				m.version, m.description, formatTime(s.now())); err != nil {
				return fmt.Errorf("failed to record migration %s: %w", m.version, err)
			}
		}
		return nil
	})
	if err != nil {
		return domain.MigrationReport{Success: false, Changes: changes}, err
	}

	return domain.MigrationReport{
		Success:         true,
		Changes:         changes,
		AlreadyMigrated: len(changes) == 0,
	}, nil
}

// withMigrationTx runs fn in a transaction. On SQLite it pins a connection
// and turns foreign key enforcement off around the transaction so a parent
// table can be dropped and recreated; the pragma has no effect once a
// transaction is open.
func (s *Store) withMigrationTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	if s.dialect.name != "sqlite" {
		return s.withTx(ctx, fn)
	}

	conn, err := s.db.Connx(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `PRAGMA foreign_keys = OFF`); err != nil {
		return fmt.Errorf("failed to disable foreign keys: %w", err)
	}
	defer func() {
		if _, err := conn.ExecContext(context.Background(), `PRAGMA foreign_keys = ON`); err != nil {
			s.logger.WithError(err).WithField("module", "sqlstore").Error("failed to re-enable foreign keys")
		}
	}()

	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func appliedVersions(ctx context.Context, tx *sqlx.Tx) (map[string]bool, error) {
	rows, err := tx.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func missingTablesNeeded(ctx context.Context, s *Store, tx *sqlx.Tx) (bool, error) {
	for _, t := range baseTables {
		ok, err := s.dialect.tableExists(ctx, tx, t.name)
		if err != nil {
			return false, err
		}
		if !ok {
			return true, nil
		}
	}
	return false, nil
}

func createMissingTables(ctx context.Context, s *Store, tx *sqlx.Tx) ([]string, error) {
	var changes []string
	for _, t := range baseTables {
		ok, err := s.dialect.tableExists(ctx, tx, t.name)
		if err != nil {
			return nil, err
		}
		if ok {
			continue
		}
		if _, err := tx.ExecContext(ctx, t.ddl); err != nil {
			return nil, fmt.Errorf("failed to create table %s: %w", t.name, err)
		}
		changes = append(changes, fmt.Sprintf("created table %s", t.name))
	}
	return changes, nil
}

func addColumnsStep(version string, table string, cols []columnDef) migration {
	missing := func(ctx context.Context, s *Store, tx *sqlx.Tx) ([]columnDef, error) {
		existing, err := s.dialect.columns(ctx, tx, table)
		if err != nil {
			return nil, err
		}
		var out []columnDef
		for _, c := range cols {
			if !existing[c.name] {
				out = append(out, c)
			}
		}
		return out, nil
	}

	return migration{
		version:     version,
		description: fmt.Sprintf("add missing columns to %s", table),
		needed: func(ctx context.Context, s *Store, tx *sqlx.Tx) (bool, error) {
			m, err := missing(ctx, s, tx)
			return len(m) > 0, err
		},
		apply: func(ctx context.Context, s *Store, tx *sqlx.Tx) ([]string, error) {
			m, err := missing(ctx, s, tx)
			if err != nil {
				return nil, err
			}
			changes := make([]string, 0, len(m))
			for _, c := range m {
				stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, c.name, c.ddl)
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return nil, fmt.Errorf("failed to add column %s.%s: %w", table, c.name, err)
				}
				changes = append(changes, fmt.Sprintf("added column %s.%s", table, c.name))
			}
			return changes, nil
		},
	}
}

func discountConversionNeeded(ctx context.Context, s *Store, tx *sqlx.Tx) (bool, error) {
	cols, err := s.dialect.columns(ctx, tx, "products")
	if err != nil {
		return false, err
	}
	return cols["discount_percent"], nil
}

func convertDiscounts(ctx context.Context, s *Store, tx *sqlx.Tx) ([]string, error) {
	var changes []string
	cols, err := s.dialect.columns(ctx, tx, "products")
	if err != nil {
		return nil, err
	}
	if !cols["discount"] {
		if _, err := tx.ExecContext(ctx, `ALTER TABLE products ADD COLUMN discount DOUBLE PRECISION NOT NULL DEFAULT 0`); err != nil {
			return nil, fmt.Errorf("failed to add column products.discount: %w", err)
		}
		changes = append(changes, "added column products.discount")
	}

	n, err := exec(ctx, tx, `UPDATE products
		SET discount = sale_price * discount_percent / 100
		WHERE COALESCE(discount_percent, 0) > 0 AND COALESCE(discount, 0) = 0`)
	if err != nil {
		return nil, fmt.Errorf("failed to convert discounts: %w", err)
	}
	if n > 0 {
		changes = append(changes, fmt.Sprintf("converted %d percentage discounts to fixed amounts", n))
	}
	return changes, nil
}

// checkClauses extracts each CHECK (...) body from a constraint or table
// definition, matching parentheses.
func checkClauses(def string) []string {
	lower := strings.ToLower(def)
	var out []string
	for i := 0; ; {
		idx := strings.Index(lower[i:], "check")
		if idx < 0 {
			return out
		}
		start := i + idx + len("check")
		open := strings.Index(lower[start:], "(")
		if open < 0 {
			return out
		}
		pos := start + open
		depth := 0
		end := -1
		for j := pos; j < len(lower); j++ {
			switch lower[j] {
			case '(':
				depth++
			case ')':
				depth--
			}
			if depth == 0 {
				end = j
				break
			}
		}
		if end < 0 {
			return out
		}
		out = append(out, lower[pos:end+1])
		i = end + 1
	}
}

func paymentCheckNeeded(ctx context.Context, s *Store, tx *sqlx.Tx) (bool, error) {
	def, err := s.dialect.checkDefinitions(ctx, tx, "sales")
	if err != nil {
		return false, err
	}
	for _, clause := range checkClauses(def) {
		if strings.Contains(clause, "payment_method") && !strings.Contains(clause, "'debt'") {
			return true, nil
		}
	}
	return false, nil
}

// salesCopyDefaults fills NOT NULL columns while copying legacy rows.
var salesCopyDefaults = map[string]string{
	"sale_type":      "'retail'",
	"quantity":       "0",
	"weight":         "0",
	"unit_price":     "0",
	"total_price":    "0",
	"discount":       "0",
	"final_price":    "0",
	"customer_name":  "''",
	"payment_method": "'cash'",
}

// rebuildSales widens the payment method CHECK to admit debt. Postgres swaps
// the constraint in place; SQLite cannot alter a CHECK, so the table is
// recreated, copied and renamed over the old one.
func rebuildSales(ctx context.Context, s *Store, tx *sqlx.Tx) ([]string, error) {
	if s.dialect.name == "postgres" {
		return replaceSalesPaymentCheck(ctx, tx)
	}

	existing, err := s.dialect.columns(ctx, tx, "sales")
	if err != nil {
		return nil, err
	}

	var targets, sources []string
	for _, raw := range strings.Split(salesColumns, ",") {
		col := strings.TrimSpace(raw)
		def, hasDefault := salesCopyDefaults[col]
		switch {
		case existing[col] && hasDefault:
			sources = append(sources, fmt.Sprintf("COALESCE(%s, %s)", col, def))
		case existing[col]:
			sources = append(sources, col)
		case hasDefault:
			sources = append(sources, def)
		default:
			sources = append(sources, "NULL")
		}
		targets = append(targets, col)
	}

	// Orphans that predate the rebuild are tolerated; only new ones fail it.
	orphansBefore, err := salesOrphans(ctx, tx)
	if err != nil {
		return nil, err
	}

	stmts := []string{
		`DROP TABLE IF EXISTS sales_rebuild`,
		salesDDL("sales_rebuild"),
		fmt.Sprintf(`INSERT INTO sales_rebuild (%s) SELECT %s FROM sales`, strings.Join(targets, ", "), strings.Join(sources, ", ")),
		`DROP TABLE sales`,
		`ALTER TABLE sales_rebuild RENAME TO sales`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to rebuild sales: %w", err)
		}
	}
	for _, idx := range indexes {
		if strings.Contains(idx.ddl, " ON sales ") {
			if _, err := tx.ExecContext(ctx, idx.ddl); err != nil {
				return nil, fmt.Errorf("failed to restore sales index %s: %w", idx.name, err)
			}
		}
	}

	orphansAfter, err := salesOrphans(ctx, tx)
	if err != nil {
		return nil, err
	}
	if orphansAfter > orphansBefore {
		return nil, fmt.Errorf("failed to rebuild sales: %d rows lost their sale", orphansAfter-orphansBefore)
	}
	return []string{"rebuilt sales to allow debt payment method"}, nil
}

// salesOrphans counts rows in other tables whose foreign key to sales has no
// matching sale.
func salesOrphans(ctx context.Context, tx *sqlx.Tx) (int, error) {
	n, err := countRows(ctx, tx, `SELECT count(*) FROM pragma_foreign_key_check() WHERE "parent" = 'sales'`)
	if err != nil {
		return 0, fmt.Errorf("failed to check sales references: %w", err)
	}
	return n, nil
}

func replaceSalesPaymentCheck(ctx context.Context, tx *sqlx.Tx) ([]string, error) {
	var names []string
	err := tx.SelectContext(ctx, &names, `SELECT c.conname
		FROM pg_constraint c
		JOIN pg_class t ON t.oid = c.conrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		WHERE t.relname = 'sales' AND n.nspname = current_schema()
		  AND c.contype = 'c' AND pg_get_constraintdef(c.oid) LIKE '%payment_method%'`)
	if err != nil {
		return nil, fmt.Errorf("failed to read sales constraints: %w", err)
	}

	changes := make([]string, 0, len(names)+1)
	for _, name := range names {
		stmt := fmt.Sprintf(`ALTER TABLE sales DROP CONSTRAINT %q`, name)
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to drop constraint %s: %w", name, err)
		}
		changes = append(changes, fmt.Sprintf("dropped constraint sales.%s", name))
	}
	if _, err := tx.ExecContext(ctx, `ALTER TABLE sales ADD CONSTRAINT sales_payment_method_check
		CHECK (payment_method IN ('cash', 'debt'))`); err != nil {
		return nil, fmt.Errorf("failed to add payment method check: %w", err)
	}
	return append(changes, "widened sales payment method check to allow debt"), nil
}

const debtStatusCase = `CASE WHEN amount_remaining <= 0 THEN 'paid' WHEN amount_paid > 0 THEN 'partial' ELSE 'unpaid' END`

func debtBalancesNeeded(ctx context.Context, s *Store, tx *sqlx.Tx) (bool, error) {
	cols, err := s.dialect.columns(ctx, tx, "debts")
	if err != nil {
		return false, err
	}
	if !cols["amount_paid"] || !cols["amount_remaining"] {
		return true, nil
	}
	n, err := countRows(ctx, tx, `SELECT count(*) FROM debts
		WHERE ABS(amount_paid + amount_remaining - total_amount) > 0.000001
		   OR status <> `+debtStatusCase)
	if err != nil {
		return false, fmt.Errorf("failed to inspect debt balances: %w", err)
	}
	return n > 0, nil
}

func backfillDebtBalances(ctx context.Context, s *Store, tx *sqlx.Tx) ([]string, error) {
	var changes []string
	cols, err := s.dialect.columns(ctx, tx, "debts")
	if err != nil {
		return nil, err
	}
	for _, c := range []string{"amount_paid", "amount_remaining"} {
		if cols[c] {
			continue
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE debts ADD COLUMN %s DOUBLE PRECISION NOT NULL DEFAULT 0", c)); err != nil {
			return nil, fmt.Errorf("failed to add column debts.%s: %w", c, err)
		}
		changes = append(changes, fmt.Sprintf("added column debts.%s", c))
	}

	n, err := exec(ctx, tx, `UPDATE debts
		SET amount_remaining = CASE WHEN total_amount - amount_paid < 0 THEN 0 ELSE total_amount - amount_paid END
		WHERE ABS(amount_paid + amount_remaining - total_amount) > 0.000001`)
	if err != nil {
		return nil, fmt.Errorf("failed to backfill debt balances: %w", err)
	}
	if n > 0 {
		changes = append(changes, fmt.Sprintf("recomputed remaining balance on %d debts", n))
	}

	n, err = exec(ctx, tx, `UPDATE debts SET status = `+debtStatusCase+` WHERE status <> `+debtStatusCase)
	if err != nil {
		return nil, fmt.Errorf("failed to recompute debt status: %w", err)
	}
	if n > 0 {
		changes = append(changes, fmt.Sprintf("recomputed status on %d debts", n))
	}
	return changes, nil
}

func indexesNeeded(ctx context.Context, s *Store, tx *sqlx.Tx) (bool, error) {
	for _, idx := range indexes {
		ok, err := s.dialect.indexExists(ctx, tx, idx.name)
		if err != nil {
			return false, err
		}
		if !ok {
			return true, nil
		}
	}
	return false, nil
}

func createIndexes(ctx context.Context, s *Store, tx *sqlx.Tx) ([]string, error) {
	var changes []string
	for _, idx := range indexes {
		ok, err := s.dialect.indexExists(ctx, tx, idx.name)
		if err != nil {
			return nil, err
		}
		if ok {
			continue
		}
		if _, err := tx.ExecContext(ctx, idx.ddl); err != nil {
			return nil, fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
		changes = append(changes, fmt.Sprintf("created index %s", idx.name))
	}
	return changes, nil
}
