// Package sqlstore implements store.Repository over database/sql through
// sqlx. The same statements serve the embedded SQLite file and Postgres:
// queries are written with ? placeholders and rebound per driver, and the
// few dialect differences (row locks, schema introspection) live in dialect.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"mustawda/backend/internal/store"
)

const (
	driverSQLite   = "sqlite"
	driverPostgres = "pgx"
)

var _ store.Repository = (*Store)(nil)

type Store struct {
	db      *sqlx.DB
	dialect dialect
	logger  *logrus.Logger
	now     func() time.Time
}

var sqlitePragmas = []string{
	"PRAGMA foreign_keys = ON",
	"PRAGMA journal_mode = WAL",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA synchronous = NORMAL",
}

// ConnectSQLite opens the embedded database file, creating its directory when
// needed. The pool is pinned to one connection so transactions run serially.
func ConnectSQLite(ctx context.Context, path string) (*sqlx.DB, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	sqlx.BindDriver(driverSQLite, sqlx.QUESTION)
	db, err := sqlx.Open(driverSQLite, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range sqlitePragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	return db, nil
}

func ConnectPostgres(ctx context.Context, databaseURL string) (*sqlx.DB, error) {
	db, err := sqlx.Open(driverPostgres, databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// New wraps an open handle. Call Migrate before serving requests.
func New(db *sqlx.DB, logger *logrus.Logger) *Store {
	if logger == nil {
		logger = logrus.New()
	}
	d := sqliteDialect
	if db.DriverName() == driverPostgres {
		d = postgresDialect
	}
	return &Store{
		db:      db,
		dialect: d,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
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

func exec(ctx context.Context, q sqlx.ExtContext, query string, args ...any) (int64, error) {
	res, err := q.ExecContext(ctx, q.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return affected, nil
}

func countRows(ctx context.Context, q sqlx.ExtContext, query string, args ...any) (int, error) {
	var n int
	if err := q.QueryRowxContext(ctx, q.Rebind(query), args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

type dialect struct {
	name      string
	forUpdate string
}

var (
	sqliteDialect   = dialect{name: "sqlite"}
	postgresDialect = dialect{name: "postgres", forUpdate: " FOR UPDATE"}
)

func (d dialect) tableExists(ctx context.Context, q sqlx.ExtContext, table string) (bool, error) {
	query := `SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`
	if d.name == "postgres" {
		query = `SELECT count(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = ?`
	}
	n, err := countRows(ctx, q, query, table)
	return n > 0, err
}

func (d dialect) columns(ctx context.Context, q sqlx.ExtContext, table string) (map[string]bool, error) {
	query := `SELECT name FROM pragma_table_info(?)`
	if d.name == "postgres" {
		query = `SELECT column_name FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = ?`
	}
	rows, err := q.QueryContext(ctx, q.Rebind(query), table)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect columns of %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols[strings.ToLower(name)] = true
	}
	return cols, rows.Err()
}

func (d dialect) indexExists(ctx context.Context, q sqlx.ExtContext, name string) (bool, error) {
	query := `SELECT count(*) FROM sqlite_master WHERE type = 'index' AND name = ?`
	if d.name == "postgres" {
		query = `SELECT count(*) FROM pg_indexes WHERE schemaname = current_schema() AND indexname = ?`
	}
	n, err := countRows(ctx, q, query, name)
	return n > 0, err
}

// checkDefinitions returns the text of every CHECK constraint on table.
// SQLite keeps them inside the CREATE TABLE statement.
func (d dialect) checkDefinitions(ctx context.Context, q sqlx.ExtContext, table string) (string, error) {
	query := `SELECT COALESCE(sql, '') FROM sqlite_master WHERE type = 'table' AND name = ?`
	if d.name == "postgres" {
		query = `SELECT COALESCE(string_agg(pg_get_constraintdef(c.oid), ' '), '')
			FROM pg_constraint c JOIN pg_class t ON t.oid = c.conrelid
			WHERE t.relname = ? AND c.contype = 'c'`
	}
	var def string
	if err := q.QueryRowxContext(ctx, q.Rebind(query), table).Scan(&def); err != nil {
		return "", fmt.Errorf("failed to read constraints of %s: %w", table, err)
	}
	return def, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

// Timestamps are stored as fixed-width UTC text so lexical order matches
// chronological order on both engines.
const timeLayout = "2006-01-02T15:04:05.000000Z"

var legacyTimeLayouts = []string{
	timeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range legacyTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", raw)
}

func nullTime(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return formatTime(*t)
}

func nullIfEmpty(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
