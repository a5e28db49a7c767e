// Package repomanager provides RepositoryManager implementations for the
// SQL backends (PostgreSQL, SQLite) and the in-memory store, wiring together
// repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/migrations"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/accounts"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// SQLRepositoryManager vends SQL-backed account repositories for one dialect.
type SQLRepositoryManager struct {
	dialect accounts.Dialect
	timeout time.Duration
}

// Accounts returns an accounts.Repository bound to the provided DBTX.
func (m *SQLRepositoryManager) Accounts(db dbx.DBTX) accounts.Repository {
	return accounts.NewSQLRepository(db, m.dialect, m.timeout)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *SQLRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect(gooseDialect(m.dialect)); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return err
	}
	return nil
}

// NewSQLRepositoryManager constructs a RepositoryManager for dialect.
// timeout bounds each repository statement (zero disables it).
func NewSQLRepositoryManager(dialect accounts.Dialect, timeout time.Duration) (RepositoryManager, error) {
	switch dialect {
	case accounts.DialectPostgres, accounts.DialectSQLite:
	default:
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}
	return &SQLRepositoryManager{dialect: dialect, timeout: timeout}, nil
}

// DriverName maps a dialect to its database/sql driver name.
func DriverName(dialect accounts.Dialect) string {
	if dialect == accounts.DialectSQLite {
		return "sqlite"
	}
	return "pgx"
}

func gooseDialect(dialect accounts.Dialect) string {
	if dialect == accounts.DialectSQLite {
		return "sqlite3"
	}
	return "pgx"
}
