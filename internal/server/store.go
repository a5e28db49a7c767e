package server

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
)

// Startup ping backoff.
const (
	pingRetries = 5
	pingBackoff = 200 * time.Millisecond
)

// OpenStore opens the configured credential store, waits for it to answer
// and applies migrations. The returned *sql.DB is nil for the memory
// backend; otherwise the caller closes it.
func OpenStore(ctx context.Context, c *config.Config, logger logging.Logger) (*sql.DB, repomanager.RepositoryManager, error) {
	if c.DatabaseDriver == config.DriverMemory {
		logger.Warn(ctx, "using in-memory credential store; accounts are lost on restart")
		return nil, repomanager.NewMemoryRepositoryManager(), nil
	}

	dialect := accounts.Dialect(c.DatabaseDriver)
	rm, err := repomanager.NewSQLRepositoryManager(dialect, c.StoreTimeout)
	if err != nil {
		return nil, nil, err
	}

	db, err := sql.Open(repomanager.DriverName(dialect), c.DatabaseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("db init error: %w", err)
	}
	if dialect == accounts.DialectSQLite {
		// SQLite allows a single writer.
		db.SetMaxOpenConns(1)
	}

	if err := dbx.PingWithRetry(ctx, db, pingRetries, pingBackoff); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}

	logger.Info(ctx, "credential store ready", "driver", c.DatabaseDriver)
	return db, rm, nil
}
