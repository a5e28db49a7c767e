// Package server initializes and runs the auth server: it opens the
// credential store, wires services, the HTTP API and metrics, and handles
// graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/observability"
	"github.com/dmitrijs2005/gophauth/internal/server/services"

	hs "github.com/dmitrijs2005/gophauth/internal/server/http"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	metrics  *observability.Metrics
	accounts *services.AccountService
	server   *hs.Server
}

// NewApp validates c, opens the store and wires every component. A
// configuration problem is returned as *config.Error before anything is
// opened.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	db, rm, err := OpenStore(ctx, c, logger)
	if err != nil {
		return nil, err
	}
	if db != nil {
		if err := metrics.RegisterDB(db, "accounts"); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	accounts := services.NewAccountService(db, rm, c, logger, metrics)
	if c.SeedAccounts {
		if err := accounts.Seed(ctx, services.DefaultSeedAccounts()); err != nil {
			if db != nil {
				_ = db.Close()
			}
			return nil, err
		}
	}

	var ping hs.Pinger
	if db != nil {
		ping = db.PingContext
	}

	router := hs.NewRouter(hs.RouterDeps{
		Accounts:  accounts,
		Validator: auth.NewTokenValidator(c.TokenOptions()),
		Metrics:   metrics,
		Ping:      ping,
		Logger:    logger,
	})

	return &App{
		config:   c,
		logger:   logger,
		db:       db,
		metrics:  metrics,
		accounts: accounts,
		server:   hs.NewServer(c.HTTPAddr, router, logger, c.ShutdownTimeout),
	}, nil
}

// Run serves until ctx is canceled or SIGINT/SIGTERM/SIGQUIT arrives, then
// shuts the HTTP server down and closes the store.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	app.logger.Info(ctx, "Starting app...")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.server.Run(ctx)
	})

	err := g.Wait()

	if app.db != nil {
		if cerr := app.db.Close(); cerr != nil {
			app.logger.Error(context.Background(), "closing store", "error", cerr)
		}
	}
	app.logger.Info(context.Background(), "App stopped")
	return err
}
