// Package server initializes and runs the relay application: it opens the
// database, applies migrations, wires the service layer together, and
// serves the HTTP API until shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/anonrelay/internal/logging"
	"github.com/dmitrijs2005/anonrelay/internal/sentiment"
	"github.com/dmitrijs2005/anonrelay/internal/server/config"
	"github.com/dmitrijs2005/anonrelay/internal/server/delivery"
	"github.com/dmitrijs2005/anonrelay/internal/server/httpapi"
	"github.com/dmitrijs2005/anonrelay/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/anonrelay/internal/server/services"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	api    *httpapi.Server
}

func NewApp(cfg *config.Config) (*App, error) {

	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(context.Background(), db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	webhook := delivery.NewWebhookClient(cfg.WebhookURL, cfg.WebhookToken, cfg.DeliveryTimeout)

	identity := services.NewIdentityService(db, rm)
	tokens := services.NewReplyTokenService(db, rm)
	audit := services.NewAuditService(db, rm, webhook, logger)
	limiter := services.NewRateLimitService(db, rm, audit, cfg)
	media := services.NewMediaService(cfg)
	analytics := services.NewAnalyticsService(db, rm)

	relay := services.NewRelayService(db, rm, cfg, logger,
		sentiment.Default(), identity, tokens, limiter, audit, media, webhook)

	api := httpapi.NewServer(cfg, logger, relay, identity, audit, analytics, media)

	return &App{config: cfg, logger: logger, db: db, api: api}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.api.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "error closing database", "error", err)
	}
}
