// Package server initializes and runs the auth server: it wires the
// persistence gateway, the policy engine, the session registry and the TCP
// endpoint, and handles graceful shutdown on OS signals.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/authcore/internal/logging"
	"github.com/dmitrijs2005/authcore/internal/server/config"
	"github.com/dmitrijs2005/authcore/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authcore/internal/server/services"
	"github.com/dmitrijs2005/authcore/internal/server/sessions"
	"github.com/dmitrijs2005/authcore/internal/server/tcp"
	"github.com/sethvargo/go-retry"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	repoManager repomanager.RepositoryManager
	authService *services.AuthService
	registry    *sessions.Registry
}

func NewApp(cfg *config.Config) (*App, error) {

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slogger)

	rm, err := repomanager.NewPostgresRepositoryManager(cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	auth := services.NewAuthService(rm.Users(), rm.Attempts(), rm.Audits(), cfg, logger)

	return &App{
		config:      cfg,
		logger:      logger,
		repoManager: rm,
		authService: auth,
		registry:    sessions.NewRegistry(),
	}, nil
}

// waitForDB pings the database with a fibonacci backoff so the server
// survives starting before Postgres does (compose startup ordering).
func (app *App) waitForDB(ctx context.Context) error {
	b := retry.WithMaxRetries(10, retry.NewFibonacci(1*time.Second))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		if err := app.repoManager.Conn().PingContext(ctx); err != nil {
			app.logger.Warn(ctx, "database not ready, retrying", "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
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

func (app *App) startTCPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := tcp.NewServer(app.config, app.logger, app.authService, app.registry)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	if err := app.waitForDB(ctx); err != nil {
		app.logger.Error(ctx, "database unreachable", "error", err)
		return
	}

	if err := app.repoManager.RunMigrations(ctx); err != nil {
		app.logger.Error(ctx, "migration error", "error", err)
		return
	}

	if err := app.authService.EnsureDefaultAdmin(ctx, app.config.AdminUsername, app.config.AdminPassword); err != nil {
		app.logger.Error(ctx, "admin bootstrap error", "error", err)
		return
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startTCPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.repoManager.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}

	app.logger.Info(ctx, "App stopped")
}
