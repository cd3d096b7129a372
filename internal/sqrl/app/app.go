package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/sqrl/internal/sqrl/http"
	"github.com/aussiebroadwan/sqrl/internal/sqrl/service"
	"github.com/aussiebroadwan/sqrl/internal/sqrl/store"
	"github.com/aussiebroadwan/sqrl/internal/sqrl/store/drivers/memory"
	"github.com/aussiebroadwan/sqrl/internal/sqrl/store/drivers/postgres"
	"github.com/aussiebroadwan/sqrl/internal/sqrl/store/drivers/sqlite"
	"github.com/aussiebroadwan/sqrl/pkg/cryptox"
	"github.com/aussiebroadwan/sqrl/pkg/jwtx"
	"github.com/aussiebroadwan/sqrl/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application wires the SQRL login service together.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db         store.Store
	keyManager *jwtx.KeyManager
	encrypter  *cryptox.KeyEncrypter

	// Services
	nuts                *service.NutRegistry
	tickets             *service.TicketService
	loginService        *service.LoginService
	askService          *service.AskService
	identityService     *service.IdentityService
	keyRotationService  *service.KeyRotationService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service:     "sqrl",
			Version:     BuildVersion,
			Env:         cfg.Env,
			Level:       cfg.LogLevel,
			Format:      cfg.LogFormat,
			Diagnostics: cfg.Diagnostics,
		}),
	}

	ctx := context.Background()

	// Initialize database first (required for persistent keys)
	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}

	keyManager, encrypter, err := InitSessionKeys(ctx, app.cfg, app.db, app.logger)
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to initialize session keys: %w", err)
	}
	app.keyManager = keyManager
	app.encrypter = encrypter

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Handler returns the HTTP handler, mostly for tests.
func (app *Application) Handler() http.Handler {
	return app.router
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("sqrl service starting", "port", app.cfg.Port, "version", BuildVersion)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.housekeepingService.Stop()
			_ = app.db.Close()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down sqrl service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("sqrl service stopped")
	return nil
}

// initDatabase opens the configured identity store and applies migrations
func (app *Application) initDatabase(ctx context.Context) error {
	var (
		db  store.Store
		err error
	)

	switch app.cfg.StoreDriver {
	case "memory":
		db = memory.NewStore()
		app.logger.Warn("using the in-memory identity store, identities are lost on restart")
	case "postgres":
		db, err = postgres.NewStore(ctx, app.cfg.DatabaseDSN)
	default:
		host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
		db, err = sqlite.NewStore(host)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.StoreDriver)
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	rules := app.cfg.PathRules()

	app.nuts = service.NewNutRegistry(
		service.NutRegistryConfig{
			CheckInterval: app.cfg.CheckInterval,
			Multiplier:    app.cfg.NutMultiplier,
			MaxNuts:       app.cfg.MaxNuts,
		},
		service.WithAskQuestions(rules, DemoQuestion),
	)

	app.tickets = service.NewTicketService(
		app.keyManager,
		app.cfg.Issuer,
		nil,
		app.cfg.SessionTTL,
		app.cfg.AdminIDs,
	)

	app.loginService = &service.LoginService{
		Nuts:       app.nuts,
		Identities: app.db.Identities(),
		Verifier:   cryptox.Ed25519Verifier{},
		Rules:      rules,
		Questions:  DemoQuestion,
		Sessions:   app.tickets,
	}
	app.askService = &service.AskService{
		Nuts:      app.nuts,
		Rules:     rules,
		Interpret: AcceptFirstButton,
		Sessions:  app.tickets,
	}
	app.identityService = &service.IdentityService{
		Nuts:     app.nuts,
		Store:    app.db,
		Verifier: cryptox.Ed25519Verifier{},
	}

	app.keyRotationService = &service.KeyRotationService{
		KeyManager:  app.keyManager,
		GracePeriod: app.cfg.KeyGracePeriod,
	}
	if app.encrypter != nil {
		app.keyRotationService.Store = app.db
		app.keyRotationService.Encrypter = app.encrypter
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.nuts,
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)

	cfg := app.nuts.Config()
	app.logger.Info("nut registry configured",
		"check_interval", cfg.CheckInterval,
		"nut_lifetime", cfg.Lifetime(),
		"max_nuts", cfg.MaxNuts,
		"rules", len(rules.Rules()),
	)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.keyManager,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.CookieName = app.cfg.CookieName
	router.Diagnostics = app.cfg.Diagnostics
	router.Nuts = app.nuts
	router.LoginService = app.loginService
	router.AskService = app.askService
	router.IdentityService = app.identityService
	router.KeyRotationService = app.keyRotationService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
