package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	firebase "firebase.google.com/go/v4"
	"go.uber.org/zap"

	"finitefield.org/delivery-admin/internal/admin/dashboard"
	"finitefield.org/delivery-admin/internal/admin/httpserver"
	"finitefield.org/delivery-admin/internal/admin/httpserver/middleware"
	"finitefield.org/delivery-admin/internal/platform/config"
	"finitefield.org/delivery-admin/internal/platform/observability"
	"finitefield.org/delivery-admin/internal/platform/postgres"
	"finitefield.org/delivery-admin/internal/tiers"
)

func main() {
	ctx := context.Background()

	var logOpts []observability.LoggerOption
	if strings.EqualFold(strings.TrimSpace(os.Getenv("LOG_FORMAT")), "console") {
		logOpts = append(logOpts, observability.ConsoleOutput())
	}
	baseLogger, err := observability.NewLogger(os.Getenv("LOG_LEVEL"), logOpts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named("admin")
	ctx = observability.WithLogger(ctx, logger)

	cfg, err := config.Load(ctx)
	if err != nil {
		var verr *config.ValidationError
		if errors.As(err, &verr) {
			logger.Fatal("invalid configuration", zap.Strings("fields", verr.Fields()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := runMigrate(ctx, cfg, logger); err != nil {
			logger.Fatal("migration failed", zap.Error(err))
		}
		return
	}

	backend, err := openBackend(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialise tier backend", zap.String("backend", cfg.Tiers.Backend), zap.Error(err))
	}
	defer backend.Close()

	store := tiers.NewStore(backend.remote,
		tiers.WithRemoteTimeout(cfg.Tiers.RemoteTimeout),
		tiers.WithLogger(logger.Named("tiers")),
		tiers.WithTracer(observability.Tracer("finitefield.org/delivery-admin/tiers")),
	)

	sessions, err := newSessionManager(cfg.Session, cfg.Server.BasePath, logger)
	if err != nil {
		logger.Fatal("failed to initialise sessions", zap.Error(err))
	}

	srv := httpserver.New(httpserver.Config{
		Address:          cfg.Server.Address,
		BasePath:         cfg.Server.BasePath,
		SignInURL:        cfg.Server.SignInURL,
		Environment:      cfg.Server.Environment,
		Authenticator:    buildAuthenticator(ctx, cfg.Firebase, logger),
		Sessions:         sessions,
		Store:            store,
		DashboardService: dashboard.NewStoreService(store),
		Logger:           logger,
		ReadTimeout:      cfg.Server.ReadTimeout,
		WriteTimeout:     cfg.Server.WriteTimeout,
		IdleTimeout:      cfg.Server.IdleTimeout,
	})

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	logger.Info("admin server listening",
		zap.String("addr", cfg.Server.Address),
		zap.String("base_path", cfg.Server.BasePath),
		zap.String("backend", cfg.Tiers.Backend),
		zap.String("environment", cfg.Server.Environment),
	)

	<-sigCtx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		return
	}
	logger.Info("admin server stopped")
}

func runMigrate(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	pool, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer pool.Close()
	return postgres.Migrate(ctx, pool, logger.Named("migrate"))
}

func buildAuthenticator(ctx context.Context, cfg config.FirebaseConfig, logger *zap.Logger) middleware.Authenticator {
	if cfg.ProjectID == "" {
		logger.Warn("FIREBASE_PROJECT_ID not set; using passthrough authenticator")
		return nil
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, firebaseOptions(cfg)...)
	if err != nil {
		logger.Fatal("failed to initialise Firebase app", zap.Error(err))
	}
	client, err := app.Auth(ctx)
	if err != nil {
		logger.Fatal("failed to initialise Firebase auth client", zap.Error(err))
	}

	logger.Info("Firebase authenticator enabled", zap.String("project", cfg.ProjectID))
	return middleware.NewFirebaseAuthenticator(client)
}
