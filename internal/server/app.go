// Package server wires the API server together: configuration, logging,
// database, services and the HTTP transport, and handles graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/equipsense/equipsense/internal/logging"
	"github.com/equipsense/equipsense/internal/server/config"
	"github.com/equipsense/equipsense/internal/server/httpapi"
	"github.com/equipsense/equipsense/internal/server/mailerclient"
	"github.com/equipsense/equipsense/internal/server/repositories/repomanager"
	"github.com/equipsense/equipsense/internal/server/services"
	"github.com/equipsense/equipsense/internal/server/storage"
)

type App struct {
	config *config.Config
	logger logging.Logger
	server *httpapi.Server
	repos  *repomanager.PostgresRepositoryManager
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	repos, err := repomanager.NewPostgresRepositoryManager(cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := repos.RunMigrations(ctx); err != nil {
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	mailer := mailerclient.New(cfg.MailerURL, logger)

	// Archival is optional; without an endpoint uploads are kept only in
	// the database.
	var archiver services.Archiver
	if cfg.S3BaseEndpoint != "" {
		s3, err := storage.NewS3Archiver(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("s3 init error: %w", err)
		}
		archiver = s3
	}

	db := repos.Conn()
	srv := httpapi.NewServer(cfg.RunAddr, logger, cfg.SecretKey, httpapi.Services{
		Users:         services.NewUserService(db, repos, cfg),
		Registration:  services.NewRegistrationService(db, repos, mailer),
		PasswordReset: services.NewPasswordResetService(db, repos, mailer),
		Admin:         services.NewAdminService(db, repos),
		Datasets:      services.NewDatasetService(db, repos, cfg, archiver, logger),
	})

	return &App{config: cfg, logger: logger, server: srv, repos: repos}, nil
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
	if err := app.server.Run(ctx); err != nil {
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

	if err := app.repos.Close(); err != nil {
		app.logger.Error(ctx, "error closing database", "error", err)
	}
}
