package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/equipsense/equipsense/internal/logging"
	"github.com/equipsense/equipsense/internal/mailer/config"
)

// App wires the mailer together: configuration, logging, the delivery
// backend and the HTTP transport, and handles graceful shutdown.
type App struct {
	config *config.Config
	logger logging.Logger
	server *Server
}

// NewApp builds the mailer. Without an SMTP host it falls back to console
// delivery, which only logs the rendered messages.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	var sender Sender
	mode := ModeConsole
	if cfg.SMTPHost != "" {
		smtp, err := NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.From, cfg.SendTimeout)
		if err != nil {
			return nil, fmt.Errorf("smtp init error: %w", err)
		}
		sender = smtp
		mode = ModeSMTP
	} else {
		sender = NewConsoleSender(logger)
	}

	srv := NewServer(cfg.RunAddr, logger, sender, mode)

	return &App{config: cfg, logger: logger, server: srv}, nil
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

	app.logger.Info(ctx, "Starting mailer...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()
}
