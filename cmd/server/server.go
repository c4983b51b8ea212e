package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kesslerio/dialpad-openclaw-skill/internal/config"
	"github.com/kesslerio/dialpad-openclaw-skill/internal/db"
	"github.com/kesslerio/dialpad-openclaw-skill/internal/dialpad"
	"github.com/kesslerio/dialpad-openclaw-skill/internal/event"
	"github.com/kesslerio/dialpad-openclaw-skill/internal/filter"
	"github.com/kesslerio/dialpad-openclaw-skill/internal/notify"
	"github.com/kesslerio/dialpad-openclaw-skill/internal/services"
	"github.com/kesslerio/dialpad-openclaw-skill/pkg/logger"
	"github.com/kesslerio/dialpad-openclaw-skill/router"
)

// SetupServer initializes storage, the notification channels, and the
// pipeline, and returns a configured HTTP server.
func SetupServer(cfg *config.Config) (*http.Server, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	if cfg.Server.Port <= 0 {
		return nil, errors.New("invalid server port")
	}

	database, err := db.NewDatabase(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	ledger, err := db.NewLedger(cfg.Poller.LedgerPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize seen ledger: %w", err)
	}

	dialpadClient := dialpad.NewClient(cfg.Dialpad.APIKey, cfg.Dialpad.BaseURL)
	telegram := notify.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	hooks := notify.NewHooksClient(cfg)
	lines := notify.NewLineDirectory(cfg.NormalizedLineNames())
	contentFilter := filter.New(cfg.Filter.Enabled)
	notifier := notify.NewRouter(telegram, hooks, contentFilter, lines)
	classifier := event.NewClassifier(cfg)

	service := services.NewWebhookService(database, ledger, classifier, notifier, dialpadClient)

	logger.Info("Webhook relay configured",
		zap.Bool("auth_enabled", cfg.Webhook.Secret != ""),
		zap.Bool("telegram", telegram.Configured()),
		zap.Bool("hooks", hooks.Configured()),
		zap.Bool("contact_lookup", dialpadClient.Configured()),
	)

	handler := router.NewRouter(service, notifier, dialpadClient, cfg.Webhook.Secret)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return srv, nil
}

// StartServer starts the HTTP server and handles graceful shutdown
func StartServer(srv *http.Server) error {
	go func() {
		logger.Info("Starting server", zap.String("addr", srv.Addr), zap.String("version", version))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	return nil
}
