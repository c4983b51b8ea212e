// Command poller discovers new voicemails by listing recent inbound calls
// and notifies Telegram for each unseen one. It is designed to be run on a
// schedule (cron or a systemd timer); each invocation is a single poll
// cycle.
package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kesslerio/dialpad-openclaw-skill/internal/config"
	"github.com/kesslerio/dialpad-openclaw-skill/internal/db"
	"github.com/kesslerio/dialpad-openclaw-skill/internal/dialpad"
	"github.com/kesslerio/dialpad-openclaw-skill/internal/filter"
	"github.com/kesslerio/dialpad-openclaw-skill/internal/notify"
	"github.com/kesslerio/dialpad-openclaw-skill/internal/services"
	"github.com/kesslerio/dialpad-openclaw-skill/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (optional)")
	flag.Parse()

	result, err := run(*configPath)
	if err != nil {
		logger.Error("Poller error", zap.Error(err))
	}

	// Scripted callers scrape this line; keep it stable.
	fmt.Printf("found %d voicemail(s), notified %d new\n", result.Found, result.Notified)
	_ = logger.Sync()
}

func run(configPath string) (services.PollResult, error) {
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		return services.PollResult{}, err
	}

	if err := logger.Init(cfg.Logging.Path, cfg.Logging.Level); err != nil {
		return services.PollResult{}, err
	}

	if cfg.Dialpad.APIKey == "" {
		return services.PollResult{}, fmt.Errorf("missing required env var: DIALPAD_API_KEY")
	}

	ledger, err := db.NewLedger(cfg.Poller.LedgerPath)
	if err != nil {
		return services.PollResult{}, fmt.Errorf("failed to open seen ledger: %w", err)
	}
	defer func() {
		if err := ledger.Close(); err != nil {
			logger.Warn("Failed to close ledger", zap.Error(err))
		}
	}()

	client := dialpad.NewClient(cfg.Dialpad.APIKey, cfg.Dialpad.BaseURL)
	telegram := notify.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	hooks := notify.NewHooksClient(cfg)
	lines := notify.NewLineDirectory(cfg.NormalizedLineNames())
	notifier := notify.NewRouter(telegram, hooks, filter.New(cfg.Filter.Enabled), lines)

	lookback := time.Duration(cfg.Poller.LookbackHours * float64(time.Hour))
	service := services.NewVoicemailService(client, ledger, notifier, lookback)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	return service.Poll(ctx)
}
