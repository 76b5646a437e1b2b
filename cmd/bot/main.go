package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ivanoskov/ledger_bot/internal/bot"
	"github.com/ivanoskov/ledger_bot/internal/charts"
	"github.com/ivanoskov/ledger_bot/internal/config"
	"github.com/ivanoskov/ledger_bot/internal/conversation"
	"github.com/ivanoskov/ledger_bot/internal/logger"
	"github.com/ivanoskov/ledger_bot/internal/ratelimit"
	"github.com/ivanoskov/ledger_bot/internal/repository"
	"github.com/ivanoskov/ledger_bot/internal/service"
	"github.com/ivanoskov/ledger_bot/internal/session"
	"github.com/ivanoskov/ledger_bot/internal/sweeper"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logr := logger.New(cfg.LogFilePath, cfg.IsProduction())
	defer func() { _ = logr.Sync() }()

	if !cfg.EnvFileLoaded {
		logr.Info("no .env file found, using process environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Error("bot stopped with error", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	repo, err := repository.NewSupabaseRepository(cfg.SupabaseURL, cfg.SupabaseKey)
	if err != nil {
		return err
	}

	tracker := service.NewExpenseTracker(repo, cfg.RequestTimeout, logr.Named("service"))

	sessions := session.NewMemoryStore(cfg.SessionTimeout, session.WithLogger(logr.Named("session")))
	sessions.Start()
	defer sessions.Close()

	limiter, err := ratelimit.New(cfg.RateLimitMax, cfg.RateLimitWindow, ratelimit.WithLogger(logr.Named("ratelimit")))
	if err != nil {
		return err
	}
	limiter.Start()
	defer limiter.Close()

	engine, err := conversation.New(tracker, sessions,
		conversation.WithLogger(logr.Named("conversation")),
		conversation.WithLocation(cfg.Location),
	)
	if err != nil {
		return err
	}
	if err := engine.Load(ctx); err != nil {
		// keep serving; transaction commands answer with a configuration error
		// until a later load succeeds
		logr.Error("reference data not loaded, starting degraded", zap.Error(err))
	}

	refresher := sweeper.New(cfg.ReferenceRefreshInterval, func(time.Time) {
		if err := engine.Refresh(ctx); err != nil {
			logr.Warn("reference data refresh failed",
				zap.Bool("serving_previous_copy", engine.Ready()),
				zap.Error(err),
			)
		}
	})
	refresher.Start()
	defer refresher.Stop()

	b, err := bot.NewBot(cfg.TelegramToken, engine, limiter,
		bot.WithLogger(logr.Named("bot")),
		bot.WithAllowedUsers(cfg.AllowedUserIDs),
		bot.WithCharts(tracker, charts.NewChartGenerator(cfg.DefaultCurrency), cfg.DefaultCurrency),
	)
	if err != nil {
		return err
	}

	if cfg.UseWebhook() {
		return b.ServeWebhook(ctx, cfg.WebhookURL, cfg.WebhookAddr)
	}
	return b.Start(ctx)
}
