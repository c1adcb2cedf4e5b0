package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"grade_watchdog/internal/app"
	"grade_watchdog/internal/domain/notification"
	"grade_watchdog/internal/domain/result"
	"grade_watchdog/internal/domain/session"
	"grade_watchdog/internal/infra/browser"
	"grade_watchdog/internal/infra/config"
	"grade_watchdog/internal/infra/directory"
	"grade_watchdog/internal/infra/logger"
	"grade_watchdog/internal/infra/scheduler"
	"grade_watchdog/internal/infra/scraper"
	infrasession "grade_watchdog/internal/infra/session"
	"grade_watchdog/internal/infra/storage"
	"grade_watchdog/internal/infra/telegram"
	"grade_watchdog/internal/infra/webhook"

	"github.com/sirupsen/logrus"
)

type stateStore interface {
	result.StateStore
	session.CookieStore
}

func main() {
	fmt.Println("=====================================")
	fmt.Println("  KIV/PC grade watchdog starting...")
	fmt.Println("=====================================")

	cfg, err := config.Load(config.PathFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Could not load application configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg)
	mainLog := logger.Component("main")
	mainLog.WithFields(logrus.Fields{
		"target_url":  cfg.TargetURL,
		"interval":    cfg.CheckInterval.String(),
		"backend":     cfg.StateBackend,
		"environment": cfg.Environment,
	}).Info("Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store stateStore
	switch cfg.StateBackend {
	case config.BackendPostgres:
		db, err := storage.NewPostgresConnection(ctx, cfg.DatabaseURL)
		if err != nil {
			mainLog.Fatalf("Could not connect to database: %v", err)
		}
		defer db.Close()
		pgStore := storage.NewPostgresStateStore(db)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			mainLog.Fatalf("Could not prepare database schema: %v", err)
		}
		store = pgStore
		mainLog.Info("Using PostgreSQL state store")
	default:
		store = storage.NewFileStore(cfg.CookiesFile, cfg.HistoryFile, cfg.UsersFile)
		mainLog.WithField("history", cfg.HistoryFile).Info("Using file state store")
	}

	authenticator := browser.NewChromeAuthenticator(browser.Options{
		EntryURL:      cfg.TargetURL,
		SuccessMarker: cfg.LoginSuccessMarker,
		ChromePath:    cfg.ChromePath,
		UserAgent:     cfg.BrowserUserAgent,
	}, browser.Credentials{
		Username: cfg.SSOUsername,
		Password: cfg.SSOPassword,
	}, logger.Component("browser"))

	sessionManager, err := infrasession.NewManager(infrasession.Options{
		BaseURL:   cfg.TargetURL,
		UserAgent: cfg.UserAgent,
	}, authenticator, infrasession.DefaultProbe(), store, logger.Component("session"))
	if err != nil {
		mainLog.Fatalf("Could not create HTTP session: %v", err)
	}
	if err := sessionManager.RestoreCookies(ctx); err != nil {
		mainLog.WithError(err).Warn("Could not restore saved cookies, a fresh login will be needed")
	}

	resultScraper := scraper.New(sessionManager, cfg.TargetURL, cfg.DetailURL, logger.Component("scraper"))

	dispatchers := []notification.Dispatcher{
		webhook.NewDispatcher(cfg.WebhookURL, cfg.TestWebhookURL, infrasession.DefaultTimeout),
	}
	if cfg.TelegramEnabled() {
		bot, err := telegram.NewBot(cfg.TelegramToken)
		if err != nil {
			mainLog.WithError(err).Error("Telegram mirror disabled")
		} else {
			dispatchers = append(dispatchers, telegram.NewMirror(telegram.NewTelebotAdapter(bot), cfg.TelegramChatID))
			mainLog.WithField("chat_id", cfg.TelegramChatID).Info("Telegram mirror enabled")
		}
	}

	notifier := app.NewNotificationServiceImpl(
		dispatchers,
		directory.NewStagDirectory(cfg.IdentityLookupURL, directory.DefaultTimeout),
		cfg.MyStudentID,
		cfg.FallbackMentionID,
		app.DefaultSendPause,
		logger.Component("notifier"),
	)
	watchdog := app.NewWatchdogService(resultScraper, store, notifier, cfg.MyStudentID, logger.Component("watchdog"))

	watchdog.RunStartupTest(ctx)
	watchdog.CheckForChanges(ctx)

	checkScheduler := scheduler.NewCheckScheduler(watchdog.CheckForChanges, cfg.CheckInterval, logger.Component("scheduler"))
	checkScheduler.Start(ctx)
	mainLog.Infof("Check interval set to %s", cfg.CheckInterval)

	<-ctx.Done()

	mainLog.Info("Shutting down watchdog...")
	checkScheduler.Stop()
	mainLog.Info("Watchdog stopped")
}
