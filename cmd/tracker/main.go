package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"reddit_tracker/internal/acquire"
	"reddit_tracker/internal/api"
	"reddit_tracker/internal/config"
	"reddit_tracker/internal/publisher"
	"reddit_tracker/internal/scheduler"
	"reddit_tracker/internal/service"
	"reddit_tracker/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := setupLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	// Initialize stores
	postStore := postgres.NewPostStore(db)
	commentStore := postgres.NewCommentStore(db)
	scrapeLog := postgres.NewScrapeLogStore(db)
	txManager := postgres.NewTransactionManager(db)

	// Notification publisher is optional: without it runs still happen,
	// nothing is pushed downstream.
	var pub service.Publisher
	if cfg.RabbitMQ.URL != "" {
		rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer rabbitMQ.Close()
		pub = rabbitMQ
	}

	stores := acquire.Stores{Posts: postStore, Comments: commentStore}

	// Strategy is re-evaluated at every run start, so credentials added
	// to the environment take effect on the next run.
	selectStrategy := func() service.Strategy {
		return acquire.Select(cfg.Reddit, stores, logger)
	}

	scrapeService := service.NewScrapeService(selectStrategy, scrapeLog, commentStore, pub, logger)
	mergeService := service.NewMergeService(postStore, commentStore, scrapeLog, txManager, logger)

	syncHandler := api.NewSyncHandler(mergeService, cfg.Sync.APIKey, logger)
	httpServer := &http.Server{
		Addr:    cfg.HTTP.ListenAddr,
		Handler: syncHandler.Routes(),
	}

	go func() {
		logger.Info("sync upload endpoint listening", "addr", cfg.HTTP.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	sched := scheduler.New(scrapeService, cfg.Schedule.Cron, cfg.Schedule.RunTimeout, logger)
	if err := sched.Start(); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	logger.Info("tracker started",
		"reddit_user", cfg.Reddit.Username,
		"schedule", cfg.Schedule.Cron,
		"mock_mode", cfg.Reddit.MockMode,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig)

	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
