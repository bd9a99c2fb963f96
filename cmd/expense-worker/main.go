package main

import (
	"context"
	"errors"
	"os"
	"time"

	"expensetracker/internal/cache"
	"expensetracker/internal/cli"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/services"
	"expensetracker/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), nil)
	cfg := cli.MustLoadConfig(logger)

	logger.Info("Starting expense-worker", log.FieldOperation, log.OpStartup)

	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	repo, err := cli.OpenStorage(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	events, err := cli.NewEventClient(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer events.Close()

	var watcher *services.GoalWatcher
	if cfg.GoalWatchProfile != "" {
		backend, err := cli.NewAPIClient(cfg, logger)
		if err != nil {
			logger.Error("Failed to create backend client", log.FieldError, err)
			os.Exit(1)
		}
		sessions := services.NewSessionService(backend, repo, cfg.TokenRefreshWindow, logger)
		categories := cache.NewLRUCache[[]core.Category](16, cfg.CategoryCacheTTL)
		dashboards := services.NewDashboardService(backend, events, categories, logger)
		watcher = services.NewGoalWatcher(sessions, dashboards, services.WatcherConfig{
			Profile:       cfg.GoalWatchProfile,
			CheckInterval: cfg.GoalWatchInterval,
		}, logger)
	} else {
		logger.Info("Goal watcher disabled - no GOAL_WATCH_PROFILE provided")
	}

	ctx := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if watcher == nil {
			return
		}
		if err := watcher.Stop(ctx); err != nil {
			logger.Error("Goal watcher shutdown error", log.FieldError, err)
		}
	})

	if watcher != nil {
		if err := watcher.Start(ctx); err != nil {
			logger.Error("Failed to start goal watcher", log.FieldError, err)
			os.Exit(1)
		}
	}

	consumer := worker.NewEventWorker(repo, logger)
	if err := events.Consume(ctx, consumer.Handlers()); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
