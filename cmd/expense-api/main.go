package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"expensetracker/internal/cache"
	"expensetracker/internal/cli"
	"expensetracker/internal/core"
	apphttp "expensetracker/internal/http"
	"expensetracker/internal/log"
	"expensetracker/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), nil)
	cfg := cli.MustLoadConfig(logger)

	logger.Info("Starting expense-api", log.FieldOperation, log.OpStartup, "port", cfg.Port, "backend", cfg.APIBaseURL)

	repo, err := cli.OpenStorage(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	backend, err := cli.NewAPIClient(cfg, logger)
	if err != nil {
		logger.Error("Failed to create backend client", log.FieldError, err)
		os.Exit(1)
	}

	events, err := cli.NewEventClient(cfg, logger)
	if err != nil {
		// Events are best effort; the API keeps serving without them.
		logger.Warn("AMQP unavailable, continuing without events", log.FieldError, err)
	}
	if events != nil {
		defer events.Close()
	}
	publisher := cli.Publisher(events)

	categories := cache.NewLRUCache[[]core.Category](512, cfg.CategoryCacheTTL)
	caches := cache.NewManager(logger)
	caches.Register(categories)
	caches.StartCleanup(time.Minute)
	defer caches.Stop()

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Dashboards:    services.NewDashboardService(backend, publisher, categories, logger),
		Deals:         services.NewDealService(backend, publisher, logger),
		Goals:         services.NewGoalService(backend, logger),
		Notifications: repo,
		Health:        backend,
		Identity:      backend,
	}, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		DashboardCacheTTL:  cfg.DashboardCacheTTL,
		Logger:             logger,
	})

	ctx := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
