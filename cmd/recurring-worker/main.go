package main

import (
	"os"
	"time"

	"expensetracker/internal/cli"
	"expensetracker/internal/log"
	"expensetracker/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), nil)
	cfg := cli.MustLoadConfig(logger)

	logger.Info("Starting recurring-worker", log.FieldOperation, log.OpStartup)

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
	sessions := services.NewSessionService(backend, repo, cfg.TokenRefreshWindow, logger)
	processor := services.NewRecurringProcessor(repo, sessions, backend, logger)

	interval := cfg.RecurringProcessorInterval
	logger.Info("Recurring processor configured",
		"interval", interval,
		"sqlite_db", cfg.SQLiteDBPath)

	ctx := cli.GracefulShutdown(logger, 30*time.Second, nil)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("Running initial recurring processing")
	if count, err := processor.ProcessDue(ctx, time.Now()); err != nil {
		logger.Error("Initial processing failed", log.FieldError, err)
	} else {
		logger.Info("Initial processing complete", "posted", count)
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("Recurring-worker shutdown complete")
			return
		case now := <-ticker.C:
			count, err := processor.ProcessDue(ctx, now)
			if err != nil {
				logger.Error("Periodic processing failed", log.FieldError, err)
				continue
			}
			logger.Info("Periodic processing complete",
				"posted", count,
				"next_check", now.Add(interval).Format("15:04:05"))
		}
	}
}
