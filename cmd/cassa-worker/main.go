package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"cassa/internal/amqp"
	"cassa/internal/config"
	"cassa/internal/export"
	"cassa/internal/export/google"
	"cassa/internal/export/memory"
	"cassa/internal/log"
	"cassa/internal/storage"
	"cassa/internal/worker"
)

func main() {
	// Load .env for local development, ignore errors in production
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, logger)
	if err != nil {
		logger.Error("failed to open database", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Without Sheets credentials the worker still drains the pending
	// queue into an in-memory ledger, which keeps local setups working.
	var ledger export.LedgerWriter
	if cfg.SheetsConfigured() {
		client, err := google.NewFromConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to initialize Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		ledger = client
		logger.Info("Google Sheets ledger enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		ledger = memory.New()
		logger.Warn("Google Sheets not configured, using in-memory ledger")
	}

	w := worker.NewLedgerWorker(repo, ledger, cfg.SyncBatchSize, logger)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return w.Run(ctx, cfg.SyncInterval)
	})

	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("failed to connect to broker", log.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()

		g.Go(func() error {
			return amqpClient.ConsumeLedgerEvents(ctx, func(msg *amqp.LedgerEventMessage) error {
				return w.HandleEvent(ctx, msg)
			})
		})
	} else {
		logger.Info("AMQP disabled, relying on the periodic sweep only")
	}

	logger.Info("worker started", "interval", cfg.SyncInterval.String(), "batch_size", cfg.SyncBatchSize)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker exited with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("worker stopped")
}
