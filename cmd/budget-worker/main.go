package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"budgetmalin/internal/amqp"
	"budgetmalin/internal/backend"
	"budgetmalin/internal/cli"
	"budgetmalin/internal/config"
	"budgetmalin/internal/log"
	"budgetmalin/internal/services"
	"budgetmalin/internal/sheets"
	gsheet "budgetmalin/internal/sheets/google"
	memmirror "budgetmalin/internal/sheets/memory"
	"budgetmalin/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL")).WithComponent(log.ComponentWorker)
	logger.Info("Starting budget-worker")
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	res, err := backend.NewFactory(logger).Create(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	if err := res.RequireShared(); err != nil {
		logger.Error("Worker needs a store shared with the server", log.FieldError, err, log.FieldBackend, res.Kind)
		if res.Cleanup != nil {
			_ = res.Cleanup()
		}
		os.Exit(1)
	}

	mirror, err := newMirror(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}

	var (
		amqpClient *amqp.Client
		publisher  services.Publisher
	)
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.AMQPAlertQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		publisher = amqpClient
	} else {
		logger.Info("AMQP disabled - relying on the outbox poller and budget schedule only")
	}

	var marker worker.SyncMarker
	if m, ok := res.Store.(worker.SyncMarker); ok {
		marker = m
	}
	syncWorker := worker.NewSyncWorker(mirror, marker, logger)

	g, gctx := errgroup.WithContext(ctx)
	if amqpClient != nil {
		g.Go(func() error {
			return ignoreCanceled(amqpClient.ConsumeTransactions(gctx, syncWorker.HandleTransaction))
		})
		g.Go(func() error {
			return ignoreCanceled(amqpClient.ConsumeBudgetAlerts(gctx, syncWorker.HandleBudgetAlert))
		})
	}

	var processor *services.SyncProcessor
	if res.SyncQueue != nil {
		pcfg := services.DefaultSyncProcessorConfig()
		pcfg.PollInterval = cfg.SyncInterval
		pcfg.BatchSize = cfg.SyncBatchSize
		processor = services.NewSyncProcessor(res.SyncQueue, mirror, pcfg).WithLogger(logger)
		if err := processor.Start(gctx); err != nil {
			logger.Error("Failed to start sync processor", log.FieldError, err)
			os.Exit(1)
		}
	}

	monitor := services.NewBudgetMonitor(res.Store, publisher, logger)
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.BudgetCheckSchedule, func() {
		if _, err := monitor.Check(gctx, time.Now()); err != nil {
			logger.Error("Scheduled budget check failed", log.FieldError, err)
		}
	}); err != nil {
		logger.Error("Invalid budget check schedule", log.FieldError, err, "schedule", cfg.BudgetCheckSchedule)
		os.Exit(1)
	}
	scheduler.Start()
	logger.Info("Budget check scheduled", "schedule", cfg.BudgetCheckSchedule)

	<-gctx.Done()
	logger.Info("Shutdown signal received")

	exitCode := 0
	if err := cli.Shutdown(logger, 30*time.Second,
		cli.ShutdownStep{Name: "scheduler", Run: func(ctx context.Context) error {
			select {
			case <-scheduler.Stop().Done():
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}},
		cli.ShutdownStep{Name: "sync processor", Run: func(ctx context.Context) error {
			if processor == nil {
				return nil
			}
			return processor.Stop(ctx)
		}},
		cli.ShutdownStep{Name: "consumers", Run: func(context.Context) error { return g.Wait() }},
		cli.ShutdownStep{Name: "amqp", Run: func(context.Context) error {
			if amqpClient == nil {
				return nil
			}
			return amqpClient.Close()
		}},
		cli.ShutdownStep{Name: "store", Run: func(context.Context) error {
			if res.Cleanup == nil {
				return nil
			}
			return res.Cleanup()
		}},
	); err != nil {
		exitCode = 1
	}
	stop()
	os.Exit(exitCode)
}

// newMirror returns the Google Sheets mirror when configured, otherwise an
// in-memory one so messages are still acknowledged.
func newMirror(ctx context.Context, cfg *config.Config, logger *log.Logger) (sheets.TransactionMirror, error) {
	if !cfg.SheetsEnabled() {
		logger.Warn("Google Sheets disabled - mirroring to memory only")
		return memmirror.New(), nil
	}
	return gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
