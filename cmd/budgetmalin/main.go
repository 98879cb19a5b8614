package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"budgetmalin/internal/amqp"
	"budgetmalin/internal/auth"
	"budgetmalin/internal/backend"
	"budgetmalin/internal/cache"
	"budgetmalin/internal/cli"
	apphttp "budgetmalin/internal/http"
	"budgetmalin/internal/log"
	"budgetmalin/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	res, err := backend.NewFactory(logger).Create(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}

	// A nil *amqp.Client must not reach the ledger as a non-nil Publisher.
	var publisher services.Publisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.AMQPAlertQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		publisher = client
		logger.Info("AMQP publishing enabled", "exchange", cfg.AMQPExchange)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	ledger := services.NewLedgerService(res.Store, publisher, logger)

	var tokens *auth.Tokens
	if cfg.AuthSecret != "" {
		tokens = auth.NewTokens(cfg.AuthSecret, cfg.AuthTokenTTL)
	} else {
		logger.Warn("AUTH_SECRET not set - API is unauthenticated")
	}

	srv := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		Ledger:             ledger,
		Tokens:             tokens,
		Ready:              res.Ready,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	})

	if len(res.Caches) > 0 {
		go cache.RunCleanup(ctx, cfg.CategoryCacheTTL, res.Caches...)
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting budgetmalin server", "port", cfg.Port, log.FieldBackend, res.Kind)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
			exitCode = 1
		}
	}

	if err := cli.Shutdown(logger, 30*time.Second,
		cli.ShutdownStep{Name: "http", Run: srv.Shutdown},
		cli.ShutdownStep{Name: "ledger", Run: func(context.Context) error { return ledger.Close() }},
	); err != nil {
		exitCode = 1
	}
	logger.Info("Server stopped", log.FieldBackend, res.Kind)
	stop()
	os.Exit(exitCode)
}
