// Command migrate-local copies a local JSON store into another backend,
// by default the remote API. Reruns skip transactions already copied.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"budgetmalin/internal/backend"
	"budgetmalin/internal/cli"
	"budgetmalin/internal/config"
	"budgetmalin/internal/core"
	"budgetmalin/internal/log"
	"budgetmalin/internal/services"
	"budgetmalin/internal/store/local"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL")).WithComponent(log.ComponentBackend)
	cfg := config.Load()

	from := flag.String("from", cfg.LocalStorePath, "local store file to read")
	to := flag.String("to", config.BackendRemote, "destination backend (remote, sqlite or local)")
	months := flag.String("months", "", "comma separated YYYY-MM budget months to copy (default: months with transactions)")
	concurrency := flag.Int("concurrency", 4, "parallel copies")
	flag.Parse()

	if err := run(logger, cfg, *from, *to, *months, *concurrency); err != nil {
		logger.Error("Migration failed", log.FieldError, err)
		os.Exit(1)
	}
}

func run(logger *log.Logger, cfg *config.Config, from, to, months string, concurrency int) error {
	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	opts := services.MigrateOptions{Concurrency: concurrency}
	for _, raw := range strings.Split(months, ",") {
		if raw = strings.TrimSpace(raw); raw == "" {
			continue
		}
		m, err := core.ParseMonth(raw)
		if err != nil {
			return err
		}
		opts.Months = append(opts.Months, m)
	}

	src, err := local.Open(from)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}

	cfg.DataBackend = to
	if to == config.BackendRemote && cfg.RemoteAPIToken == "" {
		return fmt.Errorf("REMOTE_API_TOKEN is required to migrate to the remote backend")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	res, err := backend.NewFactory(logger).Create(ctx, cfg)
	if err != nil {
		return err
	}
	if res.Cleanup != nil {
		defer res.Cleanup()
	}
	if res.Kind == config.BackendLocal {
		if dst, ok := res.Store.(*local.Store); ok && dst.Path() == src.Path() {
			return fmt.Errorf("source and destination are the same file: %s", src.Path())
		}
	}

	logger.Info("Migrating local store", "from", src.Path(), log.FieldBackend, res.Kind)
	report, err := services.MigrateLocal(ctx, src, res.Store, opts)
	logger.Info("Migration finished",
		"transactions", report.Transactions,
		"skipped", report.Skipped,
		"budgets", report.Budgets)
	return err
}
