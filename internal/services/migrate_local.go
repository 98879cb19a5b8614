package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"budgetmalin/internal/core"
	"budgetmalin/internal/store"
)

// MigrationReport counts what MigrateLocal copied.
type MigrationReport struct {
	Transactions int
	Skipped      int
	Budgets      int
}

// MigrateOptions tunes MigrateLocal. Months lists the budget months to copy;
// when empty the months of the source transactions plus the current month
// are used.
type MigrateOptions struct {
	Months      []core.Month
	Concurrency int
	Now         func() time.Time
}

// MigrateLocal copies transactions and positive budgets from one store to
// another. Transactions already present in the destination under the same ID
// are skipped, so a rerun after a partial failure does not duplicate rows.
func MigrateLocal(ctx context.Context, from, to store.Store, opts MigrateOptions) (MigrationReport, error) {
	if opts.Concurrency < 1 {
		opts.Concurrency = 4
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	ts, err := from.ListTransactions(ctx, core.TransactionFilter{})
	if err != nil {
		return MigrationReport{}, fmt.Errorf("read source transactions: %w", err)
	}

	var copied, skipped, budgets atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for _, t := range ts {
		t := t
		g.Go(func() error {
			if t.ID != "" {
				if _, err := to.GetTransaction(gctx, t.ID); err == nil {
					skipped.Add(1)
					return nil
				} else if !errors.Is(err, core.ErrNotFound) {
					return fmt.Errorf("check transaction %s: %w", t.ID, err)
				}
			}
			if _, err := to.CreateTransaction(gctx, t); err != nil {
				return fmt.Errorf("copy transaction %s: %w", t.ID, err)
			}
			copied.Add(1)
			return nil
		})
	}

	months := opts.Months
	if len(months) == 0 {
		months = transactionMonths(ts, core.MonthOf(opts.Now()))
	}
	for _, month := range months {
		month := month
		g.Go(func() error {
			list, err := from.ListBudgets(gctx, month)
			if err != nil {
				return fmt.Errorf("read budgets %s: %w", month, err)
			}
			for _, b := range list {
				if b.Limit.Cents <= 0 {
					continue
				}
				if _, err := to.UpsertBudget(gctx, b); err != nil {
					return fmt.Errorf("copy budget %s/%s: %w", month, b.Category, err)
				}
				budgets.Add(1)
			}
			return nil
		})
	}

	err = g.Wait()
	report := MigrationReport{
		Transactions: int(copied.Load()),
		Skipped:      int(skipped.Load()),
		Budgets:      int(budgets.Load()),
	}
	return report, err
}

func transactionMonths(ts []core.Transaction, current core.Month) []core.Month {
	seen := map[core.Month]struct{}{current: {}}
	out := []core.Month{current}
	for _, t := range ts {
		m := t.Date.Month()
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}
