// Package store declares the persistence capabilities the rest of the
// application depends on. Implementations live in sub-packages (memory,
// local) and in internal/storage (SQLite) and internal/apiclient (remote).
package store

import (
	"context"

	"budgetmalin/internal/core"
)

// Ports for persistence adapters.
type (
	TransactionReader interface {
		ListTransactions(ctx context.Context, f core.TransactionFilter) ([]core.Transaction, error)
		// GetTransaction returns core.ErrNotFound when id is unknown.
		GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	}

	TransactionWriter interface {
		// CreateTransaction assigns ID and timestamps and returns the stored record.
		CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, id string) error
	}

	BudgetReader interface {
		ListBudgets(ctx context.Context, month core.Month) ([]core.Budget, error)
	}

	BudgetWriter interface {
		// UpsertBudget sets the limit of a category for a month.
		UpsertBudget(ctx context.Context, b core.Budget) (core.Budget, error)
		DeleteBudget(ctx context.Context, month core.Month, category string) error
		// ResetBudgets removes every budget of a month.
		ResetBudgets(ctx context.Context, month core.Month) error
	}

	CategoryReader interface {
		ListCategories(ctx context.Context, kind core.Kind) ([]core.Category, error)
	}

	TransactionStore interface {
		TransactionReader
		TransactionWriter
	}

	BudgetStore interface {
		BudgetReader
		BudgetWriter
	}

	// Store is the full capability set a backend provides.
	Store interface {
		TransactionStore
		BudgetStore
		CategoryReader
	}
)
