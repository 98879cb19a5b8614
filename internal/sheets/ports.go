// Package sheets declares the outbound mirror the worker copies
// transactions into.
package sheets

import (
	"context"

	"budgetmalin/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionMirror keeps one row per transaction, keyed by ID.
	TransactionMirror interface {
		// UpsertTransaction writes the row of t, replacing an existing row with the same ID.
		UpsertTransaction(ctx context.Context, t core.Transaction) (rowRef string, err error)
		// DeleteTransaction removes the row of id. Unknown ids are not an error.
		DeleteTransaction(ctx context.Context, id string) error
	}
)
