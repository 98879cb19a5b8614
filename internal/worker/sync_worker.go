package worker

import (
	"context"
	"fmt"
	"log/slog"

	"budgetmalin/internal/amqp"
	"budgetmalin/internal/log"
	"budgetmalin/internal/sheets"
)

// SyncMarker records that a transaction reached the mirror. The SQLite
// repository implements it; other backends have no outbox to update.
type SyncMarker interface {
	MarkSynced(ctx context.Context, id string) error
}

// SyncWorker applies transaction messages to the spreadsheet mirror and
// reports budget alerts.
type SyncWorker struct {
	mirror sheets.TransactionMirror
	marker SyncMarker
	logger *log.Logger

	// onAlert, when set, receives every budget alert after it is logged.
	onAlert func(context.Context, *amqp.BudgetAlertMessage)
}

// NewSyncWorker accepts a nil marker.
func NewSyncWorker(mirror sheets.TransactionMirror, marker SyncMarker, logger *log.Logger) *SyncWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &SyncWorker{mirror: mirror, marker: marker, logger: logger.WithComponent(log.ComponentWorker)}
}

// OnAlert registers a callback for budget alerts.
func (w *SyncWorker) OnAlert(fn func(context.Context, *amqp.BudgetAlertMessage)) {
	w.onAlert = fn
}

// HandleTransaction mirrors a sync message or removes the row of a delete
// message. A returned error makes the consumer requeue the message.
func (w *SyncWorker) HandleTransaction(ctx context.Context, msg *amqp.TransactionMessage) error {
	t := msg.Transaction
	w.logger.InfoContext(ctx, "Processing transaction message",
		"action", msg.Action,
		log.FieldTransactionID, t.ID)

	switch msg.Action {
	case amqp.RoutingTransactionSync:
		ref, err := w.mirror.UpsertTransaction(ctx, t)
		if err != nil {
			return fmt.Errorf("mirror transaction %s: %w", t.ID, err)
		}
		if w.marker != nil {
			if err := w.marker.MarkSynced(ctx, t.ID); err != nil {
				// Mirrored already; the outbox will upsert the same row again.
				w.logger.WarnContext(ctx, "Failed to mark transaction as synced", log.FieldTransactionID, t.ID, log.FieldError, err)
			}
		}
		w.logger.InfoContext(ctx, "Transaction mirrored", log.FieldTransactionID, t.ID, log.FieldSheetsRef, ref)
	case amqp.RoutingTransactionDelete:
		if err := w.mirror.DeleteTransaction(ctx, t.ID); err != nil {
			return fmt.Errorf("remove transaction %s: %w", t.ID, err)
		}
		w.logger.InfoContext(ctx, "Transaction removed from mirror", log.FieldTransactionID, t.ID)
	default:
		return fmt.Errorf("unknown action %q", msg.Action)
	}
	return nil
}

// HandleBudgetAlert logs the alert at Warn level. It never fails.
func (w *SyncWorker) HandleBudgetAlert(ctx context.Context, msg *amqp.BudgetAlertMessage) error {
	w.logger.Fields(ctx, slog.LevelWarn, "Budget alert",
		log.NewFields().
			WithOperation(log.OpAlert).
			WithBudget(msg.Month.String(), msg.Category, msg.Spent.Cents, msg.Limit.Cents, msg.Percentage, string(msg.Status)))
	if w.onAlert != nil {
		w.onAlert(ctx, msg)
	}
	return nil
}
