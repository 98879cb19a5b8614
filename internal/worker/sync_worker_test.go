package worker

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"budgetmalin/internal/amqp"
	"budgetmalin/internal/analytics"
	"budgetmalin/internal/core"
	"budgetmalin/internal/log"
	"budgetmalin/internal/sheets/memory"
)

type recordingMarker struct {
	ids []string
	err error
}

func (m *recordingMarker) MarkSynced(_ context.Context, id string) error {
	m.ids = append(m.ids, id)
	return m.err
}

type brokenMirror struct{}

func (brokenMirror) UpsertTransaction(context.Context, core.Transaction) (string, error) {
	return "", errors.New("sheets unavailable")
}
func (brokenMirror) DeleteTransaction(context.Context, string) error {
	return errors.New("sheets unavailable")
}

func sample() core.Transaction {
	return core.Transaction{
		ID:       "tx-1",
		Amount:   core.Money{Cents: 4200},
		Kind:     core.KindExpense,
		Category: "Nourriture",
		Date:     core.NewDate(2024, 3, 10),
	}
}

func TestSyncWorker_HandleTransaction(t *testing.T) {
	ctx := context.Background()
	mirror := memory.New()
	marker := &recordingMarker{}
	w := NewSyncWorker(mirror, marker, nil)

	if err := w.HandleTransaction(ctx, amqp.NewTransactionMessage(amqp.RoutingTransactionSync, sample())); err != nil {
		t.Fatal(err)
	}
	if len(mirror.Rows()) != 1 || len(marker.ids) != 1 {
		t.Fatalf("rows=%d marked=%v", len(mirror.Rows()), marker.ids)
	}

	if err := w.HandleTransaction(ctx, amqp.NewTransactionMessage(amqp.RoutingTransactionDelete, sample())); err != nil {
		t.Fatal(err)
	}
	if len(mirror.Rows()) != 0 {
		t.Fatal("delete should remove the row")
	}

	bad := &amqp.TransactionMessage{Action: "transaction.archive", Transaction: sample()}
	if err := w.HandleTransaction(ctx, bad); err == nil {
		t.Fatal("unknown action should fail")
	}
}

func TestSyncWorker_MarkerFailureIsNotFatal(t *testing.T) {
	w := NewSyncWorker(memory.New(), &recordingMarker{err: errors.New("locked")}, nil)
	if err := w.HandleTransaction(context.Background(), amqp.NewTransactionMessage(amqp.RoutingTransactionSync, sample())); err != nil {
		t.Fatalf("mark failure should only be logged: %v", err)
	}
}

func TestSyncWorker_MirrorFailureRequeues(t *testing.T) {
	w := NewSyncWorker(brokenMirror{}, nil, nil)
	for _, action := range []string{amqp.RoutingTransactionSync, amqp.RoutingTransactionDelete} {
		if err := w.HandleTransaction(context.Background(), amqp.NewTransactionMessage(action, sample())); err == nil {
			t.Fatalf("%s: mirror errors must be returned so the message is requeued", action)
		}
	}
}

func TestSyncWorker_HandleBudgetAlert(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Level: slog.LevelInfo, Output: &buf})
	w := NewSyncWorker(memory.New(), nil, logger)

	var got *amqp.BudgetAlertMessage
	w.OnAlert(func(_ context.Context, msg *amqp.BudgetAlertMessage) { got = msg })

	msg := amqp.NewBudgetAlertMessage(core.Month{Year: 2024, Month: time.March}, analytics.CategoryStatus{
		Category:   "Transport",
		Spent:      core.Money{Cents: 12000},
		Limit:      core.Money{Cents: 10000},
		Percentage: 120,
		Status:     analytics.Exceeded,
	})
	if err := w.HandleBudgetAlert(context.Background(), msg); err != nil {
		t.Fatal(err)
	}
	if got != msg {
		t.Fatal("alert callback not invoked")
	}
	out := buf.String()
	for _, want := range []string{"level=WARN", "budget_status=exceeded", "month=2024-03", "component=worker"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %s", want, out)
		}
	}
}
