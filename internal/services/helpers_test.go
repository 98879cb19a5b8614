package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"budgetmalin/internal/amqp"
	"budgetmalin/internal/core"
)

type fakePublisher struct {
	mu      sync.Mutex
	synced  []core.Transaction
	deleted []core.Transaction
	alerts  []*amqp.BudgetAlertMessage
	err     error
}

func (p *fakePublisher) PublishTransactionSync(_ context.Context, t core.Transaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.synced = append(p.synced, t)
	return p.err
}

func (p *fakePublisher) PublishTransactionDelete(_ context.Context, t core.Transaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, t)
	return p.err
}

func (p *fakePublisher) PublishBudgetAlert(_ context.Context, msg *amqp.BudgetAlertMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerts = append(p.alerts, msg)
	return p.err
}

var errBroker = errors.New("connection refused")

// fixedNow is mid-March 2024.
func fixedNow() time.Time {
	return time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)
}

var march = core.Month{Year: 2024, Month: time.March}

func expense(category string, cents int64, d core.Date) core.Transaction {
	return core.Transaction{
		Amount:   core.Money{Cents: cents},
		Kind:     core.KindExpense,
		Category: category,
		Date:     d,
	}
}
