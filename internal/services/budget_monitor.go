package services

import (
	"context"
	"fmt"
	"time"

	"budgetmalin/internal/amqp"
	"budgetmalin/internal/analytics"
	"budgetmalin/internal/core"
	"budgetmalin/internal/log"
	"budgetmalin/internal/store"
)

// BudgetMonitor evaluates every budget of the current month on demand,
// typically from a cron schedule.
type BudgetMonitor struct {
	store     store.Store
	publisher Publisher
	logger    *log.Logger
}

func NewBudgetMonitor(s store.Store, publisher Publisher, logger *log.Logger) *BudgetMonitor {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &BudgetMonitor{store: s, publisher: publisher, logger: logger.WithComponent(log.ComponentScheduler)}
}

// Check returns the alerting categories of the month containing now, most
// severe first, and publishes one message per alert.
func (m *BudgetMonitor) Check(ctx context.Context, now time.Time) ([]analytics.CategoryStatus, error) {
	month := core.MonthOf(now)
	statuses, err := monthStatuses(ctx, m.store, month, "")
	if err != nil {
		return nil, fmt.Errorf("budget check %s: %w", month, err)
	}
	alerts := analytics.BudgetAlerts(statuses)

	m.logger.InfoContext(ctx, "Budget check completed",
		log.FieldMonth, month.String(),
		"categories", len(statuses),
		"alerts", len(alerts))

	if m.publisher == nil {
		return alerts, nil
	}
	for _, a := range alerts {
		if err := m.publisher.PublishBudgetAlert(ctx, amqp.NewBudgetAlertMessage(month, a)); err != nil {
			m.logger.ErrorContext(ctx, "Failed to publish budget alert",
				log.FieldCategory, a.Category,
				log.FieldError, err)
		}
	}
	return alerts, nil
}
