// Package services orchestrates store writes, budget evaluation and event
// publication. Handlers and workers talk to services, never to stores
// directly for writes.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"budgetmalin/internal/amqp"
	"budgetmalin/internal/analytics"
	"budgetmalin/internal/core"
	"budgetmalin/internal/log"
	"budgetmalin/internal/store"
)

// Publisher is the subset of the AMQP client the services depend on.
type Publisher interface {
	PublishTransactionSync(ctx context.Context, t core.Transaction) error
	PublishTransactionDelete(ctx context.Context, t core.Transaction) error
	PublishBudgetAlert(ctx context.Context, msg *amqp.BudgetAlertMessage) error
}

// WriteResult is the outcome of a transaction write. Alert is set when the
// write pushed its category into Warning or Exceeded for the current month.
type WriteResult struct {
	Transaction core.Transaction          `json:"transaction"`
	Alert       *analytics.CategoryStatus `json:"alert,omitempty"`
}

// LedgerService saves to the store first, then publishes. Publication
// failures are logged and never fail the write.
type LedgerService struct {
	store     store.Store
	publisher Publisher
	logger    *log.Logger
	now       func() time.Time
}

// NewLedgerService accepts a nil publisher when no broker is configured.
func NewLedgerService(s store.Store, publisher Publisher, logger *log.Logger) *LedgerService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &LedgerService{
		store:     s,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentLedger),
		now:       time.Now,
	}
}

// WithClock overrides the clock used to find the current month.
func (s *LedgerService) WithClock(now func() time.Time) *LedgerService {
	s.now = now
	return s
}

// Store exposes the underlying store for read paths.
func (s *LedgerService) Store() store.Store { return s.store }

func (s *LedgerService) ListTransactions(ctx context.Context, f core.TransactionFilter) ([]core.Transaction, error) {
	return s.store.ListTransactions(ctx, f)
}

func (s *LedgerService) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, id)
}

func (s *LedgerService) CreateTransaction(ctx context.Context, t core.Transaction) (WriteResult, error) {
	t.Category = strings.TrimSpace(t.Category)
	if err := t.Validate(); err != nil {
		return WriteResult{}, err
	}

	saved, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		s.logWriteError(ctx, log.OpCreate, t, err)
		return WriteResult{}, fmt.Errorf("save transaction: %w", err)
	}
	s.logWrite(ctx, log.OpCreate, saved)

	s.publishSync(ctx, saved)
	return WriteResult{Transaction: saved, Alert: s.checkBudget(ctx, saved)}, nil
}

func (s *LedgerService) UpdateTransaction(ctx context.Context, t core.Transaction) (WriteResult, error) {
	t.Category = strings.TrimSpace(t.Category)
	if err := t.Validate(); err != nil {
		return WriteResult{}, err
	}

	saved, err := s.store.UpdateTransaction(ctx, t)
	if err != nil {
		s.logWriteError(ctx, log.OpUpdate, t, err)
		return WriteResult{}, fmt.Errorf("update transaction: %w", err)
	}
	s.logWrite(ctx, log.OpUpdate, saved)

	s.publishSync(ctx, saved)
	return WriteResult{Transaction: saved, Alert: s.checkBudget(ctx, saved)}, nil
}

// DeleteTransaction removes id and publishes the last known state so the
// mirror can drop its row.
func (s *LedgerService) DeleteTransaction(ctx context.Context, id string) error {
	existing, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		s.logWriteError(ctx, log.OpDelete, existing, err)
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.logWrite(ctx, log.OpDelete, existing)

	if s.publisher == nil {
		s.logger.WarnContext(ctx, "AMQP client not available, skipping delete message", log.FieldTransactionID, id)
		return nil
	}
	if err := s.publisher.PublishTransactionDelete(ctx, existing); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish delete message", log.FieldTransactionID, id, log.FieldError, err)
	}
	return nil
}

// Budgets returns the limits of a month as a category lookup.
func (s *LedgerService) Budgets(ctx context.Context, month core.Month) (core.Budgets, error) {
	list, err := s.store.ListBudgets(ctx, month)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return core.Index(list, month), nil
}

// SetBudget stores one category limit. A zero limit removes the budget.
func (s *LedgerService) SetBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	b.Category = strings.TrimSpace(b.Category)
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	if b.Limit.Cents == 0 {
		err := s.store.DeleteBudget(ctx, b.Month, b.Category)
		if err != nil && !errors.Is(err, core.ErrNotFound) {
			return core.Budget{}, fmt.Errorf("delete budget: %w", err)
		}
		return b, nil
	}
	saved, err := s.store.UpsertBudget(ctx, b)
	if err != nil {
		return core.Budget{}, fmt.Errorf("save budget: %w", err)
	}
	s.logger.InfoContext(ctx, "Budget saved",
		log.FieldOperation, log.OpUpdate,
		log.FieldMonth, saved.Month.String(),
		log.FieldCategory, saved.Category,
		log.FieldLimitCents, saved.Limit.Cents)
	return saved, nil
}

// SetBudgets applies a whole month of limits: positive limits are saved,
// zero limits are removed. Nothing is written if any entry is invalid.
func (s *LedgerService) SetBudgets(ctx context.Context, month core.Month, limits core.Budgets) (core.Budgets, error) {
	if err := month.Validate(); err != nil {
		return nil, err
	}
	for cat, limit := range limits {
		if err := (core.Budget{Category: cat, Limit: limit, Month: month}).Validate(); err != nil {
			return nil, fmt.Errorf("budget %q: %w", cat, err)
		}
	}
	for cat, limit := range limits {
		if _, err := s.SetBudget(ctx, core.Budget{Category: cat, Limit: limit, Month: month}); err != nil {
			return nil, err
		}
	}
	return s.Budgets(ctx, month)
}

func (s *LedgerService) DeleteBudget(ctx context.Context, month core.Month, category string) error {
	if err := month.Validate(); err != nil {
		return err
	}
	return s.store.DeleteBudget(ctx, month, category)
}

func (s *LedgerService) ResetBudgets(ctx context.Context, month core.Month) error {
	if err := month.Validate(); err != nil {
		return err
	}
	if err := s.store.ResetBudgets(ctx, month); err != nil {
		return fmt.Errorf("reset budgets: %w", err)
	}
	s.logger.InfoContext(ctx, "Budgets reset", log.FieldMonth, month.String())
	return nil
}

func (s *LedgerService) Categories(ctx context.Context, kind core.Kind) ([]core.Category, error) {
	return s.store.ListCategories(ctx, kind)
}

func (s *LedgerService) publishSync(ctx context.Context, t core.Transaction) {
	if s.publisher == nil {
		s.logger.WarnContext(ctx, "AMQP client not available, skipping sync message", log.FieldTransactionID, t.ID)
		return
	}
	if err := s.publisher.PublishTransactionSync(ctx, t); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish sync message", log.FieldTransactionID, t.ID, log.FieldError, err)
	}
}

// checkBudget evaluates the category of an expense written into the
// current month and publishes an alert when it crossed a threshold.
func (s *LedgerService) checkBudget(ctx context.Context, t core.Transaction) *analytics.CategoryStatus {
	month := core.MonthOf(s.now())
	if t.Kind != core.KindExpense || t.Date.Month() != month {
		return nil
	}

	status, err := categoryStatus(ctx, s.store, month, t.Category)
	if err != nil {
		s.logger.WarnContext(ctx, "Budget check failed", log.FieldCategory, t.Category, log.FieldError, err)
		return nil
	}
	if !status.Status.Alerting() {
		return nil
	}

	s.logger.Fields(ctx, slog.LevelWarn, "Budget threshold crossed",
		log.NewFields().WithBudget(month.String(), status.Category, status.Spent.Cents, status.Limit.Cents, status.Percentage, string(status.Status)))
	if s.publisher != nil {
		if err := s.publisher.PublishBudgetAlert(ctx, amqp.NewBudgetAlertMessage(month, status)); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish budget alert", log.FieldCategory, status.Category, log.FieldError, err)
		}
	}
	return &status
}

func (s *LedgerService) logWrite(ctx context.Context, op string, t core.Transaction) {
	s.logger.Fields(ctx, slog.LevelInfo, "Transaction "+op,
		log.NewFields().WithOperation(op).WithTransaction(t.ID, string(t.Kind), t.Category, t.Amount.Cents))
}

func (s *LedgerService) logWriteError(ctx context.Context, op string, t core.Transaction, err error) {
	s.logger.Fields(ctx, slog.LevelError, "Transaction write failed",
		log.NewFields().WithOperation(op).WithTransaction(t.ID, string(t.Kind), t.Category, t.Amount.Cents).
			WithError(err).WithErrorType(log.ErrorTypeDatabase))
}

// Close closes the store and the publisher when they hold resources.
func (s *LedgerService) Close() error {
	var errs []error
	if c, ok := s.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %w", errors.Join(errs...))
	}
	return nil
}

// categoryStatus evaluates one category of month against its budget.
func categoryStatus(ctx context.Context, st store.Store, month core.Month, category string) (analytics.CategoryStatus, error) {
	statuses, err := monthStatuses(ctx, st, month, category)
	if err != nil {
		return analytics.CategoryStatus{}, err
	}
	if s, ok := statuses[category]; ok {
		return s, nil
	}
	return analytics.CategoryStatus{Category: category, Status: analytics.NoBudget}, nil
}

// monthStatuses loads the expenses and budgets of month and evaluates them.
// An empty category evaluates every category.
func monthStatuses(ctx context.Context, st store.Store, month core.Month, category string) (map[string]analytics.CategoryStatus, error) {
	ts, err := st.ListTransactions(ctx, core.TransactionFilter{
		Start:    month.First(),
		End:      month.Last(),
		Kind:     core.KindExpense,
		Category: category,
	})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	list, err := st.ListBudgets(ctx, month)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return analytics.BudgetStatus(analytics.ExpenseByCategory(ts), core.Index(list, month)), nil
}
