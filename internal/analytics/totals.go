// Package analytics derives totals, per-category spend, budget status, trends
// and recommendations from transaction lists and budget maps.
//
// Every function is a pure computation over its arguments: nothing is cached,
// nothing is shared between calls, and callers may invoke any of them from
// multiple goroutines without coordination. Inputs are expected to have passed
// Validate; amounts are never formatted here.
package analytics

import (
	"errors"
	"fmt"

	"budgetmalin/internal/core"
)

// ErrInvalidInput wraps every validation failure reported by Validate.
var ErrInvalidInput = errors.New("invalid input")

// Totals is the income/expense split of a transaction list.
type Totals struct {
	Income  core.Money `json:"total_income"`
	Expense core.Money `json:"total_expense"`
	Balance core.Money `json:"balance"`
}

// Validate rejects malformed transactions before they reach the engine.
// The returned error wraps both ErrInvalidInput and the underlying core error.
func Validate(ts []core.Transaction) error {
	for i, t := range ts {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("%w: transaction %d (%s): %w", ErrInvalidInput, i, t.ID, err)
		}
	}
	return nil
}

// ValidateBudgets rejects negative limits.
func ValidateBudgets(b core.Budgets) error {
	for cat, limit := range b {
		if limit.Cents < 0 {
			return fmt.Errorf("%w: budget %q: %w", ErrInvalidInput, cat, core.ErrInvalidLimit)
		}
	}
	return nil
}

// ComputeTotals sums income and expense over the whole list without any date filtering.
func ComputeTotals(ts []core.Transaction) Totals {
	var out Totals
	for _, t := range ts {
		switch t.Kind {
		case core.KindIncome:
			out.Income.Cents += t.Amount.Cents
		case core.KindExpense:
			out.Expense.Cents += t.Amount.Cents
		}
	}
	out.Balance = out.Income.Sub(out.Expense)
	return out
}

// ExpenseByCategory sums expense amounts per category.
// Categories whose expense total is zero are omitted.
func ExpenseByCategory(ts []core.Transaction) map[string]core.Money {
	out := make(map[string]core.Money)
	for _, t := range ts {
		if t.Kind != core.KindExpense || t.Amount.Cents == 0 {
			continue
		}
		out[t.Category] = out[t.Category].Add(t.Amount)
	}
	return out
}

// SavingsRate returns the balance as a percentage of income, or 0 without income.
func SavingsRate(t Totals) float64 {
	if t.Income.Cents <= 0 {
		return 0
	}
	return percentOf(t.Balance, t.Income)
}
