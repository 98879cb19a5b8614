package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"budgetmalin/internal/core"
)

// Status classifies spend against a monthly limit.
type Status string

const (
	NoBudget Status = "no_budget"
	Ok       Status = "ok"
	Warning  Status = "warning"
	Exceeded Status = "exceeded"
)

var (
	hundred     = decimal.NewFromInt(100)
	warnPercent = decimal.NewFromInt(80)
)

// CategoryStatus is the budget evaluation of one category.
type CategoryStatus struct {
	Category   string     `json:"category"`
	Spent      core.Money `json:"spent"`
	Limit      core.Money `json:"limit"`
	Remaining  core.Money `json:"remaining"`
	Percentage float64    `json:"percentage"`
	Status     Status     `json:"status"`
}

// Alerting reports whether the status should surface to the user.
func (s Status) Alerting() bool {
	return s == Warning || s == Exceeded
}

// rank orders statuses by severity.
func (s Status) rank() int {
	switch s {
	case Warning:
		return 2
	case Exceeded:
		return 3
	}
	return 1
}

// Classify applies the exclusive-lower-bound thresholds: above 100% is
// Exceeded, above 80% up to and including 100% is Warning, anything else is Ok.
// A limit of zero or less is NoBudget.
func Classify(spent, limit core.Money) Status {
	if limit.Cents <= 0 {
		return NoBudget
	}
	s := decimal.NewFromInt(spent.Cents)
	l := decimal.NewFromInt(limit.Cents)
	switch {
	case s.GreaterThan(l):
		return Exceeded
	case s.Mul(hundred).GreaterThan(l.Mul(warnPercent)):
		return Warning
	}
	return Ok
}

// BudgetStatus evaluates every category that has either a budget or some spend.
// Categories without a positive limit are reported as NoBudget with a zero percentage.
func BudgetStatus(spent map[string]core.Money, budgets core.Budgets) map[string]CategoryStatus {
	out := make(map[string]CategoryStatus, len(budgets)+len(spent))
	for cat, limit := range budgets {
		out[cat] = evaluate(cat, spent[cat], limit)
	}
	for cat, amount := range spent {
		if _, ok := out[cat]; ok {
			continue
		}
		out[cat] = evaluate(cat, amount, core.Money{})
	}
	return out
}

func evaluate(cat string, spent, limit core.Money) CategoryStatus {
	cs := CategoryStatus{
		Category: cat,
		Spent:    spent,
		Limit:    limit,
		Status:   Classify(spent, limit),
	}
	if cs.Status == NoBudget {
		return cs
	}
	cs.Remaining = limit.Sub(spent)
	cs.Percentage = percentOf(spent, limit)
	return cs
}

func percentOf(part, whole core.Money) float64 {
	if part.Cents == 0 || whole.Cents == 0 {
		return 0
	}
	return part.Decimal().Mul(hundred).Div(whole.Decimal()).InexactFloat64()
}

// BudgetAlerts returns the Warning and Exceeded entries, most severe first,
// then by category name.
func BudgetAlerts(statuses map[string]CategoryStatus) []CategoryStatus {
	out := make([]CategoryStatus, 0)
	for _, cs := range statuses {
		if cs.Status.Alerting() {
			out = append(out, cs)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Status != out[j].Status {
			return out[i].Status.rank() > out[j].Status.rank()
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// CountStatus counts categories in the given status.
func CountStatus(statuses map[string]CategoryStatus, s Status) int {
	n := 0
	for _, cs := range statuses {
		if cs.Status == s {
			n++
		}
	}
	return n
}

// Overview aggregates a month's budgets.
type Overview struct {
	TotalBudget    core.Money `json:"total_budget"`
	TotalSpent     core.Money `json:"total_spent"`
	TotalRemaining core.Money `json:"total_remaining"`
	AllRespected   bool       `json:"all_respected"`
}

// BudgetOverview sums limits, the month's whole expense and the remaining
// amount per budgeted category.
func BudgetOverview(spent map[string]core.Money, budgets core.Budgets) Overview {
	var o Overview
	for _, amount := range spent {
		o.TotalSpent = o.TotalSpent.Add(amount)
	}
	o.AllRespected = true
	for cat, limit := range budgets {
		o.TotalBudget = o.TotalBudget.Add(limit)
		o.TotalRemaining = o.TotalRemaining.Add(limit.Sub(spent[cat]))
		if Classify(spent[cat], limit).Alerting() {
			o.AllRespected = false
		}
	}
	return o
}

// CategoryAmount is one entry of a ranked category list.
type CategoryAmount struct {
	Category string     `json:"category"`
	Amount   core.Money `json:"amount"`
}

// TopCategories ranks categories by amount, descending, ties broken by name.
// n <= 0 returns every category.
func TopCategories(amounts map[string]core.Money, n int) []CategoryAmount {
	out := make([]CategoryAmount, 0, len(amounts))
	for cat, a := range amounts {
		out = append(out, CategoryAmount{Category: cat, Amount: a})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount.Cents != out[j].Amount.Cents {
			return out[i].Amount.Cents > out[j].Amount.Cents
		}
		return out[i].Category < out[j].Category
	})
	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out
}
