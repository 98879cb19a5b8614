package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"budgetmalin/internal/core"
)

// Direction summarizes the recent movement of income versus expense.
type Direction string

const (
	Rising  Direction = "rising"
	Falling Direction = "falling"
	Stable  Direction = "stable"
)

// trendWindow is how many trailing months DetermineTrend looks at.
const trendWindow = 3

// MonthlyTrend holds per-month sums in ascending month order. Months without
// transactions are absent rather than zero.
type MonthlyTrend struct {
	Months         []core.Month `json:"months"`
	Expense        []core.Money `json:"expense"`
	Income         []core.Money `json:"income"`
	AverageExpense core.Money   `json:"average_expense"`
	AverageIncome  core.Money   `json:"average_income"`
}

// ComputeMonthlyTrend groups transactions by month regardless of input order.
func ComputeMonthlyTrend(ts []core.Transaction) MonthlyTrend {
	type sums struct{ income, expense core.Money }
	byMonth := make(map[core.Month]*sums)
	for _, t := range ts {
		m := t.Date.Month()
		s, ok := byMonth[m]
		if !ok {
			s = &sums{}
			byMonth[m] = s
		}
		switch t.Kind {
		case core.KindIncome:
			s.income = s.income.Add(t.Amount)
		case core.KindExpense:
			s.expense = s.expense.Add(t.Amount)
		}
	}

	mt := MonthlyTrend{
		Months:  make([]core.Month, 0, len(byMonth)),
		Expense: make([]core.Money, 0, len(byMonth)),
		Income:  make([]core.Money, 0, len(byMonth)),
	}
	for m := range byMonth {
		mt.Months = append(mt.Months, m)
	}
	sort.Slice(mt.Months, func(i, j int) bool {
		return mt.Months[i].String() < mt.Months[j].String()
	})
	var totalIncome, totalExpense core.Money
	for _, m := range mt.Months {
		s := byMonth[m]
		mt.Income = append(mt.Income, s.income)
		mt.Expense = append(mt.Expense, s.expense)
		totalIncome = totalIncome.Add(s.income)
		totalExpense = totalExpense.Add(s.expense)
	}
	mt.AverageIncome = average(totalIncome, len(mt.Months))
	mt.AverageExpense = average(totalExpense, len(mt.Months))
	return mt
}

func average(total core.Money, n int) core.Money {
	if n == 0 {
		return core.Money{}
	}
	avg := decimal.NewFromInt(total.Cents).Div(decimal.NewFromInt(int64(n))).Round(0)
	return core.Money{Cents: avg.IntPart()}
}

// DetermineTrend compares the last month with the first of the trailing
// window for both series. Fewer than two months is always Stable.
func DetermineTrend(mt MonthlyTrend) Direction {
	n := len(mt.Expense)
	if n < 2 || len(mt.Income) != n {
		return Stable
	}
	first := n - trendWindow
	if first < 0 {
		first = 0
	}
	expenseDelta := mt.Expense[n-1].Cents - mt.Expense[first].Cents
	incomeDelta := mt.Income[n-1].Cents - mt.Income[first].Cents

	switch {
	case incomeDelta > expenseDelta && incomeDelta > 0:
		return Rising
	case expenseDelta > incomeDelta && expenseDelta > 0:
		return Falling
	}
	return Stable
}
