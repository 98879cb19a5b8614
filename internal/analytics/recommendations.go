package analytics

import (
	"fmt"

	"budgetmalin/internal/core"
)

// Severity of a recommendation, mirroring alert styles.
type Severity string

const (
	Info    Severity = "info"
	Success Severity = "success"
	Warn    Severity = "warning"
	Danger  Severity = "danger"
)

// Recommendation is a generated insight. Amount and Count carry the figure a
// message cites so presentation code can format it.
type Recommendation struct {
	Severity Severity    `json:"severity"`
	Title    string      `json:"title"`
	Message  string      `json:"message"`
	Amount   *core.Money `json:"amount,omitempty"`
	Count    int         `json:"count,omitempty"`
}

// lowSavingsPercent is the balance-to-income ratio under which savings are flagged.
const lowSavingsPercent = 10

// GenerateRecommendations applies the rule set in fixed order:
//
//  1. no expenses at all: a single "get started" entry, nothing else
//  2. all-time balance negative (danger) or positive (success)
//  3. one warning when categories exceed their budget in month
//  4. positive balance under 10% of income: low savings
//  5. a single distinct income category: diversify income
//
// budgets must hold the limits of month.
func GenerateRecommendations(ts []core.Transaction, budgets core.Budgets, month core.Month) []Recommendation {
	totals := ComputeTotals(ts)
	if totals.Expense.Cents == 0 {
		return []Recommendation{{
			Severity: Info,
			Title:    "Commencez à enregistrer",
			Message:  "Ajoutez votre première transaction pour commencer à suivre votre budget !",
		}}
	}

	var recs []Recommendation
	balance := totals.Balance
	switch {
	case balance.Cents < 0:
		recs = append(recs, Recommendation{
			Severity: Danger,
			Title:    "Solde négatif",
			Message:  "Votre solde est négatif. Pensez à réduire vos dépenses ou augmenter vos revenus.",
			Amount:   &balance,
		})
	case balance.Cents > 0:
		recs = append(recs, Recommendation{
			Severity: Success,
			Title:    "Excellent !",
			Message:  "Votre solde positif montre une bonne gestion de votre budget.",
			Amount:   &balance,
		})
	}

	monthly := FilterByPeriod(ts, month.First(), month.Last())
	statuses := BudgetStatus(ExpenseByCategory(monthly), budgets)
	if n := CountStatus(statuses, Exceeded); n > 0 {
		recs = append(recs, Recommendation{
			Severity: Warn,
			Title:    "Dépassements de budget",
			Message:  fmt.Sprintf("%d catégorie(s) dépassent leur budget. Revoyez vos dépenses.", n),
			Count:    n,
		})
	}

	if balance.Cents > 0 && balance.Cents*100 < totals.Income.Cents*lowSavingsPercent {
		recs = append(recs, Recommendation{
			Severity: Info,
			Title:    "Épargne faible",
			Message:  "Votre épargne représente moins de 10% de vos revenus. Pensez à épargner davantage.",
		})
	}

	if len(incomeCategories(ts)) == 1 {
		recs = append(recs, Recommendation{
			Severity: Info,
			Title:    "Diversifiez vos revenus",
			Message:  "Vous n'avez qu'une seule source de revenus. Pensez à diversifier pour plus de sécurité.",
		})
	}
	return recs
}

func incomeCategories(ts []core.Transaction) map[string]struct{} {
	out := make(map[string]struct{})
	for _, t := range ts {
		if t.Kind == core.KindIncome {
			out[t.Category] = struct{}{}
		}
	}
	return out
}
