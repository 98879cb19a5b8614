package analytics

import (
	"fmt"

	"budgetmalin/internal/core"
)

// Summary is the derived state of one month. It is recomputed on every call.
type Summary struct {
	Month             core.Month                `json:"month"`
	Totals            Totals                    `json:"totals"`
	SavingsRate       float64                   `json:"savings_rate"`
	ExpenseByCategory map[string]core.Money     `json:"expense_by_category"`
	BudgetStatus      map[string]CategoryStatus `json:"budget_status"`
	Overview          Overview                  `json:"overview"`
	Alerts            []CategoryStatus          `json:"alerts"`
	TopCategories     []CategoryAmount          `json:"top_categories"`
}

// topCategoryCount bounds Summary.TopCategories.
const topCategoryCount = 5

// Summarize evaluates the transactions of month against its budgets.
// Transactions outside month are ignored.
func Summarize(ts []core.Transaction, budgets core.Budgets, month core.Month) Summary {
	monthly := FilterByPeriod(ts, month.First(), month.Last())
	totals := ComputeTotals(monthly)
	spent := ExpenseByCategory(monthly)
	statuses := BudgetStatus(spent, budgets)
	return Summary{
		Month:             month,
		Totals:            totals,
		SavingsRate:       SavingsRate(totals),
		ExpenseByCategory: spent,
		BudgetStatus:      statuses,
		Overview:          BudgetOverview(spent, budgets),
		Alerts:            BudgetAlerts(statuses),
		TopCategories:     TopCategories(spent, topCategoryCount),
	}
}

// Insight is one card of the analysis panel.
type Insight struct {
	Title    string           `json:"title"`
	Message  string           `json:"message"`
	Positive bool             `json:"positive"`
	Amount   *core.Money      `json:"amount,omitempty"`
	Alerts   []CategoryStatus `json:"alerts,omitempty"`
}

// Insights describes balance, budget overruns, savings and income diversity
// over whatever list it is given. Unlike Summarize, budget spend is evaluated
// on the full list rather than one month.
func Insights(ts []core.Transaction, budgets core.Budgets) []Insight {
	totals := ComputeTotals(ts)
	balance := totals.Balance
	out := make([]Insight, 0, 4)

	bal := Insight{Title: "Solde", Positive: balance.Cents >= 0, Amount: &balance}
	if bal.Positive {
		bal.Message = "Votre budget est respecté."
	} else {
		bal.Message = "Votre budget est dépassé."
	}
	out = append(out, bal)

	if alerts := BudgetAlerts(BudgetStatus(ExpenseByCategory(ts), budgets)); len(alerts) > 0 {
		out = append(out, Insight{
			Title:   "Dépassements de Budget",
			Message: fmt.Sprintf("%d catégorie(s) proches ou au-delà de leur budget.", len(alerts)),
			Alerts:  alerts,
		})
	}

	savings := Insight{Title: "Épargne", Positive: balance.Cents > 0, Amount: &balance}
	if savings.Positive {
		savings.Message = "Votre solde est positif, vous épargnez !"
	} else {
		savings.Message = "Votre solde est négatif, vous dépensez !"
	}
	out = append(out, savings)

	diversity := Insight{Title: "Diversification des Revenus", Positive: len(incomeCategories(ts)) != 1}
	if diversity.Positive {
		diversity.Message = "Votre budget est bien diversifié."
	} else {
		diversity.Message = "Vous n'avez qu'une seule source de revenus. Pensez à diversifier pour plus de sécurité."
	}
	return append(out, diversity)
}
