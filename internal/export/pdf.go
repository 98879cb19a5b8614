package export

import (
	"fmt"
	"io"
	"sort"

	"github.com/phpdave11/gofpdf"

	"budgetmalin/internal/analytics"
)

var statusLabels = map[analytics.Status]string{
	analytics.NoBudget: "Sans budget",
	analytics.Ok:       "OK",
	analytics.Warning:  "Attention",
	analytics.Exceeded: "Dépassé",
}

// MonthlyReport writes a one-page PDF with the month's totals, budget table
// and recommendations.
func MonthlyReport(w io.Writer, sum analytics.Summary, recs []analytics.Recommendation) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr("Rapport budgétaire "+sum.Month.String()), false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, tr("Rapport budgétaire"))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, "Mois : "+sum.Month.String())
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, "Totaux")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	for _, line := range [][2]string{
		{"Revenus", euros(sum.Totals.Income.String())},
		{"Dépenses", euros(sum.Totals.Expense.String())},
		{"Solde", euros(sum.Totals.Balance.String())},
		{"Taux d'épargne", fmt.Sprintf("%.1f %%", sum.SavingsRate)},
	} {
		pdf.Cell(60, 7, tr(line[0]))
		pdf.Cell(50, 7, tr(line[1]))
		pdf.Ln(7)
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, "Budgets")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(55, 7, tr("Catégorie"))
	pdf.Cell(35, 7, tr("Dépensé"))
	pdf.Cell(35, 7, "Limite")
	pdf.Cell(25, 7, "%")
	pdf.Cell(30, 7, "Statut")
	pdf.Ln(7)

	pdf.SetFont("Helvetica", "", 11)
	for _, cs := range sortedStatuses(sum.BudgetStatus) {
		limit := "-"
		pct := "-"
		if cs.Status != analytics.NoBudget {
			limit = euros(cs.Limit.String())
			pct = fmt.Sprintf("%.1f", cs.Percentage)
		}
		pdf.Cell(55, 7, tr(cs.Category))
		pdf.Cell(35, 7, tr(euros(cs.Spent.String())))
		pdf.Cell(35, 7, tr(limit))
		pdf.Cell(25, 7, pct)
		pdf.Cell(30, 7, tr(statusLabels[cs.Status]))
		pdf.Ln(7)
	}
	if len(sum.BudgetStatus) == 0 {
		pdf.Cell(0, 7, tr("Aucune dépense ce mois-ci."))
		pdf.Ln(7)
	}
	pdf.Ln(4)

	if len(recs) > 0 {
		pdf.SetFont("Helvetica", "B", 13)
		pdf.Cell(0, 8, "Recommandations")
		pdf.Ln(8)
		for _, r := range recs {
			title := r.Title
			if r.Amount != nil {
				title += " : " + euros(r.Amount.String())
			}
			pdf.SetFont("Helvetica", "B", 11)
			pdf.Cell(0, 7, tr(title))
			pdf.Ln(7)
			pdf.SetFont("Helvetica", "", 11)
			pdf.MultiCell(0, 6, tr(r.Message), "", "L", false)
			pdf.Ln(2)
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

func euros(amount string) string {
	return amount + " €"
}

func sortedStatuses(m map[string]analytics.CategoryStatus) []analytics.CategoryStatus {
	out := make([]analytics.CategoryStatus, 0, len(m))
	for _, cs := range m {
		out = append(out, cs)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Spent.Cents != out[j].Spent.Cents {
			return out[i].Spent.Cents > out[j].Spent.Cents
		}
		return out[i].Category < out[j].Category
	})
	return out
}
