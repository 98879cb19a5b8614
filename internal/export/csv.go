// Package export renders transactions and monthly reports for download.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"budgetmalin/internal/core"
)

var csvHeader = []string{"id", "date", "kind", "category", "description", "payment_method", "amount"}

// WriteCSV writes one row per transaction after a fixed header.
// Amounts use a dot separator and two decimals.
func WriteCSV(w io.Writer, ts []core.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, t := range ts {
		row := []string{
			t.ID,
			t.Date.String(),
			string(t.Kind),
			t.Category,
			t.Description,
			t.PaymentMethod,
			t.Amount.String(),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %s: %w", t.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes transactions as an indented JSON array. A nil list
// renders as [].
func WriteJSON(w io.Writer, ts []core.Transaction) error {
	if ts == nil {
		ts = []core.Transaction{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ts)
}
