package google

import (
	"context"
	"strings"
	"testing"

	"budgetmalin/internal/core"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{CredentialsJSON: "{}"})
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	_, err := New(context.Background(), Config{SpreadsheetID: "sheet"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_UnreadableCredentialsFile(t *testing.T) {
	_, err := New(context.Background(), Config{SpreadsheetID: "sheet", CredentialsFile: t.TempDir() + "/missing.json"})
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClient_UninitializedService(t *testing.T) {
	c := &Client{spreadsheetID: "test", sheet: "Transactions"}
	tx := core.Transaction{
		ID:       "a",
		Amount:   core.Money{Cents: 100},
		Kind:     core.KindExpense,
		Category: "Transport",
		Date:     core.NewDate(2024, 3, 1),
	}

	if _, err := c.UpsertTransaction(context.Background(), tx); err == nil || !strings.Contains(err.Error(), "not initialized") {
		t.Fatalf("unexpected error: %v", err)
	}
	tx.Category = ""
	if _, err := c.UpsertTransaction(context.Background(), tx); err == nil || !strings.Contains(err.Error(), "validation failed") {
		t.Fatalf("invalid transactions should fail validation first: %v", err)
	}
	if err := c.DeleteTransaction(context.Background(), "a"); err == nil {
		t.Fatal("expected error without service")
	}
}

func TestFindRow(t *testing.T) {
	ids := firstColumn([][]any{{"ID"}, {"a"}, {}, {" b "}})
	tests := []struct {
		id   string
		want int
	}{
		{"a", 2},
		{"b", 4},
		{"c", 0},
	}
	for _, tt := range tests {
		if got := findRow(ids, tt.id); got != tt.want {
			t.Errorf("findRow(%q) = %d, want %d", tt.id, got, tt.want)
		}
	}
}

func TestRowValues(t *testing.T) {
	tx := core.Transaction{
		ID:            "a",
		Amount:        core.Money{Cents: 1234},
		Kind:          core.KindIncome,
		Category:      "Salaire",
		Description:   "mars",
		Date:          core.NewDate(2024, 3, 28),
		PaymentMethod: "virement",
	}
	got := rowValues(tx)
	if len(got) != len(header) {
		t.Fatalf("row has %d cells, header has %d", len(got), len(header))
	}
	if got[1] != "2024-03-28" || got[2] != "income" || got[6] != 12.34 {
		t.Fatalf("unexpected row: %v", got)
	}
	if r := rowRange("Transactions", 7); r != "Transactions!A7:G7" {
		t.Fatalf("rowRange = %q", r)
	}
}
