package local

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"budgetmalin/internal/core"
)

func TestPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "budget.json")
	jan := core.Month{Year: 2024, Month: time.January}

	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	created, err := s.CreateTransaction(ctx, core.Transaction{
		Amount: core.Money{Cents: 30000}, Kind: core.KindExpense, Category: "Nourriture", Date: core.NewDate(2024, 1, 10),
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.UpsertBudget(ctx, core.Budget{Category: "Nourriture", Limit: core.Money{Cents: 25000}, Month: jan}); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	got, err := reopened.GetTransaction(ctx, created.ID)
	if err != nil || got.Amount.Cents != 30000 || !got.Date.Equal(created.Date.Time) {
		t.Fatalf("transaction not persisted: %+v (err=%v)", got, err)
	}
	budgets, _ := reopened.ListBudgets(ctx, jan)
	if len(budgets) != 1 || budgets[0].Limit.Cents != 25000 {
		t.Fatalf("budget not persisted: %+v", budgets)
	}

	if err := reopened.DeleteTransaction(ctx, created.ID); err != nil {
		t.Fatal(err)
	}
	again, _ := Open(path)
	if list, _ := again.ListTransactions(ctx, core.TransactionFilter{}); len(list) != 0 {
		t.Fatalf("delete not persisted")
	}
}

func TestCorruptBlobStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "budget.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	s, err := Open(path)
	if err != nil {
		t.Fatalf("corrupt blob should not fail open: %v", err)
	}
	if list, _ := s.ListTransactions(context.Background(), core.TransactionFilter{}); len(list) != 0 {
		t.Fatalf("expected empty store")
	}
}

func TestFailedWriteDoesNotFlush(t *testing.T) {
	path := filepath.Join(t.TempDir(), "budget.json")
	s, _ := Open(path)
	_, err := s.CreateTransaction(context.Background(), core.Transaction{Kind: "bogus"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("blob should not exist after a rejected write, stat err=%v", err)
	}
}
