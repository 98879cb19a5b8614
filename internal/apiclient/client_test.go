package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"budgetmalin/internal/core"
)

const testToken = "secret-token"

func newTestServer(t *testing.T, mux *http.ServeMux) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+testToken {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"missing bearer token"}`))
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	c, err := New(Config{BaseURL: srv.URL, Token: testToken})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, srv
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNew_RejectsBadURL(t *testing.T) {
	for _, raw := range []string{"ftp://example.com", "://nope"} {
		if _, err := New(Config{BaseURL: raw}); err == nil {
			t.Errorf("expected error for %q", raw)
		}
	}
}

func TestClient_ListTransactionsSendsFilter(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/transactions", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("start") != "2024-03-01" || q.Get("kind") != "expense" || q.Get("limit") != "5" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		writeJSON(w, http.StatusOK, []core.Transaction{{
			ID: "t1", Amount: core.Money{Cents: 1250}, Kind: core.KindExpense,
			Category: "Loisirs", Date: core.NewDate(2024, 3, 2),
		}})
	})
	c, _ := newTestServer(t, mux)

	got, err := c.ListTransactions(context.Background(), core.TransactionFilter{
		Start: core.NewDate(2024, 3, 1),
		Kind:  core.KindExpense,
		Limit: 5,
	})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(got) != 1 || got[0].Amount.Cents != 1250 || got[0].Date.String() != "2024-03-02" {
		t.Errorf("unexpected transactions: %+v", got)
	}
}

func TestClient_CreateTransaction(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/transactions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		var in core.Transaction
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		in.ID = "generated"
		writeJSON(w, http.StatusCreated, map[string]any{"transaction": in})
	})
	c, _ := newTestServer(t, mux)

	got, err := c.CreateTransaction(context.Background(), core.Transaction{
		Amount: core.Money{Cents: 300000}, Kind: core.KindIncome,
		Category: "Salaire", Date: core.NewDate(2024, 3, 1),
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if got.ID != "generated" || got.Amount.Cents != 300000 {
		t.Errorf("unexpected result: %+v", got)
	}
}

func TestClient_CreateTransactionValidatesLocally(t *testing.T) {
	c, err := New(Config{BaseURL: "http://127.0.0.1:1"})
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.CreateTransaction(context.Background(), core.Transaction{Kind: "other", Category: "x", Date: core.NewDate(2024, 1, 1)})
	if !errors.Is(err, core.ErrInvalidKind) {
		t.Errorf("expected ErrInvalidKind, got %v", err)
	}
}

func TestClient_ErrorMapping(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/transactions/missing", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "transaction missing: not found"})
	})
	mux.HandleFunc("/api/transactions/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	c, srv := newTestServer(t, mux)
	ctx := context.Background()

	_, err := c.GetTransaction(ctx, "missing")
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "transaction missing: not found" {
		t.Errorf("expected decoded message, got %v", err)
	}

	err = c.DeleteTransaction(ctx, "broken")
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusInternalServerError {
		t.Errorf("expected 500 APIError, got %v", err)
	}
	if errors.Is(err, core.ErrNotFound) {
		t.Error("500 must not map to ErrNotFound")
	}

	anon, _ := New(Config{BaseURL: srv.URL})
	if _, err := anon.GetTransaction(ctx, "missing"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestClient_Budgets(t *testing.T) {
	var reset atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/budgets", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("month") != "2024-03" {
			t.Errorf("month = %q", r.URL.Query().Get("month"))
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"month":   "2024-03",
			"budgets": map[string]any{"Alimentation": 400, "Transport": "120.50"},
		})
	})
	mux.HandleFunc("/api/budgets/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/api/budgets/Santé" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		var in limitRequest
		_ = json.NewDecoder(r.Body).Decode(&in)
		writeJSON(w, http.StatusOK, core.Budget{Category: "Santé", Limit: in.Limit, Month: core.Month{Year: 2024, Month: 3}})
	})
	mux.HandleFunc("/api/budgets/reset", func(w http.ResponseWriter, r *http.Request) {
		reset.Add(1)
		w.WriteHeader(http.StatusNoContent)
	})
	c, _ := newTestServer(t, mux)
	ctx := context.Background()
	march := core.Month{Year: 2024, Month: 3}

	budgets, err := c.ListBudgets(ctx, march)
	if err != nil {
		t.Fatalf("ListBudgets: %v", err)
	}
	idx := core.Index(budgets, march)
	if idx["Alimentation"].Cents != 40000 || idx["Transport"].Cents != 12050 {
		t.Errorf("unexpected budgets: %v", idx)
	}

	b, err := c.UpsertBudget(ctx, core.Budget{Category: "Santé", Limit: core.Money{Cents: 5000}, Month: march})
	if err != nil {
		t.Fatalf("UpsertBudget: %v", err)
	}
	if b.Limit.Cents != 5000 {
		t.Errorf("limit = %d", b.Limit.Cents)
	}

	if err := c.ResetBudgets(ctx, march); err != nil {
		t.Fatalf("ResetBudgets: %v", err)
	}
	if reset.Load() != 1 {
		t.Errorf("reset calls = %d", reset.Load())
	}
}

func TestClient_CategoriesAreCached(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/categories", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusOK, []core.Category{{Name: "Salaire", Kind: core.KindIncome}})
	})
	c, _ := newTestServer(t, mux)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		cats, err := c.ListCategories(ctx, core.KindIncome)
		if err != nil {
			t.Fatalf("ListCategories: %v", err)
		}
		if len(cats) != 1 {
			t.Fatalf("expected 1 category, got %d", len(cats))
		}
	}
	if calls.Load() != 1 {
		t.Errorf("expected a single remote call, got %d", calls.Load())
	}

	if _, err := c.ListCategories(ctx, core.KindExpense); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 2 {
		t.Errorf("other kind should miss the cache, calls = %d", calls.Load())
	}
}
