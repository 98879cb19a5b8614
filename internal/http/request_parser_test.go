package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"budgetmalin/internal/analytics"
	"budgetmalin/internal/core"
)

var testNow = time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

func TestParseMonth(t *testing.T) {
	tests := []struct {
		name    string
		query   url.Values
		want    string
		wantErr bool
	}{
		{"default is current month", url.Values{}, "2024-03", false},
		{"explicit", url.Values{"month": {"2023-11"}}, "2023-11", false},
		{"invalid", url.Values{"month": {"2023-13"}}, "", true},
		{"wrong layout", url.Values{"month": {"11/2023"}}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMonth(tt.query, testNow)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, core.ErrInvalidMonth) {
					t.Errorf("expected ErrInvalidMonth, got %v", err)
				}
				return
			}
			if got.String() != tt.want {
				t.Errorf("month = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod(url.Values{}, testNow, analytics.CurrentMonth)
	if err != nil {
		t.Fatal(err)
	}
	if p.Start.String() != "2024-03-01" || p.End.String() != "2024-03-15" {
		t.Errorf("fallback period = %s..%s", p.Start, p.End)
	}

	p, err = ParsePeriod(url.Values{"period": {"3m"}}, testNow, analytics.CurrentMonth)
	if err != nil {
		t.Fatal(err)
	}
	if p.Start.String() != "2024-01-15" {
		t.Errorf("3m start = %s", p.Start)
	}

	if _, err := ParsePeriod(url.Values{"period": {"2w"}}, testNow, analytics.CurrentMonth); !errors.Is(err, analytics.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		check   func(t *testing.T, f core.TransactionFilter)
		wantErr error
	}{
		{
			name:  "empty query",
			query: "",
			check: func(t *testing.T, f core.TransactionFilter) {
				if !f.Start.IsZero() || !f.End.IsZero() || f.Kind != "" || f.Limit != 0 {
					t.Errorf("expected zero filter, got %+v", f)
				}
			},
		},
		{
			name:  "period sets range",
			query: "period=7d",
			check: func(t *testing.T, f core.TransactionFilter) {
				if f.Start.String() != "2024-03-09" || f.End.String() != "2024-03-15" {
					t.Errorf("range = %s..%s", f.Start, f.End)
				}
			},
		},
		{
			name:  "explicit start overrides period",
			query: "period=7d&start=2024-03-01",
			check: func(t *testing.T, f core.TransactionFilter) {
				if f.Start.String() != "2024-03-01" || f.End.String() != "2024-03-15" {
					t.Errorf("range = %s..%s", f.Start, f.End)
				}
			},
		},
		{
			name:  "legacy kind and paging",
			query: "kind=depense&category=+Loisirs+&offset=10&limit=5000",
			check: func(t *testing.T, f core.TransactionFilter) {
				if f.Kind != core.KindExpense || f.Category != "Loisirs" || f.Offset != 10 || f.Limit != maxPageSize {
					t.Errorf("unexpected filter %+v", f)
				}
			},
		},
		{name: "bad kind", query: "kind=gift", wantErr: core.ErrInvalidKind},
		{name: "bad date", query: "start=2024-02-30", wantErr: core.ErrInvalidDate},
		{name: "end before start", query: "start=2024-03-10&end=2024-03-01", wantErr: errBadRequest},
		{name: "negative limit", query: "limit=-1", wantErr: errBadRequest},
		{name: "non numeric offset", query: "offset=ten", wantErr: errBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			f, err := ParseFilter(q, testNow)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFilter: %v", err)
			}
			tt.check(t, f)
		})
	}
}

func TestRequestBodyParser_Transaction(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		wantCents   int64
		wantKind    core.Kind
		wantErr     error
	}{
		{
			name:        "json with number amount",
			contentType: "application/json",
			body:        `{"amount": 12.5, "kind": "expense", "category": "Loisirs", "date": "2024-03-02"}`,
			wantCents:   1250,
			wantKind:    core.KindExpense,
		},
		{
			name:        "json with string amount and legacy kind",
			contentType: "application/json",
			body:        `{"amount": "2500,00", "kind": "revenu", "category": "Salaire", "date": "2024-03-01"}`,
			wantCents:   250000,
			wantKind:    core.KindIncome,
		},
		{
			name:        "form encoded",
			contentType: "application/x-www-form-urlencoded",
			body:        "amount=3%2C99&kind=depense&category=Caf%C3%A9&date=2024-03-03",
			wantCents:   399,
			wantKind:    core.KindExpense,
		},
		{
			name:    "negative amount",
			body:    `{"amount": -1, "kind": "expense", "category": "x", "date": "2024-03-02"}`,
			wantErr: core.ErrInvalidAmount,
		},
		{
			name:    "missing date",
			body:    `{"amount": 1, "kind": "expense", "category": "x"}`,
			wantErr: core.ErrInvalidDate,
		},
		{
			name:    "broken json",
			body:    `{"amount": 1,`,
			wantErr: errBadRequest,
		},
		{
			name:    "array body",
			body:    `[1, 2]`,
			wantErr: errBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			got, err := NewRequestBodyParser(httptest.NewRecorder(), req).Transaction()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Transaction: %v", err)
			}
			if got.Amount.Cents != tt.wantCents || got.Kind != tt.wantKind {
				t.Errorf("got %+v", got)
			}
		})
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  Loisirs\x00\x07 \tbis "); got != "Loisirs \tbis" {
		t.Errorf("sanitizeInput = %q", got)
	}
}
