package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want Date
		ok   bool
	}{
		{"2024-01-05", NewDate(2024, 1, 5), true},
		{" 2024-02-29 ", NewDate(2024, 2, 29), true},
		{"2024-03-10T15:04:05Z", NewDate(2024, 3, 10), true},
		{"2024-13-01", Date{}, false},
		{"05/01/2024", Date{}, false},
		{"", Date{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseDate(tc.in)
			if !tc.ok {
				if !errors.Is(err, ErrInvalidDate) {
					t.Fatalf("expected ErrInvalidDate, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tc.want.Time) {
				t.Fatalf("got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestParseKind(t *testing.T) {
	cases := map[string]Kind{
		"income":  KindIncome,
		"revenu":  KindIncome,
		"Expense": KindExpense,
		"depense": KindExpense,
	}
	for in, want := range cases {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Fatalf("%q: got %q (err=%v), want %q", in, got, err, want)
		}
	}
	if _, err := ParseKind("transfer"); !errors.Is(err, ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Amount:   Money{Cents: 100},
		Kind:     KindExpense,
		Category: "Nourriture",
		Date:     NewDate(2025, 1, 1),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	zero := good
	zero.Amount = Money{}
	if err := zero.Validate(); err != nil {
		t.Fatalf("zero amount should be accepted, got %v", err)
	}

	cases := []struct {
		name string
		mut  func(*Transaction)
		want error
	}{
		{"negative amount", func(tx *Transaction) { tx.Amount.Cents = -1 }, ErrInvalidAmount},
		{"unknown kind", func(tx *Transaction) { tx.Kind = "gift" }, ErrInvalidKind},
		{"empty category", func(tx *Transaction) { tx.Category = "  " }, ErrEmptyCategory},
		{"zero date", func(tx *Transaction) { tx.Date = Date{} }, ErrInvalidDate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tx := good
			tc.mut(&tx)
			if err := tx.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestBudgetValidate(t *testing.T) {
	m := Month{Year: 2024, Month: time.January}
	if err := (Budget{Category: "Transport", Limit: Money{Cents: 0}, Month: m}).Validate(); err != nil {
		t.Fatalf("zero limit is a valid NoBudget entry, got %v", err)
	}
	if err := (Budget{Category: "Transport", Limit: Money{Cents: -5}, Month: m}).Validate(); !errors.Is(err, ErrInvalidLimit) {
		t.Fatalf("expected ErrInvalidLimit, got %v", err)
	}
	if err := (Budget{Category: "Transport", Limit: Money{Cents: 5}}).Validate(); !errors.Is(err, ErrInvalidMonth) {
		t.Fatalf("expected ErrInvalidMonth, got %v", err)
	}
}

func TestIndexKeepsRequestedMonth(t *testing.T) {
	jan := Month{Year: 2024, Month: time.January}
	feb := jan.AddMonths(1)
	idx := Index([]Budget{
		{Category: "Nourriture", Limit: Money{Cents: 25000}, Month: jan},
		{Category: "Nourriture", Limit: Money{Cents: 10000}, Month: feb},
		{Category: "Transport", Limit: Money{Cents: 5000}, Month: feb},
	}, jan)
	if len(idx) != 1 || idx["Nourriture"].Cents != 25000 {
		t.Fatalf("unexpected index: %+v", idx)
	}
}

func TestTransactionJSON(t *testing.T) {
	tx := Transaction{
		ID:       "abc",
		Amount:   Money{Cents: 123456},
		Kind:     KindIncome,
		Category: "Salaire",
		Date:     NewDate(2024, 1, 5),
	}
	b, err := json.Marshal(tx)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"date":"2024-01-05"`) {
		t.Fatalf("date should encode as a calendar day: %s", b)
	}
	var back Transaction
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if back.Amount != tx.Amount || !back.Date.Equal(tx.Date.Time) || back.Kind != tx.Kind {
		t.Fatalf("round trip mismatch: %s -> %+v", b, back)
	}
}
