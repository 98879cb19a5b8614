package analytics

import (
	"testing"
	"time"

	"budgetmalin/internal/core"
)

func TestResolvePeriod(t *testing.T) {
	now := time.Date(2024, time.March, 15, 18, 30, 0, 0, time.UTC)
	cases := []struct {
		name  PeriodName
		start core.Date
	}{
		{Last7Days, core.NewDate(2024, 3, 9)},
		{CurrentMonth, core.NewDate(2024, 3, 1)},
		{Last3Months, core.NewDate(2024, 1, 15)},
		{Last6Months, core.NewDate(2023, 10, 15)},
		{Last12Months, core.NewDate(2023, 4, 15)},
	}
	for _, tc := range cases {
		t.Run(string(tc.name), func(t *testing.T) {
			p, err := ResolvePeriod(tc.name, now)
			if err != nil {
				t.Fatal(err)
			}
			if !p.Start.Equal(tc.start.Time) {
				t.Fatalf("start: got %s, want %s", p.Start, tc.start)
			}
			if !p.End.Equal(core.NewDate(2024, 3, 15).Time) {
				t.Fatalf("end: got %s", p.End)
			}
		})
	}
	if _, err := ResolvePeriod("2w", now); err == nil {
		t.Fatalf("expected error for unknown period")
	}
}

func TestParsePeriodName(t *testing.T) {
	cases := map[string]PeriodName{
		"":    Last6Months,
		"7d":  Last7Days,
		"1":   CurrentMonth,
		"3":   Last3Months,
		"6m":  Last6Months,
		"12":  Last12Months,
		"12M": Last12Months,
	}
	for in, want := range cases {
		got, err := ParsePeriodName(in)
		if err != nil || got != want {
			t.Fatalf("%q: got %q (err=%v), want %q", in, got, err, want)
		}
	}
	if _, err := ParsePeriodName("quarter"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestFilterByPeriodIsInclusive(t *testing.T) {
	ts := []core.Transaction{
		expense("before", 1, "x", "2024-01-31"),
		expense("start", 1, "x", "2024-02-01"),
		expense("mid", 1, "x", "2024-02-14"),
		expense("end", 1, "x", "2024-02-29"),
		expense("after", 1, "x", "2024-03-01"),
	}
	got := FilterByPeriod(ts, core.NewDate(2024, 2, 1), core.NewDate(2024, 2, 29))
	want := []string{"start", "mid", "end"}
	if len(got) != len(want) {
		t.Fatalf("got %d transactions, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Fatalf("position %d: got %s, want %s", i, got[i].ID, want[i])
		}
	}
	if p := MonthPeriod(month(2024, time.February)); len(p.Filter(ts)) != 3 {
		t.Fatalf("month period should match the same range")
	}
}
