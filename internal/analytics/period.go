package analytics

import (
	"fmt"
	"strings"
	"time"

	"budgetmalin/internal/core"
)

// PeriodName is a named evaluation window relative to "now".
type PeriodName string

const (
	Last7Days     PeriodName = "7d"
	CurrentMonth  PeriodName = "1m"
	Last3Months   PeriodName = "3m"
	Last6Months   PeriodName = "6m"
	Last12Months  PeriodName = "12m"
	DefaultPeriod            = Last6Months
)

// Period is an inclusive date range.
type Period struct {
	Start core.Date `json:"start"`
	End   core.Date `json:"end"`
}

// ParsePeriodName accepts the canonical names and the bare month counts
// ("1", "3", "6", "12"). An empty string yields DefaultPeriod.
func ParsePeriodName(s string) (PeriodName, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DefaultPeriod, nil
	case "7d":
		return Last7Days, nil
	case "1", "1m", "month":
		return CurrentMonth, nil
	case "3", "3m":
		return Last3Months, nil
	case "6", "6m":
		return Last6Months, nil
	case "12", "12m":
		return Last12Months, nil
	}
	return "", fmt.Errorf("%w: unknown period %q", ErrInvalidInput, s)
}

// ResolvePeriod turns a named period into a concrete range ending today.
// Windows are computed by subtracting whole days or months from now: the last
// 7 days start six days ago, the last N months start N-1 months ago on the
// same day of month. The current month starts on its first day.
func ResolvePeriod(name PeriodName, now time.Time) (Period, error) {
	today := core.DateOf(now)
	p := Period{End: today}
	switch name {
	case Last7Days:
		p.Start = today.AddDays(-6)
	case CurrentMonth:
		p.Start = today.Month().First()
	case Last3Months:
		p.Start = monthsBack(now, 2)
	case Last6Months:
		p.Start = monthsBack(now, 5)
	case Last12Months:
		p.Start = monthsBack(now, 11)
	default:
		return Period{}, fmt.Errorf("%w: unknown period %q", ErrInvalidInput, name)
	}
	return p, nil
}

// MonthPeriod covers one calendar month.
func MonthPeriod(m core.Month) Period {
	return Period{Start: m.First(), End: m.Last()}
}

func (p Period) Contains(d core.Date) bool {
	return !d.Before(p.Start.Time) && !d.After(p.End.Time)
}

// FilterByPeriod keeps transactions whose date lies within [start, end].
func FilterByPeriod(ts []core.Transaction, start, end core.Date) []core.Transaction {
	p := Period{Start: start, End: end}
	out := make([]core.Transaction, 0, len(ts))
	for _, t := range ts {
		if p.Contains(t.Date) {
			out = append(out, t)
		}
	}
	return out
}

// Filter is FilterByPeriod over p.
func (p Period) Filter(ts []core.Transaction) []core.Transaction {
	return FilterByPeriod(ts, p.Start, p.End)
}

func monthsBack(now time.Time, n int) core.Date {
	return core.DateOf(now.AddDate(0, -n, 0))
}
