package core

import (
	"fmt"
	"time"
)

// Month identifies a calendar month and renders as YYYY-MM.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the calendar month of t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth parses a YYYY-MM key.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return MonthOf(t), nil
}

func (m Month) Validate() error {
	if m.Year < 1 || m.Month < time.January || m.Month > time.December {
		return fmt.Errorf("%w: %d-%d", ErrInvalidMonth, m.Year, m.Month)
	}
	return nil
}

func (m Month) IsZero() bool { return m == Month{} }

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// First returns the first day of the month.
func (m Month) First() Date {
	return NewDate(m.Year, int(m.Month), 1)
}

// Last returns the last day of the month.
func (m Month) Last() Date {
	return m.First().addMonths(1).AddDays(-1)
}

// Contains reports whether d falls within the month.
func (m Month) Contains(d Date) bool {
	return d.Year() == m.Year && d.Time.Month() == m.Month
}

// AddMonths shifts the month by n, crossing year boundaries.
func (m Month) AddMonths(n int) Month {
	return m.First().addMonths(n).Month()
}

func (m Month) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Month) UnmarshalText(b []byte) error {
	parsed, err := ParseMonth(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func (d Date) addMonths(n int) Date {
	return Date{Time: d.Time.AddDate(0, n, 0)}
}
