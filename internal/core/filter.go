package core

import "sort"

// TransactionFilter narrows a transaction listing. Zero values mean "no constraint".
type TransactionFilter struct {
	Start    Date
	End      Date
	Kind     Kind
	Category string
	Offset   int
	Limit    int
}

// Match reports whether t satisfies the date, kind and category constraints.
// Categories compare exactly, the way analytics groups them.
// Offset and Limit are applied by Apply.
func (f TransactionFilter) Match(t Transaction) bool {
	if !f.Start.IsZero() && t.Date.Before(f.Start.Time) {
		return false
	}
	if !f.End.IsZero() && t.Date.After(f.End.Time) {
		return false
	}
	if f.Kind != "" && t.Kind != f.Kind {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	return true
}

// Apply filters, sorts newest first and paginates a transaction list.
// The input slice is not modified.
func (f TransactionFilter) Apply(in []Transaction) []Transaction {
	out := make([]Transaction, 0, len(in))
	for _, t := range in {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	SortNewestFirst(out)
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []Transaction{}
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out
}

// SortNewestFirst orders by date descending, then creation time descending.
func SortNewestFirst(ts []Transaction) {
	sort.SliceStable(ts, func(i, j int) bool {
		if !ts[i].Date.Equal(ts[j].Date.Time) {
			return ts[i].Date.After(ts[j].Date.Time)
		}
		return ts[i].CreatedAt.After(ts[j].CreatedAt)
	})
}
