// Package memory is an in-process TransactionMirror used when no
// spreadsheet is configured and in tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"budgetmalin/internal/core"
	"budgetmalin/internal/sheets"
)

var _ sheets.TransactionMirror = (*Mirror)(nil)

type Mirror struct {
	mu   sync.Mutex
	rows map[string]row
	next int
}

type row struct {
	n  int
	tx core.Transaction
}

func New() *Mirror {
	return &Mirror{rows: make(map[string]row)}
}

// UpsertTransaction stores t and returns a synthetic row reference.
func (m *Mirror) UpsertTransaction(_ context.Context, t core.Transaction) (string, error) {
	if t.ID == "" {
		return "", fmt.Errorf("mirror transaction: empty id")
	}
	if err := t.Validate(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[t.ID]
	if !ok {
		m.next++
		r.n = m.next
	}
	r.tx = t
	m.rows[t.ID] = r
	return fmt.Sprintf("mem:%d", r.n), nil
}

func (m *Mirror) DeleteTransaction(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

// Rows returns the mirrored transactions in insertion order.
func (m *Mirror) Rows() []core.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	rs := make([]row, 0, len(m.rows))
	for _, r := range m.rows {
		rs = append(rs, r)
	}
	sort.Slice(rs, func(i, j int) bool { return rs[i].n < rs[j].n })
	out := make([]core.Transaction, len(rs))
	for i, r := range rs {
		out[i] = r.tx
	}
	return out
}
