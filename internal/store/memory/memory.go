package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"budgetmalin/internal/core"
)

// Store keeps transactions and budgets in process memory.
type Store struct {
	mu           sync.Mutex
	categories   []core.Category
	transactions []core.Transaction
	budgets      map[core.Month]core.Budgets
	now          func() time.Time
}

// Snapshot is the full content of a Store.
type Snapshot struct {
	Transactions []core.Transaction      `json:"transactions"`
	Budgets      map[string]core.Budgets `json:"budgets"`
}

func New(categories ...core.Category) *Store {
	if len(categories) == 0 {
		categories = core.DefaultCategories
	}
	return &Store{
		categories: dedupe(categories),
		budgets:    make(map[core.Month]core.Budgets),
		now:        time.Now,
	}
}

// WithClock overrides the timestamp source, for tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) ListTransactions(_ context.Context, f core.TransactionFilter) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return f.Apply(s.transactions), nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	return s.transactions[i], nil
}

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" || s.indexOf(t.ID) >= 0 {
		t.ID = uuid.NewString()
	}
	ts := s.now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = ts
	}
	t.UpdatedAt = ts
	s.transactions = append(s.transactions, t)
	return t, nil
}

func (s *Store) UpdateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(t.ID)
	if i < 0 {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", t.ID, core.ErrNotFound)
	}
	t.CreatedAt = s.transactions[i].CreatedAt
	t.UpdatedAt = s.now().UTC()
	s.transactions[i] = t
	return t, nil
}

func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	s.transactions = append(s.transactions[:i], s.transactions[i+1:]...)
	return nil
}

func (s *Store) ListBudgets(_ context.Context, month core.Month) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Budget, 0, len(s.budgets[month]))
	for cat, limit := range s.budgets[month] {
		out = append(out, core.Budget{Category: cat, Limit: limit, Month: month})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (s *Store) UpsertBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.budgets[b.Month] == nil {
		s.budgets[b.Month] = make(core.Budgets)
	}
	s.budgets[b.Month][b.Category] = b.Limit
	return b, nil
}

func (s *Store) DeleteBudget(_ context.Context, month core.Month, category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.budgets[month][category]; !ok {
		return fmt.Errorf("budget %s/%s: %w", month, category, core.ErrNotFound)
	}
	delete(s.budgets[month], category)
	return nil
}

func (s *Store) ResetBudgets(_ context.Context, month core.Month) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.budgets, month)
	return nil
}

// ListCategories returns seeded categories of the given kind, or all when kind is empty.
func (s *Store) ListCategories(_ context.Context, kind core.Kind) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Category, 0, len(s.categories))
	for _, c := range s.categories {
		if kind == "" || c.Kind == kind {
			out = append(out, c)
		}
	}
	return out, nil
}

// Snapshot copies the store content.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Transactions: append([]core.Transaction(nil), s.transactions...),
		Budgets:      make(map[string]core.Budgets, len(s.budgets)),
	}
	for m, b := range s.budgets {
		cp := make(core.Budgets, len(b))
		for k, v := range b {
			cp[k] = v
		}
		snap.Budgets[m.String()] = cp
	}
	return snap
}

// Restore replaces the store content. Budget months that do not parse are skipped.
func (s *Store) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = append([]core.Transaction(nil), snap.Transactions...)
	s.budgets = make(map[core.Month]core.Budgets, len(snap.Budgets))
	for key, b := range snap.Budgets {
		m, err := core.ParseMonth(key)
		if err != nil {
			continue
		}
		cp := make(core.Budgets, len(b))
		for k, v := range b {
			cp[k] = v
		}
		s.budgets[m] = cp
	}
}

func (s *Store) indexOf(id string) int {
	for i := range s.transactions {
		if s.transactions[i].ID == id {
			return i
		}
	}
	return -1
}

func dedupe(in []core.Category) []core.Category {
	seen := map[string]struct{}{}
	out := make([]core.Category, 0, len(in))
	for _, c := range in {
		c.Name = strings.TrimSpace(c.Name)
		if c.Name == "" {
			continue
		}
		key := string(c.Kind) + "/" + strings.ToLower(c.Name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}
