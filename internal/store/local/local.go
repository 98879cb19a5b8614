// Package local persists transactions and budgets in a single JSON blob file.
// It is the fallback store used when no remote backend is reachable or
// no credentials are configured.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"budgetmalin/internal/core"
	"budgetmalin/internal/store/memory"
)

// Store wraps an in-memory store and rewrites the blob after every write.
type Store struct {
	*memory.Store
	path string
	mu   sync.Mutex
}

// Open loads the blob at path. A missing or unreadable blob starts empty.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	s := &Store{Store: memory.New(), path: path}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read local store: %w", err)
	}

	var snap memory.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		slog.Warn("Local store is corrupt, starting empty", "path", path, "error", err)
		return s, nil
	}
	s.Restore(snap)
	return s, nil
}

// Path returns the blob location.
func (s *Store) Path() string { return s.path }

func (s *Store) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	out, err := s.Store.CreateTransaction(ctx, t)
	if err != nil {
		return out, err
	}
	return out, s.flush()
}

func (s *Store) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	out, err := s.Store.UpdateTransaction(ctx, t)
	if err != nil {
		return out, err
	}
	return out, s.flush()
}

func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	if err := s.Store.DeleteTransaction(ctx, id); err != nil {
		return err
	}
	return s.flush()
}

func (s *Store) UpsertBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	out, err := s.Store.UpsertBudget(ctx, b)
	if err != nil {
		return out, err
	}
	return out, s.flush()
}

func (s *Store) DeleteBudget(ctx context.Context, month core.Month, category string) error {
	if err := s.Store.DeleteBudget(ctx, month, category); err != nil {
		return err
	}
	return s.flush()
}

func (s *Store) ResetBudgets(ctx context.Context, month core.Month) error {
	if err := s.Store.ResetBudgets(ctx, month); err != nil {
		return err
	}
	return s.flush()
}

// flush writes the blob to a temp file and renames it over the previous one.
func (s *Store) flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.MarshalIndent(s.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode local store: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write local store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace local store: %w", err)
	}
	return nil
}
