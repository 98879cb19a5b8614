// Package backend builds the store selected by DATA_BACKEND.
package backend

import (
	"context"
	"fmt"

	"budgetmalin/internal/apiclient"
	"budgetmalin/internal/cache"
	"budgetmalin/internal/config"
	"budgetmalin/internal/log"
	"budgetmalin/internal/services"
	"budgetmalin/internal/storage"
	"budgetmalin/internal/store"
	"budgetmalin/internal/store/local"
	"budgetmalin/internal/store/memory"
)

// CleanupFunc releases backend resources.
type CleanupFunc func() error

// Result is a ready store plus the optional capabilities of its backend.
type Result struct {
	Store store.Store
	// Kind is the backend actually in use, which differs from the
	// configured one after a fallback.
	Kind string
	// SyncQueue is set for the SQLite backend, which keeps a mirror outbox.
	SyncQueue services.SyncQueue
	// Caches holds caches the caller should clean periodically.
	Caches  []cache.Cleaner
	Ready   func(ctx context.Context) error
	Cleanup CleanupFunc
}

// RequireShared fails unless the store can be opened by more than one
// process. Memory stores are private and the local blob is rewritten whole
// on every write, so a second process would read stale data and clobber the
// owner's changes.
func (r *Result) RequireShared() error {
	switch r.Kind {
	case config.BackendSQLite, config.BackendRemote:
		return nil
	}
	return fmt.Errorf("backend %q cannot be shared between processes: use %s or %s",
		r.Kind, config.BackendSQLite, config.BackendRemote)
}

type Factory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) *Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Factory{logger: logger.WithComponent(log.ComponentBackend)}
}

// Create opens the configured backend. A remote backend without a token
// falls back to the local blob store.
func (f *Factory) Create(ctx context.Context, cfg *config.Config) (*Result, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app config is nil")
	}

	switch cfg.DataBackend {
	case config.BackendMemory:
		f.logger.InfoContext(ctx, "Initialized memory backend", log.FieldBackend, config.BackendMemory)
		return &Result{Store: memory.New(), Kind: config.BackendMemory, Ready: alwaysReady}, nil
	case config.BackendLocal:
		return f.createLocal(ctx, cfg.LocalStorePath)
	case config.BackendSQLite:
		return f.createSQLite(ctx, cfg.SQLiteDBPath)
	case config.BackendRemote:
		if cfg.RemoteAPIToken == "" {
			f.logger.WarnContext(ctx, "No remote API token configured, falling back to local store",
				log.FieldBackend, config.BackendLocal,
				"path", cfg.LocalStorePath)
			return f.createLocal(ctx, cfg.LocalStorePath)
		}
		return f.createRemote(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.DataBackend)
	}
}

func (f *Factory) createLocal(ctx context.Context, path string) (*Result, error) {
	s, err := local.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized local backend", log.FieldBackend, config.BackendLocal, "path", s.Path())
	return &Result{Store: s, Kind: config.BackendLocal, Ready: alwaysReady}, nil
}

func (f *Factory) createSQLite(ctx context.Context, path string) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized SQLite backend", log.FieldBackend, config.BackendSQLite, "db_path", path)
	return &Result{
		Store:     repo,
		Kind:      config.BackendSQLite,
		SyncQueue: repo,
		Ready:     repo.Ping,
		Cleanup:   repo.Close,
	}, nil
}

func (f *Factory) createRemote(ctx context.Context, cfg *config.Config) (*Result, error) {
	c, err := apiclient.New(apiclient.Config{
		BaseURL:     cfg.RemoteAPIURL,
		Token:       cfg.RemoteAPIToken,
		Timeout:     cfg.RemoteTimeout,
		CategoryTTL: cfg.CategoryCacheTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize remote client: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized remote backend", log.FieldBackend, config.BackendRemote, "url", cfg.RemoteAPIURL)
	return &Result{
		Store:  c,
		Kind:   config.BackendRemote,
		Caches: []cache.Cleaner{c.CategoryCache()},
		Ready: func(ctx context.Context) error {
			_, err := c.ListCategories(ctx, "")
			return err
		},
	}, nil
}

func alwaysReady(context.Context) error { return nil }
