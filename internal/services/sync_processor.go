package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"budgetmalin/internal/core"
	"budgetmalin/internal/log"
	"budgetmalin/internal/sheets"
)

// SyncQueue is the outbox side of the SQLite repository: transactions that
// still have to reach the spreadsheet mirror.
type SyncQueue interface {
	PendingSync(ctx context.Context, limit int) ([]core.Transaction, error)
	MarkSynced(ctx context.Context, id string) error
	MarkSyncFailure(ctx context.Context, id string, cause error, maxAttempts int) error
	RetryFailedSyncs(ctx context.Context) (int64, error)
}

// SyncProcessorConfig holds configuration for the sync processor
type SyncProcessorConfig struct {
	// PollInterval is how often to check for pending rows (default: 30s)
	PollInterval time.Duration

	// BatchSize is the max number of rows to mirror per poll cycle (default: 10)
	BatchSize int

	// MaxRetries is the number of attempts before a row is flagged as failed (default: 3)
	MaxRetries int

	// RetryInterval is how often failed rows are put back in the queue (default: 1h)
	RetryInterval time.Duration
}

func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{
		PollInterval:  30 * time.Second,
		BatchSize:     10,
		MaxRetries:    3,
		RetryInterval: time.Hour,
	}
}

// SyncProcessor drains the SQLite outbox into the spreadsheet mirror. It
// backs up the AMQP path: a transaction whose message was lost is still
// mirrored on the next poll.
type SyncProcessor struct {
	queue  SyncQueue
	mirror sheets.TransactionMirror
	config SyncProcessorConfig
	logger *log.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSyncProcessor(queue SyncQueue, mirror sheets.TransactionMirror, config SyncProcessorConfig) *SyncProcessor {
	return &SyncProcessor{
		queue:  queue,
		mirror: mirror,
		config: config,
		logger: log.New(log.DefaultConfig()).WithComponent(log.ComponentWorker),
	}
}

func (p *SyncProcessor) WithLogger(logger *log.Logger) *SyncProcessor {
	p.logger = logger.WithComponent(log.ComponentWorker)
	return p
}

// Start begins the processing loop. Returns an error if already running.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("sync processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	p.logger.InfoContext(ctx, "Sync processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)

	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		p.logger.InfoContext(ctx, "Sync processor stopped")
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Sync processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	return nil
}

func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *SyncProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	pollTicker := time.NewTicker(p.config.PollInterval)
	defer pollTicker.Stop()

	retryTicker := time.NewTicker(p.config.RetryInterval)
	defer retryTicker.Stop()

	p.ProcessBatch(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-pollTicker.C:
			p.ProcessBatch(ctx)
		case <-retryTicker.C:
			p.requeueFailed(ctx)
		}
	}
}

// ProcessBatch mirrors one batch of pending transactions and returns how
// many were synced. A failed row is recorded and retried on later polls;
// after MaxRetries it waits for the next requeue.
func (p *SyncProcessor) ProcessBatch(ctx context.Context) int {
	pending, err := p.queue.PendingSync(ctx, p.config.BatchSize)
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to read pending transactions", log.FieldError, err)
		return 0
	}
	if len(pending) > 0 {
		p.logger.DebugContext(ctx, "Processing sync batch", "count", len(pending))
	}

	synced := 0
	for _, t := range pending {
		if p.stopping(ctx) {
			break
		}
		if p.syncOne(ctx, t) {
			synced++
		}
	}
	return synced
}

func (p *SyncProcessor) syncOne(ctx context.Context, t core.Transaction) bool {
	ref, err := p.mirror.UpsertTransaction(ctx, t)
	if err != nil {
		p.logger.WarnContext(ctx, "Mirror write failed", log.FieldTransactionID, t.ID, log.FieldError, err)
		if err := p.queue.MarkSyncFailure(ctx, t.ID, err, p.config.MaxRetries); err != nil {
			p.logger.ErrorContext(ctx, "Failed to record sync failure", log.FieldTransactionID, t.ID, log.FieldError, err)
		}
		return false
	}
	// A row mirrored but not marked is upserted again on the next poll.
	if err := p.queue.MarkSynced(ctx, t.ID); err != nil {
		p.logger.WarnContext(ctx, "Failed to mark transaction as synced", log.FieldTransactionID, t.ID, log.FieldError, err)
		return false
	}
	p.logger.InfoContext(ctx, "Transaction mirrored", log.FieldTransactionID, t.ID, log.FieldSheetsRef, ref)
	return true
}

func (p *SyncProcessor) stopping(ctx context.Context) bool {
	select {
	case <-p.stopCh:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

func (p *SyncProcessor) requeueFailed(ctx context.Context) {
	n, err := p.queue.RetryFailedSyncs(ctx)
	switch {
	case err != nil:
		p.logger.ErrorContext(ctx, "Failed to requeue failed syncs", log.FieldError, err)
	case n > 0:
		p.logger.InfoContext(ctx, "Requeued failed syncs", "count", n)
	}
}
