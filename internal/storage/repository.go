package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"budgetmalin/internal/core"

	_ "modernc.org/sqlite"
)

// Fixed-width so text ordering matches chronological ordering.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Sync states of a transaction towards the spreadsheet mirror.
const (
	SyncPending = "pending"
	SyncDone    = "synced"
	SyncError   = "error"
)

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const transactionColumns = `id, amount_cents, kind, category, description, date, payment_method, created_at, updated_at`

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	ts := r.now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = ts
	}
	t.UpdatedAt = ts

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (`+transactionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Amount.Cents, string(t.Kind), t.Category, t.Description, t.Date.String(),
		t.PaymentMethod, t.CreatedAt.Format(timestampLayout), t.UpdatedAt.Format(timestampLayout))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"kind", t.Kind,
		"category", t.Category,
		"amount_cents", t.Amount.Cents,
		"date", t.Date.String())

	return t, nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	existing, err := r.GetTransaction(ctx, t.ID)
	if err != nil {
		return core.Transaction{}, err
	}
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = r.now().UTC()

	// An edited row must be mirrored again.
	_, err = r.db.ExecContext(ctx,
		`UPDATE transactions
		    SET amount_cents = ?, kind = ?, category = ?, description = ?, date = ?,
		        payment_method = ?, updated_at = ?, sync_status = 'pending', sync_attempts = 0, sync_error = ''
		  WHERE id = ?`,
		t.Amount.Cents, string(t.Kind), t.Category, t.Description, t.Date.String(),
		t.PaymentMethod, t.UpdatedAt.Format(timestampLayout), t.ID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	return t, nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	slog.InfoContext(ctx, "Transaction deleted from SQLite", "id", id)
	return nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// ListTransactions applies the filter in SQL. Results are newest first.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, f core.TransactionFilter) ([]core.Transaction, error) {
	var (
		where []string
		args  []any
	)
	if !f.Start.IsZero() {
		where = append(where, "date >= ?")
		args = append(args, f.Start.String())
	}
	if !f.End.IsZero() {
		where = append(where, "date <= ?")
		args = append(args, f.End.String())
	}
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(f.Kind))
	}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}

	q := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY date DESC, created_at DESC"
	if f.Limit > 0 || f.Offset > 0 {
		limit := f.Limit
		if limit <= 0 {
			limit = -1
		}
		q += " LIMIT ? OFFSET ?"
		args = append(args, limit, f.Offset)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context, month core.Month) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, limit_cents FROM budgets WHERE month = ? ORDER BY category`, month.String())
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	out := make([]core.Budget, 0)
	for rows.Next() {
		b := core.Budget{Month: month}
		if err := rows.Scan(&b.Category, &b.Limit.Cents); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpsertBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (category, month, limit_cents, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (category, month) DO UPDATE SET limit_cents = excluded.limit_cents, updated_at = excluded.updated_at`,
		b.Category, b.Month.String(), b.Limit.Cents, r.now().UTC().Format(timestampLayout))
	if err != nil {
		return core.Budget{}, fmt.Errorf("upsert budget: %w", err)
	}
	slog.InfoContext(ctx, "Budget saved to SQLite",
		"category", b.Category,
		"month", b.Month.String(),
		"limit_cents", b.Limit.Cents)
	return b, nil
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, month core.Month, category string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM budgets WHERE month = ? AND category = ?`, month.String(), category)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("budget %s/%s: %w", month, category, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) ResetBudgets(ctx context.Context, month core.Month) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM budgets WHERE month = ?`, month.String()); err != nil {
		return fmt.Errorf("reset budgets: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, kind core.Kind) ([]core.Category, error) {
	q := `SELECT name, kind, icon, color FROM categories`
	var args []any
	if kind != "" {
		q += ` WHERE kind = ?`
		args = append(args, string(kind))
	}
	q += ` ORDER BY kind DESC, rowid`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := make([]core.Category, 0)
	for rows.Next() {
		var (
			c    core.Category
			kind string
		)
		if err := rows.Scan(&c.Name, &kind, &c.Icon, &c.Color); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Kind = core.Kind(kind)
		out = append(out, c)
	}
	return out, rows.Err()
}

// PendingSync returns up to limit transactions not yet mirrored, oldest first.
func (r *SQLiteRepository) PendingSync(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		  WHERE sync_status = 'pending' ORDER BY created_at LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync transactions: %w", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// MarkSynced marks a transaction as mirrored.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_status = 'synced', sync_error = '' WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	slog.InfoContext(ctx, "Transaction marked as synced", "id", id)
	return nil
}

// MarkSyncFailure records a failed attempt. Once attempts reach maxAttempts
// the row leaves the pending set and is flagged as an error.
func (r *SQLiteRepository) MarkSyncFailure(ctx context.Context, id string, cause error, maxAttempts int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions
		    SET sync_attempts = sync_attempts + 1,
		        sync_error = ?,
		        sync_status = CASE WHEN sync_attempts + 1 >= ? THEN 'error' ELSE 'pending' END
		  WHERE id = ?`, cause.Error(), maxAttempts, id)
	if err != nil {
		return fmt.Errorf("mark transaction sync failure: %w", err)
	}
	slog.WarnContext(ctx, "Transaction sync attempt failed", "id", id, "error", cause)
	return nil
}

// RetryFailedSyncs moves every errored row back to pending.
func (r *SQLiteRepository) RetryFailedSyncs(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_status = 'pending', sync_attempts = 0 WHERE sync_status = 'error'`)
	if err != nil {
		return 0, fmt.Errorf("retry failed syncs: %w", err)
	}
	return res.RowsAffected()
}

// SyncStats counts transactions per sync state.
func (r *SQLiteRepository) SyncStats(ctx context.Context) (map[string]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT sync_status, COUNT(*) FROM transactions GROUP BY sync_status`)
	if err != nil {
		return nil, fmt.Errorf("sync stats: %w", err)
	}
	defer rows.Close()

	out := map[string]int64{SyncPending: 0, SyncDone: 0, SyncError: 0}
	for rows.Next() {
		var (
			status string
			n      int64
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan sync stats: %w", err)
		}
		out[status] = n
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s rowScanner) (core.Transaction, error) {
	var (
		t                    core.Transaction
		kind, date           string
		createdAt, updatedAt string
	)
	if err := s.Scan(&t.ID, &t.Amount.Cents, &kind, &t.Category, &t.Description, &date,
		&t.PaymentMethod, &createdAt, &updatedAt); err != nil {
		return core.Transaction{}, err
	}
	t.Kind = core.Kind(kind)
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Date = d
	if t.CreatedAt, err = time.Parse(timestampLayout, createdAt); err != nil {
		return core.Transaction{}, fmt.Errorf("parse created_at: %w", err)
	}
	if t.UpdatedAt, err = time.Parse(timestampLayout, updatedAt); err != nil {
		return core.Transaction{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return t, nil
}
