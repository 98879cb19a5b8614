package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"budgetmalin/internal/core"
	ports "budgetmalin/internal/sheets"
)

// header is written to an empty sheet before the first row.
var header = []any{"ID", "Date", "Kind", "Category", "Description", "Payment method", "Amount"}

// Config selects the spreadsheet and the service account used to reach it.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

// Client mirrors transactions into one sheet, one row per transaction,
// with the transaction ID in column A.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string

	// Serializes find-then-write so two upserts cannot claim the same row.
	mu sync.Mutex
}

var _ ports.TransactionMirror = (*Client)(nil)

func New(ctx context.Context, cfg Config) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheet := strings.TrimSpace(cfg.SheetName)
	if sheet == "" {
		sheet = "Transactions"
	}

	creds, err := credentials(cfg)
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets mirror ready", "sheet", sheet)
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheet: sheet}, nil
}

// credentials prefers inline JSON over a file path.
func credentials(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return []byte(cfg.CredentialsJSON), nil
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	}
	return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
}

// UpsertTransaction rewrites the row holding t.ID or appends a new one.
func (c *Client) UpsertTransaction(ctx context.Context, t core.Transaction) (string, error) {
	if t.ID == "" {
		return "", errors.New("mirror transaction: empty id")
	}
	if err := t.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ids, err := c.readIDs(ctx)
	if err != nil {
		return "", err
	}

	n := findRow(ids, t.ID)
	if n == 0 {
		if len(ids) == 0 {
			if err := c.write(ctx, 1, header); err != nil {
				return "", fmt.Errorf("write header: %w", err)
			}
			ids = append(ids, "ID")
		}
		n = len(ids) + 1
	}

	if err := c.write(ctx, n, rowValues(t)); err != nil {
		return "", err
	}
	return rowRange(c.sheet, n), nil
}

// DeleteTransaction clears the row holding id.
func (c *Client) DeleteTransaction(ctx context.Context, id string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ids, err := c.readIDs(ctx)
	if err != nil {
		return err
	}
	n := findRow(ids, id)
	if n == 0 {
		slog.DebugContext(ctx, "Transaction not present in sheet", "id", id)
		return nil
	}

	rng := rowRange(c.sheet, n)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	return nil
}

func (c *Client) readIDs(ctx context.Context) ([]string, error) {
	rng := fmt.Sprintf("%s!A:A", c.sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return firstColumn(resp.Values), nil
}

func (c *Client) write(ctx context.Context, n int, values []any) error {
	rng := rowRange(c.sheet, n)
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

// findRow returns the 1-based row whose first cell is id, or 0.
func findRow(ids []string, id string) int {
	for i, v := range ids {
		if strings.TrimSpace(v) == id {
			return i + 1
		}
	}
	return 0
}

func firstColumn(values [][]any) []string {
	out := make([]string, len(values))
	for i, row := range values {
		if len(row) > 0 {
			out[i] = fmt.Sprint(row[0])
		}
	}
	return out
}

func rowRange(sheet string, n int) string {
	return fmt.Sprintf("%s!A%d:G%d", sheet, n, n)
}

func rowValues(t core.Transaction) []any {
	return []any{
		t.ID,
		t.Date.String(),
		string(t.Kind),
		t.Category,
		t.Description,
		t.PaymentMethod,
		t.Amount.Euros(),
	}
}
