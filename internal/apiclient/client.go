// Package apiclient implements store.Store over the budgetmalin REST API of a
// remote instance, authenticated with a bearer token.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"budgetmalin/internal/cache"
	"budgetmalin/internal/core"
)

// ErrUnauthorized is returned when the remote rejects the token.
var ErrUnauthorized = errors.New("remote api: unauthorized")

// APIError carries a non-2xx response. Unwrap maps 404 to core.ErrNotFound
// and 401 to ErrUnauthorized.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("remote api: %d %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return core.ErrNotFound
	case http.StatusUnauthorized:
		return ErrUnauthorized
	}
	return nil
}

type Config struct {
	BaseURL     string
	Token       string
	Timeout     time.Duration
	CategoryTTL time.Duration
	HTTPClient  *http.Client
}

type Client struct {
	base       *url.URL
	token      string
	http       *http.Client
	categories *cache.LRUCache[[]core.Category]
}

func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse remote url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("remote url %q: scheme must be http or https", cfg.BaseURL)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	ttl := cfg.CategoryTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Client{
		base:       base,
		token:      cfg.Token,
		http:       hc,
		categories: cache.NewLRUCache[[]core.Category](4, ttl),
	}, nil
}

// CategoryCache exposes the category cache for periodic cleanup.
func (c *Client) CategoryCache() cache.Cleaner { return c.categories }

type writeResult struct {
	Transaction core.Transaction `json:"transaction"`
}

type budgetsResponse struct {
	Month   core.Month   `json:"month"`
	Budgets core.Budgets `json:"budgets"`
}

type limitRequest struct {
	Limit core.Money `json:"limit"`
}

func (c *Client) ListTransactions(ctx context.Context, f core.TransactionFilter) ([]core.Transaction, error) {
	q := url.Values{}
	if !f.Start.IsZero() {
		q.Set("start", f.Start.String())
	}
	if !f.End.IsZero() {
		q.Set("end", f.End.String())
	}
	if f.Kind != "" {
		q.Set("kind", string(f.Kind))
	}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.Offset > 0 {
		q.Set("offset", strconv.Itoa(f.Offset))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	var out []core.Transaction
	if err := c.do(ctx, http.MethodGet, "/api/transactions", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	var out core.Transaction
	err := c.do(ctx, http.MethodGet, "/api/transactions/"+url.PathEscape(id), nil, nil, &out)
	return out, err
}

func (c *Client) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	var out writeResult
	if err := c.do(ctx, http.MethodPost, "/api/transactions", nil, t, &out); err != nil {
		return core.Transaction{}, err
	}
	return out.Transaction, nil
}

func (c *Client) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	var out writeResult
	if err := c.do(ctx, http.MethodPut, "/api/transactions/"+url.PathEscape(t.ID), nil, t, &out); err != nil {
		return core.Transaction{}, err
	}
	return out.Transaction, nil
}

func (c *Client) DeleteTransaction(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/transactions/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) ListBudgets(ctx context.Context, month core.Month) ([]core.Budget, error) {
	var resp budgetsResponse
	if err := c.do(ctx, http.MethodGet, "/api/budgets", monthQuery(month), nil, &resp); err != nil {
		return nil, err
	}
	out := make([]core.Budget, 0, len(resp.Budgets))
	for cat, limit := range resp.Budgets {
		out = append(out, core.Budget{Category: cat, Limit: limit, Month: month})
	}
	return out, nil
}

func (c *Client) UpsertBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	var out core.Budget
	path := "/api/budgets/" + url.PathEscape(b.Category)
	if err := c.do(ctx, http.MethodPut, path, monthQuery(b.Month), limitRequest{Limit: b.Limit}, &out); err != nil {
		return core.Budget{}, err
	}
	return out, nil
}

func (c *Client) DeleteBudget(ctx context.Context, month core.Month, category string) error {
	return c.do(ctx, http.MethodDelete, "/api/budgets/"+url.PathEscape(category), monthQuery(month), nil, nil)
}

func (c *Client) ResetBudgets(ctx context.Context, month core.Month) error {
	return c.do(ctx, http.MethodPost, "/api/budgets/reset", monthQuery(month), nil, nil)
}

// ListCategories is served from cache until the entry expires.
func (c *Client) ListCategories(ctx context.Context, kind core.Kind) ([]core.Category, error) {
	return c.categories.GetOrLoad("kind:"+string(kind), func() ([]core.Category, error) {
		q := url.Values{}
		if kind != "" {
			q.Set("kind", string(kind))
		}
		var out []core.Category
		if err := c.do(ctx, http.MethodGet, "/api/categories", q, nil, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
}

func monthQuery(m core.Month) url.Values {
	return url.Values{"month": {m.String()}}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	u := *c.base
	u.Path = c.base.Path + path
	u.RawQuery = query.Encode()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		return decodeError(res)
	}
	if out == nil || res.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeError(res *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(res.Body, 64<<10))
	var body struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		msg = body.Error
	}
	if msg == "" {
		msg = http.StatusText(res.StatusCode)
	}
	return &APIError{Status: res.StatusCode, Message: msg}
}
