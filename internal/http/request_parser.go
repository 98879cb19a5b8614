// Package http exposes the ledger and analytics engine as a JSON REST API.
//
// This file implements utilities for parsing and validating request data:
// query filters, month and period selection, and transaction bodies sent
// either as JSON or form-encoded.
package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"budgetmalin/internal/analytics"
	"budgetmalin/internal/core"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 64 << 10

// maxPageSize caps the limit query parameter.
const maxPageSize = 1000

// errBadRequest marks malformed input: unparsable bodies and query values.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// ParseMonth reads the month query parameter (YYYY-MM), defaulting to the
// month of now.
func ParseMonth(query url.Values, now time.Time) (core.Month, error) {
	v := strings.TrimSpace(query.Get("month"))
	if v == "" {
		return core.MonthOf(now), nil
	}
	return core.ParseMonth(v)
}

// ParsePeriod resolves the period query parameter against now. An absent
// parameter yields fallback.
func ParsePeriod(query url.Values, now time.Time, fallback analytics.PeriodName) (analytics.Period, error) {
	raw := strings.TrimSpace(query.Get("period"))
	name := fallback
	if raw != "" {
		parsed, err := analytics.ParsePeriodName(raw)
		if err != nil {
			return analytics.Period{}, err
		}
		name = parsed
	}
	return analytics.ResolvePeriod(name, now)
}

// ParseFilter builds a transaction filter from start, end, period, kind,
// category, offset and limit. Explicit start/end take precedence over period.
func ParseFilter(query url.Values, now time.Time) (core.TransactionFilter, error) {
	var f core.TransactionFilter

	if v := strings.TrimSpace(query.Get("period")); v != "" {
		p, err := ParsePeriod(query, now, analytics.DefaultPeriod)
		if err != nil {
			return f, err
		}
		f.Start, f.End = p.Start, p.End
	}
	if v := strings.TrimSpace(query.Get("start")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return f, err
		}
		f.Start = d
	}
	if v := strings.TrimSpace(query.Get("end")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return f, err
		}
		f.End = d
	}
	if !f.Start.IsZero() && !f.End.IsZero() && f.End.Before(f.Start.Time) {
		return f, badRequest("end %s is before start %s", f.End, f.Start)
	}

	if v := strings.TrimSpace(query.Get("kind")); v != "" {
		k, err := core.ParseKind(v)
		if err != nil {
			return f, err
		}
		f.Kind = k
	}
	f.Category = sanitizeInput(query.Get("category"))

	var err error
	if f.Offset, err = parseNonNegative(query, "offset"); err != nil {
		return f, err
	}
	if f.Limit, err = parseNonNegative(query, "limit"); err != nil {
		return f, err
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	return f, nil
}

func parseNonNegative(query url.Values, key string) (int, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, badRequest("%s must be a non-negative integer", key)
	}
	return n, nil
}

// RequestBodyParser reads a body once and serves fields from JSON or
// form-encoded content.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	parsed   bool
	err      error
}

func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if p.err != nil {
		p.err = badRequest("read body: %v", p.err)
	}
	return p
}

// Parse tries JSON when the body looks like an object, form data otherwise.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true
	if p.err != nil {
		return p.err
	}

	trimmed := strings.TrimSpace(string(p.body))
	if trimmed == "" {
		p.formData = url.Values{}
		return nil
	}
	if trimmed[0] == '{' {
		// UseNumber keeps amounts exact instead of round-tripping through float64.
		dec := json.NewDecoder(bytes.NewReader(p.body))
		dec.UseNumber()
		p.jsonData = make(map[string]any)
		if err := dec.Decode(&p.jsonData); err != nil {
			p.err = badRequest("invalid JSON: %v", err)
		}
		return p.err
	}
	if trimmed[0] == '[' {
		p.err = badRequest("expected an object")
		return p.err
	}

	p.formData, p.err = url.ParseQuery(trimmed)
	if p.err != nil {
		p.err = badRequest("invalid form body: %v", p.err)
	}
	return p.err
}

// Get returns a sanitized value, or "" when key is absent.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// Has reports whether key was present in the body.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		_, ok := p.jsonData[key]
		return ok
	}
	return p.formData != nil && p.formData.Has(key)
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// Transaction decodes the transaction fields of the body. Kind accepts the
// legacy revenu/depense spelling; amount accepts a dot or comma separator.
func (p *RequestBodyParser) Transaction() (core.Transaction, error) {
	if err := p.Parse(); err != nil {
		return core.Transaction{}, err
	}
	amount, err := core.ParseAmount(p.Get("amount"))
	if err != nil {
		return core.Transaction{}, err
	}
	kind, err := core.ParseKind(p.Get("kind"))
	if err != nil {
		return core.Transaction{}, err
	}
	date, err := core.ParseDate(p.Get("date"))
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		Amount:        amount,
		Kind:          kind,
		Category:      p.Get("category"),
		Description:   p.Get("description"),
		Date:          date,
		PaymentMethod: p.Get("payment_method"),
	}, nil
}

// decodeJSON strictly decodes a JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid JSON: %v", err)
	}
	return nil
}

// sanitizeInput drops control characters except tab and newlines, then trims.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s))
}
