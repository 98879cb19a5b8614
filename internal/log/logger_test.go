package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("%q: got %v, want %v", in, got, want)
		}
	}
}

func TestLoggerStampsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Component: ComponentLedger, Output: &buf})
	logger.Info("saved", FieldCategory, "Nourriture")

	out := buf.String()
	if !strings.Contains(out, "component=ledger") || !strings.Contains(out, "category=Nourriture") {
		t.Fatalf("unexpected output: %s", out)
	}

	buf.Reset()
	logger.WithComponent(ComponentWorker).Warn("late")
	if !strings.Contains(buf.String(), "component=worker") {
		t.Fatalf("component override lost: %s", buf.String())
	}
}

func TestFieldsBuilder(t *testing.T) {
	f := NewFields().
		WithTransaction("tx1", "expense", "Transport", 1500).
		WithError(errors.New("boom")).
		WithError(nil).
		WithOperation(OpCreate)
	if f[FieldTransactionID] != "tx1" || f[FieldError] != "boom" || f[FieldOperation] != OpCreate {
		t.Fatalf("unexpected fields: %+v", f)
	}
	if len(f.ToSlice()) != len(f)*2 {
		t.Fatalf("slice length mismatch")
	}
}

func TestContextLoggerAndLogHTTPEnd(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Component: ComponentHTTP, Output: &buf}).With(FieldRequestID, "req_1")
	ctx := NewContext(context.Background(), logger)

	LogHTTPEnd(ctx, httptest.NewRequest(http.MethodGet, "/api/budgets", nil), http.StatusNotFound, 3, "127.0.0.1")

	out := buf.String()
	for _, want := range []string{"level=WARN", "request_id=req_1", "status_code=404", "path=/api/budgets"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %s", want, out)
		}
	}
	if FromContext(context.Background()).Component() != ComponentApp {
		t.Fatalf("fallback logger should report the app component")
	}
}
