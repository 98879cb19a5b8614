package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"budgetmalin/internal/analytics"
	"budgetmalin/internal/auth"
	"budgetmalin/internal/charts"
	"budgetmalin/internal/core"
	"budgetmalin/internal/log"
)

// ResponseBuilder provides a fluent API for building responses.
type ResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
	raw        []byte
}

// NewResponse creates a builder with a default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{statusCode: http.StatusOK, headers: make(map[string]string)}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets a value to encode as the body.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	b.body = v
	b.headers["Content-Type"] = "application/json"
	return b
}

// Bytes sets a pre-rendered body with its content type.
func (b *ResponseBuilder) Bytes(contentType string, data []byte) *ResponseBuilder {
	b.raw = data
	b.headers["Content-Type"] = contentType
	return b
}

// Attachment asks clients to save the body as filename.
func (b *ResponseBuilder) Attachment(filename string) *ResponseBuilder {
	return b.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
}

func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.WriteHeader(b.statusCode)
	switch {
	case b.raw != nil:
		_, _ = w.Write(b.raw)
	case b.body != nil:
		_ = json.NewEncoder(w).Encode(b.body)
	}
}

// ErrorResponse creates a JSON error body {"error": message}.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewResponse().Status(statusCode).JSON(map[string]string{"error": message})
}

func NotFoundError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func InternalServerError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

var validationErrors = []error{
	analytics.ErrInvalidInput,
	core.ErrInvalidAmount,
	core.ErrInvalidKind,
	core.ErrInvalidDate,
	core.ErrInvalidDay,
	core.ErrInvalidMonth,
	core.ErrInvalidLimit,
	core.ErrEmptyCategory,
	core.ErrDescriptionSize,
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound), errors.Is(err, charts.ErrNoData):
		return http.StatusNotFound
	case errors.Is(err, auth.ErrUnauthorized), errors.Is(err, auth.ErrBadSecret):
		return http.StatusUnauthorized
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return http.StatusUnprocessableEntity
		}
	}
	return http.StatusInternalServerError
}

// writeError logs err and writes its JSON error response. Internal errors
// hide their message from clients.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	logger := log.FromContext(r.Context())
	fields := log.NewFields().WithOperation(op).WithError(err).WithComponent(log.ComponentHTTP)
	if status >= http.StatusInternalServerError {
		logger.Fields(r.Context(), slog.LevelError, "Request failed", fields.WithErrorType(log.ErrorTypeInternal))
		InternalServerError("internal server error").Write(w)
		return
	}
	logger.Fields(r.Context(), slog.LevelInfo, "Request rejected", fields.WithErrorType(errorType(status)))
	ErrorResponse(status, err.Error()).Write(w)
}

func errorType(status int) string {
	switch status {
	case http.StatusNotFound:
		return log.ErrorTypeNotFound
	case http.StatusUnauthorized:
		return log.ErrorTypeAuth
	}
	return log.ErrorTypeValidation
}
