package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"budgetmalin/internal/auth"
	"budgetmalin/internal/log"
	"budgetmalin/internal/middleware/ratelimit"
	"budgetmalin/internal/middleware/security"
	"budgetmalin/internal/middleware/trace"
	"budgetmalin/internal/services"
)

// Options configures NewServer. Ledger is required; everything else has a default.
type Options struct {
	Addr   string
	Ledger *services.LedgerService
	// Tokens enables bearer authentication on /api when non-nil.
	Tokens *auth.Tokens
	// Ready backs /readyz. Nil reports ready.
	Ready              func(ctx context.Context) error
	RateLimitPerMinute int
	Logger             *log.Logger
	Now                func() time.Time
}

type Server struct {
	http.Server
	ledger   *services.LedgerService
	tokens   *auth.Tokens
	ready    func(ctx context.Context) error
	logger   *log.Logger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	now      func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	ready := opts.Ready
	if ready == nil {
		ready = func(context.Context) error { return nil }
	}

	s := &Server{
		ledger:   opts.Ledger,
		tokens:   opts.Tokens,
		ready:    ready,
		logger:   logger,
		detector: security.NewDetector(),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
			Methods:           ratelimit.WriteMethods,
		}),
		now: now,
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.middleware(s.routes()),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// middleware wraps the router so 404 and 405 responses are traced too.
func (s *Server) middleware(h http.Handler) http.Handler {
	h = s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit)(h)
	h = s.detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	return s.tracer.Middleware(h)
}

func (s *Server) onRateLimit(r *http.Request, clientIP string) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, clientIP,
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("route not found").Write(w)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Write(w)
	})

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/api/auth/token", s.handleIssueToken).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(auth.Middleware(s.tokens))

	api.HandleFunc("/transactions", s.handleListTransactions).Methods(http.MethodGet)
	api.HandleFunc("/transactions", s.handleCreateTransaction).Methods(http.MethodPost)
	api.HandleFunc("/transactions/{id}", s.handleGetTransaction).Methods(http.MethodGet)
	api.HandleFunc("/transactions/{id}", s.handleUpdateTransaction).Methods(http.MethodPut)
	api.HandleFunc("/transactions/{id}", s.handleDeleteTransaction).Methods(http.MethodDelete)

	api.HandleFunc("/budgets", s.handleGetBudgets).Methods(http.MethodGet)
	api.HandleFunc("/budgets", s.handleSetBudgets).Methods(http.MethodPut)
	api.HandleFunc("/budgets/reset", s.handleResetBudgets).Methods(http.MethodPost)
	api.HandleFunc("/budgets/{category}", s.handleSetBudget).Methods(http.MethodPut)
	api.HandleFunc("/budgets/{category}", s.handleDeleteBudget).Methods(http.MethodDelete)

	api.HandleFunc("/categories", s.handleCategories).Methods(http.MethodGet)

	api.HandleFunc("/analytics/summary", s.handleSummary).Methods(http.MethodGet)
	api.HandleFunc("/analytics/trend", s.handleTrend).Methods(http.MethodGet)
	api.HandleFunc("/analytics/recommendations", s.handleRecommendations).Methods(http.MethodGet)
	api.HandleFunc("/analytics/alerts", s.handleAlerts).Methods(http.MethodGet)
	api.HandleFunc("/analytics/insights", s.handleInsights).Methods(http.MethodGet)

	api.HandleFunc("/charts/categories.png", s.handleCategoryChart).Methods(http.MethodGet)
	api.HandleFunc("/charts/trend.png", s.handleTrendChart).Methods(http.MethodGet)

	api.HandleFunc("/export/transactions.csv", s.handleExportCSV).Methods(http.MethodGet)
	api.HandleFunc("/export/transactions.json", s.handleExportJSON).Methods(http.MethodGet)
	api.HandleFunc("/export/report.pdf", s.handleExportPDF).Methods(http.MethodGet)

	api.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.ready(ctx); err != nil {
		s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
		ErrorResponse(http.StatusServiceUnavailable, "backend not ready").Write(w)
		return
	}
	NewResponse().JSON(map[string]string{"status": "ready"}).Write(w)
}

type tokenRequest struct {
	Secret string `json:"secret"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Server) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	if s.tokens == nil {
		NotFoundError("authentication is not enabled").Write(w)
		return
	}
	var req tokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	token, exp, err := s.tokens.Exchange(req.Secret)
	if err != nil {
		log.FromContext(r.Context()).WithComponent(log.ComponentSecurity).WarnContext(r.Context(), "Token exchange rejected",
			log.FieldClientIP, s.detector.ExtractClientIP(r))
		writeError(w, r, log.OpCreate, err)
		return
	}
	NewResponse().JSON(tokenResponse{Token: token, TokenType: "Bearer", ExpiresAt: exp.UTC()}).Write(w)
}

// Shutdown stops the rate limiter and drains the HTTP server. Safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// handleMetrics reports request, rate limit and detection counters.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]any{
		"trace":      s.tracer.GetMetrics(),
		"rate_limit": s.limiter.GetMetrics(),
		"security":   s.detector.GetMetrics(),
	}).Write(w)
}
