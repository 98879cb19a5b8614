package http

import (
	"bytes"
	"context"
	"net/http"

	"golang.org/x/sync/errgroup"

	"budgetmalin/internal/analytics"
	"budgetmalin/internal/charts"
	"budgetmalin/internal/core"
	"budgetmalin/internal/log"
)

// monthData is what most analytics views need: a transaction list and the
// budgets of one month.
type monthData struct {
	transactions []core.Transaction
	budgets      core.Budgets
}

// load fetches the transactions matching f and the budgets of month concurrently.
func (s *Server) load(ctx context.Context, f core.TransactionFilter, month core.Month) (monthData, error) {
	var d monthData
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ts, err := s.ledger.ListTransactions(ctx, f)
		d.transactions = ts
		return err
	})
	g.Go(func() error {
		b, err := s.ledger.Budgets(ctx, month)
		d.budgets = b
		return err
	})
	if err := g.Wait(); err != nil {
		return monthData{}, err
	}
	if err := analytics.Validate(d.transactions); err != nil {
		return monthData{}, err
	}
	return d, nil
}

func periodFilter(p analytics.Period) core.TransactionFilter {
	return core.TransactionFilter{Start: p.Start, End: p.End}
}

func monthFilter(m core.Month) core.TransactionFilter {
	return core.TransactionFilter{Start: m.First(), End: m.Last()}
}

type summaryResponse struct {
	Period            analytics.Period           `json:"period"`
	Totals            analytics.Totals           `json:"totals"`
	SavingsRate       float64                    `json:"savings_rate"`
	ExpenseByCategory map[string]core.Money      `json:"expense_by_category"`
	TopCategories     []analytics.CategoryAmount `json:"top_categories"`
	Month             analytics.Summary          `json:"month"`
}

// handleSummary reports totals over period and the budget view of month.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	period, err := ParsePeriod(r.URL.Query(), now, analytics.CurrentMonth)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	month, err := ParseMonth(r.URL.Query(), now)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}

	var periodTxs []core.Transaction
	var monthly monthData
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		ts, err := s.ledger.ListTransactions(ctx, periodFilter(period))
		if err == nil {
			err = analytics.Validate(ts)
		}
		periodTxs = ts
		return err
	})
	g.Go(func() error {
		d, err := s.load(ctx, monthFilter(month), month)
		monthly = d
		return err
	})
	if err := g.Wait(); err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}

	totals := analytics.ComputeTotals(periodTxs)
	spent := analytics.ExpenseByCategory(periodTxs)
	NewResponse().JSON(summaryResponse{
		Period:            period,
		Totals:            totals,
		SavingsRate:       analytics.SavingsRate(totals),
		ExpenseByCategory: spent,
		TopCategories:     analytics.TopCategories(spent, 5),
		Month:             analytics.Summarize(monthly.transactions, monthly.budgets, month),
	}).Write(w)
}

type trendResponse struct {
	Period    analytics.Period       `json:"period"`
	Trend     analytics.MonthlyTrend `json:"trend"`
	Direction analytics.Direction    `json:"direction"`
}

func (s *Server) trend(r *http.Request) (trendResponse, error) {
	period, err := ParsePeriod(r.URL.Query(), s.now(), analytics.Last12Months)
	if err != nil {
		return trendResponse{}, err
	}
	ts, err := s.ledger.ListTransactions(r.Context(), periodFilter(period))
	if err != nil {
		return trendResponse{}, err
	}
	if err := analytics.Validate(ts); err != nil {
		return trendResponse{}, err
	}
	mt := analytics.ComputeMonthlyTrend(ts)
	return trendResponse{Period: period, Trend: mt, Direction: analytics.DetermineTrend(mt)}, nil
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	resp, err := s.trend(r)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	NewResponse().JSON(resp).Write(w)
}

// handleRecommendations evaluates all transactions, with budgets taken from month.
func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	month, err := ParseMonth(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	d, err := s.load(r.Context(), core.TransactionFilter{}, month)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	NewResponse().JSON(analytics.GenerateRecommendations(d.transactions, d.budgets, month)).Write(w)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	month, err := ParseMonth(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	d, err := s.load(r.Context(), monthFilter(month), month)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	alerts := analytics.BudgetAlerts(analytics.BudgetStatus(analytics.ExpenseByCategory(d.transactions), d.budgets))
	if alerts == nil {
		alerts = []analytics.CategoryStatus{}
	}
	NewResponse().JSON(map[string]any{"month": month, "alerts": alerts}).Write(w)
}

// handleInsights evaluates period against the current month's budgets.
func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	period, err := ParsePeriod(r.URL.Query(), now, analytics.DefaultPeriod)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	d, err := s.load(r.Context(), periodFilter(period), core.MonthOf(now))
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	NewResponse().JSON(analytics.Insights(d.transactions, d.budgets)).Write(w)
}

func (s *Server) handleCategoryChart(w http.ResponseWriter, r *http.Request) {
	period, err := ParsePeriod(r.URL.Query(), s.now(), analytics.CurrentMonth)
	if err != nil {
		writeError(w, r, log.OpRender, err)
		return
	}
	ts, err := s.ledger.ListTransactions(r.Context(), periodFilter(period))
	if err != nil {
		writeError(w, r, log.OpRender, err)
		return
	}
	var buf bytes.Buffer
	if err := charts.CategoryPie(&buf, analytics.ExpenseByCategory(ts)); err != nil {
		writeError(w, r, log.OpRender, err)
		return
	}
	NewResponse().Bytes("image/png", buf.Bytes()).Write(w)
}

func (s *Server) handleTrendChart(w http.ResponseWriter, r *http.Request) {
	resp, err := s.trend(r)
	if err != nil {
		writeError(w, r, log.OpRender, err)
		return
	}
	var buf bytes.Buffer
	if err := charts.MonthlyTrend(&buf, resp.Trend); err != nil {
		writeError(w, r, log.OpRender, err)
		return
	}
	NewResponse().Bytes("image/png", buf.Bytes()).Write(w)
}
