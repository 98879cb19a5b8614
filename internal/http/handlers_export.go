package http

import (
	"bytes"
	"net/http"

	"budgetmalin/internal/analytics"
	"budgetmalin/internal/core"
	"budgetmalin/internal/export"
	"budgetmalin/internal/log"
)

// exportTransactions lists transactions for an export. Without any filter
// parameter every transaction is exported.
func (s *Server) exportTransactions(r *http.Request) ([]core.Transaction, error) {
	f, err := ParseFilter(r.URL.Query(), s.now())
	if err != nil {
		return nil, err
	}
	return s.ledger.ListTransactions(r.Context(), f)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	ts, err := s.exportTransactions(r)
	if err != nil {
		writeError(w, r, log.OpExport, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, ts); err != nil {
		writeError(w, r, log.OpExport, err)
		return
	}
	NewResponse().Bytes("text/csv; charset=utf-8", buf.Bytes()).Attachment("transactions.csv").Write(w)
}

func (s *Server) handleExportJSON(w http.ResponseWriter, r *http.Request) {
	ts, err := s.exportTransactions(r)
	if err != nil {
		writeError(w, r, log.OpExport, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteJSON(&buf, ts); err != nil {
		writeError(w, r, log.OpExport, err)
		return
	}
	NewResponse().Bytes("application/json", buf.Bytes()).Attachment("transactions.json").Write(w)
}

// handleExportPDF renders the monthly report. Recommendations look at every
// transaction, the summary only at month.
func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	month, err := ParseMonth(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, log.OpExport, err)
		return
	}
	d, err := s.load(r.Context(), core.TransactionFilter{}, month)
	if err != nil {
		writeError(w, r, log.OpExport, err)
		return
	}
	sum := analytics.Summarize(d.transactions, d.budgets, month)
	recs := analytics.GenerateRecommendations(d.transactions, d.budgets, month)

	var buf bytes.Buffer
	if err := export.MonthlyReport(&buf, sum, recs); err != nil {
		writeError(w, r, log.OpExport, err)
		return
	}
	NewResponse().
		Bytes("application/pdf", buf.Bytes()).
		Attachment("budget-" + month.String() + ".pdf").
		Write(w)
}
