package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"budgetmalin/internal/core"
	"budgetmalin/internal/log"
)

type budgetsResponse struct {
	Month   core.Month   `json:"month"`
	Budgets core.Budgets `json:"budgets"`
}

type setBudgetsRequest struct {
	Budgets core.Budgets `json:"budgets"`
}

func (s *Server) handleGetBudgets(w http.ResponseWriter, r *http.Request) {
	month, err := ParseMonth(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	b, err := s.ledger.Budgets(r.Context(), month)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	NewResponse().JSON(budgetsResponse{Month: month, Budgets: b}).Write(w)
}

// handleSetBudgets applies a month of limits; zero limits remove their budget.
func (s *Server) handleSetBudgets(w http.ResponseWriter, r *http.Request) {
	month, err := ParseMonth(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	var req setBudgetsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	b, err := s.ledger.SetBudgets(r.Context(), month, req.Budgets)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	NewResponse().JSON(budgetsResponse{Month: month, Budgets: b}).Write(w)
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	month, err := ParseMonth(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	limit, err := core.ParseAmount(p.Get("limit"))
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	b, err := s.ledger.SetBudget(r.Context(), core.Budget{
		Category: sanitizeInput(mux.Vars(r)["category"]),
		Limit:    limit,
		Month:    month,
	})
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	NewResponse().JSON(b).Write(w)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	month, err := ParseMonth(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	if err := s.ledger.DeleteBudget(r.Context(), month, mux.Vars(r)["category"]); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResetBudgets(w http.ResponseWriter, r *http.Request) {
	month, err := ParseMonth(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	if err := s.ledger.ResetBudgets(r.Context(), month); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
