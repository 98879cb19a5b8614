package http

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"budgetmalin/internal/core"
	"budgetmalin/internal/log"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	ts, err := s.ledger.ListTransactions(r.Context(), f)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	if ts == nil {
		ts = []core.Transaction{}
	}
	NewResponse().JSON(ts).Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := s.ledger.GetTransaction(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	NewResponse().JSON(t).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := NewRequestBodyParser(w, r).Transaction()
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	res, err := s.ledger.CreateTransaction(r.Context(), t)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	NewResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/transactions/"+res.Transaction.ID).
		JSON(res).
		Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(mux.Vars(r)["id"])
	t, err := NewRequestBodyParser(w, r).Transaction()
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	t.ID = id
	res, err := s.ledger.UpdateTransaction(r.Context(), t)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	NewResponse().JSON(res).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteTransaction(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	var kind core.Kind
	if v := strings.TrimSpace(r.URL.Query().Get("kind")); v != "" {
		k, err := core.ParseKind(v)
		if err != nil {
			writeError(w, r, log.OpList, err)
			return
		}
		kind = k
	}
	cats, err := s.ledger.Categories(r.Context(), kind)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	if cats == nil {
		cats = []core.Category{}
	}
	NewResponse().JSON(cats).Write(w)
}
