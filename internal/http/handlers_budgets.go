package http

import (
	"net/http"

	"finbook/internal/core"
)

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	budgets, err := s.svc.Budgets.List(r.Context(), user.ID, queryBool(r, "active"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, budgets)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	var b core.Budget
	if err := decodeJSON(w, r, &b); err != nil {
		s.badRequest(w, r, "invalid request body")
		return
	}
	b.UserID = user.ID
	created, err := s.svc.Budgets.Create(r.Context(), b)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, created)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		s.badRequest(w, r, err.Error())
		return
	}
	budget, err := s.svc.Budgets.Get(r.Context(), user.ID, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, budget)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		s.badRequest(w, r, err.Error())
		return
	}
	var b core.Budget
	if err := decodeJSON(w, r, &b); err != nil {
		s.badRequest(w, r, "invalid request body")
		return
	}
	b.ID, b.UserID = id, user.ID
	updated, err := s.svc.Budgets.Update(r.Context(), b)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, updated)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		s.badRequest(w, r, err.Error())
		return
	}
	if err := s.svc.Budgets.Delete(r.Context(), user.ID, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusNoContent, nil)
}

// handleBudgetStatus reports expected vs. actual spending for a window.
func (s *Server) handleBudgetStatus(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		s.badRequest(w, r, err.Error())
		return
	}
	from, err := queryDate(r, "from")
	if err != nil {
		s.badRequest(w, r, err.Error())
		return
	}
	to, err := queryDate(r, "to")
	if err != nil {
		s.badRequest(w, r, err.Error())
		return
	}
	if from.IsZero() || to.IsZero() {
		s.badRequest(w, r, "from and to are required")
		return
	}

	status, err := s.svc.Budgets.Status(r.Context(), user.ID, id, from, to)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, status)
}
