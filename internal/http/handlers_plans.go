package http

import (
	"net/http"
	"time"

	"finbook/internal/core"
)

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	plans, err := s.svc.Plans.List(r.Context(), user.ID, queryBool(r, "active"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, plans)
}

func (s *Server) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	var p core.SavingsPlan
	if err := decodeJSON(w, r, &p); err != nil {
		s.badRequest(w, r, "invalid request body")
		return
	}
	p.UserID = user.ID
	created, err := s.svc.Plans.Create(r.Context(), p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, created)
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		s.badRequest(w, r, err.Error())
		return
	}
	plan, err := s.svc.Plans.Get(r.Context(), user.ID, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, plan)
}

func (s *Server) handleUpdatePlan(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		s.badRequest(w, r, err.Error())
		return
	}
	var p core.SavingsPlan
	if err := decodeJSON(w, r, &p); err != nil {
		s.badRequest(w, r, "invalid request body")
		return
	}
	p.ID, p.UserID = id, user.ID
	updated, err := s.svc.Plans.Update(r.Context(), p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, updated)
}

func (s *Server) handleDeletePlan(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		s.badRequest(w, r, err.Error())
		return
	}
	if err := s.svc.Plans.Delete(r.Context(), user.ID, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusNoContent, nil)
}

// handleExecutePlan books the plan's transfer immediately, outside the
// regular schedule.
func (s *Server) handleExecutePlan(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		s.badRequest(w, r, err.Error())
		return
	}
	plan, err := s.svc.Plans.Execute(r.Context(), user.ID, id, core.DateOf(time.Now()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, plan)
}
