package http

import (
	"net/http"

	"finbook/internal/core"
)

func (s *Server) handleListPostings(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	filter, err := postingFilter(r)
	if err != nil {
		s.badRequest(w, r, err.Error())
		return
	}
	postings, err := s.svc.Postings.List(r.Context(), user.ID, filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, postings)
}

func (s *Server) handleCreatePosting(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	var p core.Posting
	if err := decodeJSON(w, r, &p); err != nil {
		s.badRequest(w, r, "invalid request body")
		return
	}
	p.UserID = user.ID
	created, err := s.svc.Postings.Create(r.Context(), p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, created)
}

func (s *Server) handleGetPosting(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		s.badRequest(w, r, err.Error())
		return
	}
	posting, err := s.svc.Postings.Get(r.Context(), user.ID, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, posting)
}

func (s *Server) handleUpdatePosting(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		s.badRequest(w, r, err.Error())
		return
	}
	var p core.Posting
	if err := decodeJSON(w, r, &p); err != nil {
		s.badRequest(w, r, "invalid request body")
		return
	}
	p.ID, p.UserID = id, user.ID
	updated, err := s.svc.Postings.Update(r.Context(), p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, updated)
}

func (s *Server) handleDeletePosting(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		s.badRequest(w, r, err.Error())
		return
	}
	attachmentIDs, err := s.svc.Postings.Delete(r.Context(), user.ID, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	// Attachment rows are gone with the posting; payloads follow best-effort.
	s.svc.Attachments.RemovePayloads(r.Context(), attachmentIDs)
	s.writeJSON(w, r, http.StatusNoContent, nil)
}

func (s *Server) handleListPostingAttachments(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		s.badRequest(w, r, err.Error())
		return
	}
	attachments, err := s.svc.Attachments.List(r.Context(), user.ID, core.OwnerPosting, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, attachments)
}
