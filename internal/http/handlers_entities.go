package http

import (
	"net/http"

	"finbook/internal/core"
)

// Accounts

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	accounts, err := s.svc.Entities.ListAccounts(r.Context(), user.ID, queryBool(r, "active"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, accounts)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	var a core.Account
	if err := decodeJSON(w, r, &a); err != nil {
		s.badRequest(w, r, "invalid request body")
		return
	}
	a.UserID = user.ID
	created, err := s.svc.Entities.CreateAccount(r.Context(), a)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, created)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		s.badRequest(w, r, err.Error())
		return
	}
	account, err := s.svc.Entities.GetAccount(r.Context(), user.ID, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, account)
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		s.badRequest(w, r, err.Error())
		return
	}
	var a core.Account
	if err := decodeJSON(w, r, &a); err != nil {
		s.badRequest(w, r, "invalid request body")
		return
	}
	a.ID, a.UserID = id, user.ID
	updated, err := s.svc.Entities.UpdateAccount(r.Context(), a)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, updated)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		s.badRequest(w, r, err.Error())
		return
	}
	if err := s.svc.Entities.DeleteAccount(r.Context(), user.ID, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusNoContent, nil)
}

// Contacts

func (s *Server) handleListContacts(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	contacts, err := s.svc.Entities.ListContacts(r.Context(), user.ID, queryBool(r, "active"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, contacts)
}

func (s *Server) handleCreateContact(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	var c core.Contact
	if err := decodeJSON(w, r, &c); err != nil {
		s.badRequest(w, r, "invalid request body")
		return
	}
	c.UserID = user.ID
	created, err := s.svc.Entities.CreateContact(r.Context(), c)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, created)
}

func (s *Server) handleGetContact(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		s.badRequest(w, r, err.Error())
		return
	}
	contact, err := s.svc.Entities.GetContact(r.Context(), user.ID, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, contact)
}

func (s *Server) handleUpdateContact(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		s.badRequest(w, r, err.Error())
		return
	}
	var c core.Contact
	if err := decodeJSON(w, r, &c); err != nil {
		s.badRequest(w, r, "invalid request body")
		return
	}
	c.ID, c.UserID = id, user.ID
	updated, err := s.svc.Entities.UpdateContact(r.Context(), c)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, updated)
}

func (s *Server) handleDeleteContact(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		s.badRequest(w, r, err.Error())
		return
	}
	if err := s.svc.Entities.DeleteContact(r.Context(), user.ID, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusNoContent, nil)
}

// Securities

func (s *Server) handleListSecurities(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	securities, err := s.svc.Entities.ListSecurities(r.Context(), user.ID, queryBool(r, "active"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, securities)
}

func (s *Server) handleCreateSecurity(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	var sec core.Security
	if err := decodeJSON(w, r, &sec); err != nil {
		s.badRequest(w, r, "invalid request body")
		return
	}
	sec.UserID = user.ID
	created, err := s.svc.Entities.CreateSecurity(r.Context(), sec)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, created)
}

func (s *Server) handleGetSecurity(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		s.badRequest(w, r, err.Error())
		return
	}
	security, err := s.svc.Entities.GetSecurity(r.Context(), user.ID, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, security)
}

func (s *Server) handleUpdateSecurity(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		s.badRequest(w, r, err.Error())
		return
	}
	var sec core.Security
	if err := decodeJSON(w, r, &sec); err != nil {
		s.badRequest(w, r, "invalid request body")
		return
	}
	sec.ID, sec.UserID = id, user.ID
	updated, err := s.svc.Entities.UpdateSecurity(r.Context(), sec)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, updated)
}

func (s *Server) handleDeleteSecurity(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		s.badRequest(w, r, err.Error())
		return
	}
	if err := s.svc.Entities.DeleteSecurity(r.Context(), user.ID, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusNoContent, nil)
}

// Categories

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	categories, err := s.svc.Entities.ListCategories(r.Context(), user.ID, queryBool(r, "active"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, categories)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	var c core.Category
	if err := decodeJSON(w, r, &c); err != nil {
		s.badRequest(w, r, "invalid request body")
		return
	}
	c.UserID = user.ID
	created, err := s.svc.Entities.CreateCategory(r.Context(), c)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, created)
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		s.badRequest(w, r, err.Error())
		return
	}
	category, err := s.svc.Entities.GetCategory(r.Context(), user.ID, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, category)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		s.badRequest(w, r, err.Error())
		return
	}
	var c core.Category
	if err := decodeJSON(w, r, &c); err != nil {
		s.badRequest(w, r, "invalid request body")
		return
	}
	c.ID, c.UserID = id, user.ID
	updated, err := s.svc.Entities.UpdateCategory(r.Context(), c)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, updated)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		s.badRequest(w, r, err.Error())
		return
	}
	if err := s.svc.Entities.DeleteCategory(r.Context(), user.ID, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusNoContent, nil)
}
