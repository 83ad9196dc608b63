package http

import (
	"net/http"
	"time"

	"finbook/internal/core"
	"finbook/internal/log"
)

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.badRequest(w, r, "invalid request body")
		return
	}

	user, err := s.auth.Register(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	User  core.User     `json:"user"`
	Token core.APIToken `json:"token"`
	Raw   string        `json:"raw_token"`
}

// handleLogin checks credentials and mints a session API token. The raw token
// is returned once and never stored.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.badRequest(w, r, "invalid request body")
		return
	}

	user, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	token, raw, err := s.auth.CreateToken(r.Context(), user.ID, "session", 30*24*time.Hour)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.InfoContext(r.Context(), "user logged in",
		log.FieldUserID, user.ID, log.FieldTokenID, token.ID)
	s.writeJSON(w, r, http.StatusOK, loginResponse{User: user, Token: token, Raw: raw})
}

func (s *Server) handleListTokens(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	tokens, err := s.auth.ListTokens(r.Context(), user.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, tokens)
}

type createTokenRequest struct {
	Name       string `json:"name"`
	TTLSeconds int64  `json:"ttl_seconds,omitempty"`
}

type createTokenResponse struct {
	Token core.APIToken `json:"token"`
	Raw   string        `json:"raw_token"`
}

func (s *Server) handleCreateToken(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())

	var req createTokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.badRequest(w, r, "invalid request body")
		return
	}
	if req.Name == "" {
		s.badRequest(w, r, "token name is required")
		return
	}

	var ttl time.Duration
	if req.TTLSeconds > 0 {
		ttl = time.Duration(req.TTLSeconds) * time.Second
	}

	token, raw, err := s.auth.CreateToken(r.Context(), user.ID, req.Name, ttl)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, createTokenResponse{Token: token, Raw: raw})
}

func (s *Server) handleRevokeToken(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	if err := s.auth.RevokeToken(r.Context(), user.ID, r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusNoContent, nil)
}
