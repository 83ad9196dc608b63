package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"finbook/internal/core"
	"finbook/internal/log"
)

// errorResponse is the JSON body of every non-2xx response.
type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.ErrorContext(r.Context(), "encode response",
			log.FieldPath, r.URL.Path, log.FieldError, err)
	}
}

// writeError maps sentinel errors from the service layer to status codes.
// Cross-user access surfaces as 404, never 403.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, core.ErrInUse), errors.Is(err, core.ErrDuplicatePosting):
		status = http.StatusConflict
	case errors.Is(err, core.ErrInvalidEmail),
		errors.Is(err, core.ErrWeakPassword),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidKind),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrNameTooLong),
		errors.Is(err, core.ErrTaxNotAllowed),
		errors.Is(err, core.ErrTaxExceedsAmount),
		errors.Is(err, core.ErrInvalidISIN),
		errors.Is(err, core.ErrMissingAccount),
		errors.Is(err, core.ErrMissingSecurity),
		errors.Is(err, core.ErrNoteTooLong),
		errors.Is(err, core.ErrInvalidInterval),
		errors.Is(err, core.ErrInvalidRule),
		errors.Is(err, core.ErrBudgetUnscoped),
		errors.Is(err, core.ErrInvalidOwnerKind),
		errors.Is(err, core.ErrInvalidBasis),
		errors.Is(err, core.ErrInvalidBucket),
		errors.Is(err, core.ErrInvalidCompare),
		errors.Is(err, core.ErrInvalidRange):
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed",
			log.FieldMethod, r.Method, log.FieldPath, r.URL.Path, log.FieldError, err)
		s.writeJSON(w, r, status, errorResponse{Error: "internal error"})
		return
	}
	s.writeJSON(w, r, status, errorResponse{Error: err.Error()})
}

// decodeJSON reads a size-capped JSON request body into v. Unknown fields are
// rejected so typos surface instead of silently dropping data.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	return nil
}

func (s *Server) badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	s.writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: msg})
}
