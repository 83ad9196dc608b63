package http

import (
	"io"
	"net/http"
	"strconv"

	"finbook/internal/core"
	"finbook/internal/log"
)

// handleUploadAttachment accepts a multipart form with owner_kind, owner_id
// and a "file" part. The service enforces ownership and the size cap.
func (s *Server) handleUploadAttachment(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())

	// Form overhead on top of the payload cap.
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxAttachmentBytes+1<<20)
	if err := r.ParseMultipartForm(4 << 20); err != nil {
		s.badRequest(w, r, "invalid multipart form")
		return
	}

	owner, err := core.ParseAttachmentOwner(r.FormValue("owner_kind"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ownerID, err := strconv.ParseInt(r.FormValue("owner_id"), 10, 64)
	if err != nil || ownerID < 1 {
		s.badRequest(w, r, "invalid owner_id")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.badRequest(w, r, "missing file part")
		return
	}
	defer file.Close()

	attachment, err := s.svc.Attachments.Save(r.Context(), user.ID, owner, ownerID, header.Filename, file)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, attachment)
}

func (s *Server) handleGetAttachment(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	attachment, payload, err := s.svc.Attachments.Open(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	payload.Close()
	s.writeJSON(w, r, http.StatusOK, attachment)
}

// handleAttachmentContent streams the stored payload.
func (s *Server) handleAttachmentContent(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	attachment, payload, err := s.svc.Attachments.Open(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer payload.Close()

	w.Header().Set("Content-Type", attachment.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(attachment.SizeBytes, 10))
	w.Header().Set("Content-Disposition", `attachment; filename="`+attachment.FileName+`"`)
	if _, err := io.Copy(w, payload); err != nil {
		s.logger.ErrorContext(r.Context(), "stream attachment",
			log.FieldUserID, user.ID, log.FieldError, err)
	}
}

func (s *Server) handleDeleteAttachment(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	if err := s.svc.Attachments.Delete(r.Context(), user.ID, r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusNoContent, nil)
}
