package http

import (
	"io"
	"net/http"

	"finbook/internal/core"
	"finbook/internal/services"
)

// handleImportTask accepts a CSV upload and queues it for the worker. The
// response is the pending task row; progress is polled via GET /tasks/{id}.
func (s *Server) handleImportTask(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxImportBytes+1<<20)
	if err := r.ParseMultipartForm(4 << 20); err != nil {
		s.badRequest(w, r, "invalid multipart form")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		s.badRequest(w, r, "missing file part")
		return
	}
	defer file.Close()

	csvData, err := io.ReadAll(io.LimitReader(file, s.opts.MaxImportBytes+1))
	if err != nil {
		s.badRequest(w, r, "read upload")
		return
	}
	if int64(len(csvData)) > s.opts.MaxImportBytes {
		s.writeJSON(w, r, http.StatusRequestEntityTooLarge,
			errorResponse{Error: "import file too large"})
		return
	}

	task, err := s.svc.Tasks.Enqueue(r.Context(), user.ID, core.TaskImportPostings,
		services.ImportPayload{CSV: string(csvData)})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusAccepted, task)
}

func (s *Server) handleBackupTask(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	task, err := s.svc.Tasks.Enqueue(r.Context(), user.ID, core.TaskBackup, nil)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusAccepted, task)
}

func (s *Server) handleRebuildTask(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	task, err := s.svc.Tasks.Enqueue(r.Context(), user.ID, core.TaskRebuildAggregates, nil)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusAccepted, task)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	tasks, err := s.svc.Tasks.List(r.Context(), user.ID, queryInt(r, "limit"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, tasks)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	task, err := s.svc.Tasks.Get(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, task)
}
