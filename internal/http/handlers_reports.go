package http

import (
	"fmt"
	"net/http"
	"time"

	"finbook/internal/log"
)

// handleReport serves the hierarchical aggregation report.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	params, err := reportParams(r)
	if err != nil {
		s.badRequest(w, r, err.Error())
		return
	}

	start := time.Now()
	report, err := s.svc.Reports.Build(r.Context(), user.ID, params)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.DebugContext(r.Context(), "report built",
		log.FieldUserID, user.ID,
		log.FieldBasis, string(report.Params.Basis),
		log.FieldBucket, string(report.Params.Bucket),
		log.FieldDuration, time.Since(start).Milliseconds())
	s.writeJSON(w, r, http.StatusOK, report)
}

func exportFileName(ext string) string {
	return fmt.Sprintf("postings-%s.%s", time.Now().Format("20060102"), ext)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	filter, err := postingFilter(r)
	if err != nil {
		s.badRequest(w, r, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+exportFileName("csv")+`"`)
	if err := s.svc.Export.WriteCSV(r.Context(), user.ID, filter, w); err != nil {
		// Headers are out; all we can do is log.
		s.logger.ErrorContext(r.Context(), "csv export failed",
			log.FieldUserID, user.ID, log.FieldError, err)
	}
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	filter, err := postingFilter(r)
	if err != nil {
		s.badRequest(w, r, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+exportFileName("xlsx")+`"`)
	if err := s.svc.Export.WriteXLSX(r.Context(), user.ID, filter, w); err != nil {
		s.logger.ErrorContext(r.Context(), "xlsx export failed",
			log.FieldUserID, user.ID, log.FieldError, err)
	}
}

// handleExportReportCSV flattens an aggregation report into CSV rows.
func (s *Server) handleExportReportCSV(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	params, err := reportParams(r)
	if err != nil {
		s.badRequest(w, r, err.Error())
		return
	}

	report, err := s.svc.Reports.Build(r.Context(), user.ID, params)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="report.csv"`)
	if err := s.svc.Export.WriteReportCSV(r.Context(), report, w); err != nil {
		s.logger.ErrorContext(r.Context(), "report export failed",
			log.FieldUserID, user.ID, log.FieldError, err)
	}
}
