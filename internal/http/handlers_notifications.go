package http

import (
	"net/http"
)

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	notifications, err := s.svc.Notifications.List(r.Context(), user.ID,
		queryBool(r, "unread"), queryInt(r, "limit"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, notifications)
}

func (s *Server) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		s.badRequest(w, r, err.Error())
		return
	}
	if err := s.svc.Notifications.MarkRead(r.Context(), user.ID, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusNoContent, nil)
}

type readAllResponse struct {
	Marked int64 `json:"marked"`
}

func (s *Server) handleMarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	marked, err := s.svc.Notifications.MarkAllRead(r.Context(), user.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, readAllResponse{Marked: marked})
}
