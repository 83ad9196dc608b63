package services

import (
	"context"

	"finbook/internal/core"
	"finbook/internal/log"
	"finbook/internal/storage"
)

// NotificationService records and serves in-app notifications.
type NotificationService struct {
	repo   *storage.Repository
	logger *log.Logger
}

func NewNotificationService(repo *storage.Repository, logger *log.Logger) *NotificationService {
	return &NotificationService{repo: repo, logger: logger.WithComponent(log.ComponentNotifications)}
}

func (s *NotificationService) Notify(ctx context.Context, userID int64, kind core.NotificationKind, title, message string) error {
	_, err := s.repo.CreateNotification(ctx, core.Notification{
		UserID:  userID,
		Kind:    kind,
		Title:   title,
		Message: message,
	})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "notification created",
		log.FieldUserID, userID, log.FieldKind, kind)
	return nil
}

func (s *NotificationService) List(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]core.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListNotifications(ctx, userID, unreadOnly, limit)
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id int64) error {
	return s.repo.MarkNotificationRead(ctx, userID, id)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	return s.repo.MarkAllNotificationsRead(ctx, userID)
}
