package services

import (
	"context"
	"fmt"
	"time"

	"shiftmarket/internal/domain"
	"shiftmarket/pkg/logger"
	"shiftmarket/pkg/utils"
)

type NotificationService struct {
	notificationRepo domain.NotificationRepository
	publisher        domain.EventPublisher
	log              logger.Logger
}

func NewNotificationService(
	notificationRepo domain.NotificationRepository,
	publisher domain.EventPublisher,
	log logger.Logger,
) *NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
		publisher:        publisher,
		log:              log,
	}
}

// Notify persists a notification and pushes it to the target user's live
// connections. Persistence failure is logged but does not block the push.
func (s *NotificationService) Notify(ctx context.Context, userID, title, body string) {
	notification := &domain.Notification{
		ID:        utils.GenerateID("notif"),
		UserID:    userID,
		Title:     title,
		Body:      body,
		CreatedAt: time.Now(),
	}

	if err := s.notificationRepo.CreateNotification(ctx, notification); err != nil {
		s.log.Error("Failed to persist notification", "user_id", userID, "error", err)
	}

	event, err := domain.NewPushEvent(domain.MessageNotification, userID, map[string]string{
		"notification_id": notification.ID,
		"title":           title,
		"body":            body,
	})
	if err != nil {
		s.log.Error("Failed to build notification event", "user_id", userID, "error", err)
		return
	}
	if err := s.publisher.PublishUpdate(ctx, event); err != nil {
		s.log.Error("Failed to publish notification", "user_id", userID, "error", err)
	}
}

func (s *NotificationService) GetNotifications(ctx context.Context, userID string, limit int) ([]*domain.Notification, error) {
	return s.notificationRepo.GetNotificationsForUser(ctx, userID, limit)
}

func (s *NotificationService) MarkRead(ctx context.Context, notificationID string) error {
	if err := s.notificationRepo.MarkRead(ctx, notificationID); err != nil {
		return fmt.Errorf("mark notification %s read: %w", notificationID, err)
	}
	return nil
}
