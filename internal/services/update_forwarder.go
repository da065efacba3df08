package services

import (
	"context"

	"shiftmarket/internal/domain"
	"shiftmarket/pkg/logger"
)

// UpdateForwarder bridges the event bus to this instance's live connections:
// every instance subscribes, so a user reaches their push target no matter
// which instance holds their websocket.
type UpdateForwarder struct {
	subscriber domain.EventSubscriber
	notifier   domain.UserNotifier
	log        logger.Logger
}

func NewUpdateForwarder(subscriber domain.EventSubscriber, notifier domain.UserNotifier,
	log logger.Logger) *UpdateForwarder {
	return &UpdateForwarder{
		subscriber: subscriber,
		notifier:   notifier,
		log:        log,
	}
}

// Run blocks until ctx is cancelled.
func (f *UpdateForwarder) Run(ctx context.Context) error {
	return f.subscriber.SubscribeToUpdates(ctx, func(event *domain.PushEvent) error {
		if event.UserID == "" {
			return f.notifier.Broadcast(ctx, event.Update())
		}
		return f.notifier.NotifyUser(ctx, event.UserID, event.Update())
	})
}
