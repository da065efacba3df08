package redis

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"

	"shiftmarket/internal/domain"
)

const updatesChannel = "marketplace_updates"

type EventPublisherImpl struct {
	client *redis.Client
}

func NewEventPublisher(client *redis.Client) *EventPublisherImpl {
	return &EventPublisherImpl{client: client}
}

func (r *EventPublisherImpl) PublishUpdate(ctx context.Context, event *domain.PushEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, updatesChannel, payload).Err()
}
