package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"shiftmarket/internal/domain"
	"shiftmarket/pkg/logger"
)

type RedisEventSubscriber struct {
	client *redis.Client
	log    logger.Logger
}

func NewRedisEventSubscriber(client *redis.Client, log logger.Logger) *RedisEventSubscriber {
	return &RedisEventSubscriber{
		client: client,
		log:    log,
	}
}

// SubscribeToUpdates blocks, forwarding every published push event to handler
// until ctx is cancelled. Undecodable payloads are logged and skipped.
func (r *RedisEventSubscriber) SubscribeToUpdates(ctx context.Context, handler domain.EventHandler) error {
	pubsub := r.client.Subscribe(ctx, updatesChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()

	r.log.Info("Subscribed to marketplace updates")

	for {
		select {
		case msg := <-ch:
			event, err := parseEventData(msg.Payload)
			if err != nil {
				r.log.Error("Failed to parse update event", "payload", msg.Payload, "error", err)
				continue
			}

			if err := handler(event); err != nil {
				r.log.Error("Failed to handle update event", "type", string(event.Type), "error", err)
			}

		case <-ctx.Done():
			r.log.Info("Update subscriber stopped")
			return ctx.Err()
		}
	}
}

func parseEventData(payload string) (*domain.PushEvent, error) {
	var event domain.PushEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return nil, err
	}
	if _, ok := domain.ParseMessageType(string(event.Type)); !ok {
		return nil, fmt.Errorf("unknown update type: %q", event.Type)
	}
	return &event, nil
}
