package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"

	"shiftmarket/internal/domain"
)

type RedisShiftStateCache struct {
	client *redis.Client
}

func NewShiftStateCache(client *redis.Client) *RedisShiftStateCache {
	return &RedisShiftStateCache{client: client}
}

func (r *RedisShiftStateCache) SetShiftStatus(ctx context.Context, shiftID string, status domain.ShiftStatus) error {
	key := fmt.Sprintf("shift:%s:status", shiftID)
	return r.client.Set(ctx, key, int(status), 0).Err()
}

func (r *RedisShiftStateCache) GetShiftStatus(ctx context.Context, shiftID string) (domain.ShiftStatus, error) {
	key := fmt.Sprintf("shift:%s:status", shiftID)

	result, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return domain.ShiftDraft, nil
		}
		return domain.ShiftDraft, err
	}

	status, err := strconv.Atoi(result)
	if err != nil {
		return domain.ShiftDraft, err
	}

	return domain.ShiftStatus(status), nil
}
