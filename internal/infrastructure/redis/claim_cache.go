package redis

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

type RedisClaimCache struct {
	client *redis.Client
}

func NewClaimCache(client *redis.Client) *RedisClaimCache {
	return &RedisClaimCache{client: client}
}

func claimKey(shiftID string) string {
	return fmt.Sprintf("shift:%s:claim", shiftID)
}

// AtomicClaim records applicationID as the accepted application for the shift
// if no other application won first. Concurrent accepts race through a single
// Lua script so exactly one wins.
func (r *RedisClaimCache) AtomicClaim(ctx context.Context, shiftID, applicationID string) (bool, error) {
	luaScript := `
        if redis.call("EXISTS", KEYS[1]) == 0 then
            redis.call("SET", KEYS[1], ARGV[1])
            return 1
        end
        if redis.call("GET", KEYS[1]) == ARGV[1] then
            return 1
        end
        return 0
    `

	result, err := r.client.Eval(ctx, luaScript, []string{claimKey(shiftID)}, applicationID).Result()
	if err != nil {
		return false, err
	}

	claimed, ok := result.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected claim script result: %v", result)
	}
	return claimed == 1, nil
}

func (r *RedisClaimCache) GetClaim(ctx context.Context, shiftID string) (string, error) {
	result, err := r.client.Get(ctx, claimKey(shiftID)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", err
	}
	return result, nil
}

func (r *RedisClaimCache) ReleaseClaim(ctx context.Context, shiftID string) error {
	return r.client.Del(ctx, claimKey(shiftID)).Err()
}
