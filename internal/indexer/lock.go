package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/francpeal/buscador/internal/domain"
)

const lockKeyPrefix = "buscador:rebuild:"

// releaseScript deletes the lock only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a Locker backed by SET NX PX. The TTL bounds how long a
// crashed rebuild can keep the lock.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLocker creates a locker whose locks expire after ttl.
func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl}
}

// Acquire takes the rebuild lock for index.
func (l *RedisLocker) Acquire(ctx context.Context, index string) (func(context.Context) error, error) {
	key := lockKeyPrefix + index
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lock %s: %w", key, err)
	}
	if !ok {
		return nil, domain.ErrRebuildInProgress
	}

	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			return fmt.Errorf("redis unlock %s: %w", key, err)
		}
		return nil
	}, nil
}
