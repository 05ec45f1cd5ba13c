package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/coopay/backend/internal/domain/settlement"
)

const defaultLockPrefix = "settlement:lock:"

// releaseScript deletes the key only if it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisReferenceLock implements settlement.ReferenceLock with SET NX PX.
// It is shared across instances, so concurrent redirects and webhooks for
// one reference on different pods serialize on the same key.
type RedisReferenceLock struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisReferenceLock creates a lock over an existing Redis client
func NewRedisReferenceLock(client redis.UniversalClient, keyPrefix string) *RedisReferenceLock {
	if keyPrefix == "" {
		keyPrefix = defaultLockPrefix
	}
	return &RedisReferenceLock{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// TryLock acquires the key for ttl. ok is false when another holder has it.
func (l *RedisReferenceLock) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	fullKey := l.keyPrefix + key
	token := uuid.NewString()

	acquired, err := l.client.SetNX(ctx, fullKey, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lock %q: %w", key, err)
	}
	if !acquired {
		return nil, false, nil
	}

	unlock := func() {
		// the caller's context may already be done
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(rctx, l.client, []string{fullKey}, token).Err()
	}
	return unlock, true, nil
}

// Ping checks the Redis connection
func (l *RedisReferenceLock) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// Close closes the Redis client
func (l *RedisReferenceLock) Close() error {
	return l.client.Close()
}

var _ settlement.ReferenceLock = (*RedisReferenceLock)(nil)
