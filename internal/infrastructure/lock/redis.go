package lock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "loan-engine:lock:loan:"

// Deletes the key only if it still holds our token, so an expired lock that
// another instance has since acquired is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker serializes loan mutations across instances with SET NX PX.
type RedisLocker struct {
	client     redis.UniversalClient
	ttl        time.Duration
	retryDelay time.Duration
	logger     *slog.Logger
}

func NewRedisLocker(client redis.UniversalClient, ttl, retryDelay time.Duration, logger *slog.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	if retryDelay <= 0 {
		retryDelay = 50 * time.Millisecond
	}
	return &RedisLocker{
		client:     client,
		ttl:        ttl,
		retryDelay: retryDelay,
		logger:     logger.With("component", "RedisLocker"),
	}
}

func lockKey(loanID int64) string {
	return fmt.Sprintf("%s%d", keyPrefix, loanID)
}

func (l *RedisLocker) Lock(ctx context.Context, loanID int64) (func(), error) {
	key := lockKey(loanID)
	token := uuid.NewString()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}

		acquired, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			l.logger.ErrorContext(ctx, "Failed to acquire Redis lock", "key", key, "error", err)
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if acquired {
			l.logger.DebugContext(ctx, "Lock acquired", "key", key)
			return func() { l.release(key, token) }, nil
		}

		timer.Reset(l.retryDelay)
	}
}

func (l *RedisLocker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	deleted, err := releaseScript.Run(ctx, l.client, []string{key}, token).Int64()
	if err != nil {
		l.logger.Error("Failed to release Redis lock", "key", key, "error", err)
		return
	}
	if deleted == 0 {
		l.logger.Warn("Lock expired before release", "key", key)
	}
}
