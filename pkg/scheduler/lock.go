package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

const lockKeyPrefix = "ia-dental:scheduler:"

// Locker claims a fire time for one instance.
type Locker interface {
	// TryLock reports whether this instance now holds key until ttl expires.
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// lockKey names the lock of one job at one minute-resolution fire time.
func lockKey(jobID string, fireTime time.Time) string {
	return lockKeyPrefix + jobID + ":" + fireTime.Truncate(time.Minute).Format("200601021504")
}

type redisLocker struct {
	client *redis.Client
	owner  string
}

// NewRedisLocker claims fire times with SET NX. The lock is never released
// early; it expires with its TTL so late replicas see it as taken.
func NewRedisLocker(client *redis.Client) Locker {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return &redisLocker{client: client, owner: fmt.Sprintf("%s:%d", host, os.Getpid())}
}

func (l *redisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, key, l.owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire job lock: %w", err)
	}
	return ok, nil
}
