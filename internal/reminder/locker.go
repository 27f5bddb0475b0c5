package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker serializes sweep runs across processes. TryLock returns a token
// that must be presented to Unlock so a run can only release its own lock.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, string, error)
	Unlock(ctx context.Context, key, token string) error
}

type redisLocker struct {
	client *redis.Client
}

// NewRedisLocker builds a Locker on a Redis SETNX lease.
func NewRedisLocker(client *redis.Client) Locker {
	return &redisLocker{client: client}
}

func (l *redisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, string, error) {
	token := uuid.New().String()
	acquired, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return false, "", err
	}
	if !acquired {
		return false, "", nil
	}
	return true, token, nil
}

func (l *redisLocker) Unlock(ctx context.Context, key, token string) error {
	stored, err := l.client.Get(ctx, key).Result()
	if err == redis.Nil {
		// Lease already expired; nothing to release.
		return nil
	}
	if err != nil {
		return err
	}
	if stored != token {
		return fmt.Errorf("lock %s not owned by this holder", key)
	}
	return l.client.Del(ctx, key).Err()
}

// noopLocker always grants the lock. Used when Redis is not configured and
// the deployment runs a single instance.
type noopLocker struct{}

// NewNoopLocker returns a Locker that never contends.
func NewNoopLocker() Locker {
	return noopLocker{}
}

func (noopLocker) TryLock(context.Context, string, time.Duration) (bool, string, error) {
	return true, "", nil
}

func (noopLocker) Unlock(context.Context, string, string) error {
	return nil
}
