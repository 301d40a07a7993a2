package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

const lockKeyPrefix = "stock:lock"

// ErrLocked is returned when another process holds the lock for a business
var ErrLocked = errors.New("business is locked by another process")

// BusinessLocker serialises maintenance jobs per business across processes
type BusinessLocker struct {
	client *redis.Client
	locker *redislock.Client
	ttl    time.Duration
}

// NewBusinessLocker connects to Redis. ttl bounds how long a crashed holder
// keeps the lock.
func NewBusinessLocker(ctx context.Context, cfg Config, ttl time.Duration) (*BusinessLocker, error) {
	client, err := newClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewBusinessLockerWithClient(client, ttl), nil
}

// NewBusinessLockerWithClient wraps an existing client
func NewBusinessLockerWithClient(client *redis.Client, ttl time.Duration) *BusinessLocker {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &BusinessLocker{client: client, locker: redislock.New(client), ttl: ttl}
}

func lockKey(job, businessID string) string {
	return fmt.Sprintf("%s:%s:%s", lockKeyPrefix, job, businessID)
}

// WithLock runs fn while holding the job lock for businessID. The lock is
// refreshed every half ttl until fn returns.
func (l *BusinessLocker) WithLock(ctx context.Context, job, businessID string, fn func(ctx context.Context) error) error {
	lock, err := l.locker.Obtain(ctx, lockKey(job, businessID), l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return fmt.Errorf("%w: %s %s", ErrLocked, job, businessID)
	}
	if err != nil {
		return fmt.Errorf("failed to obtain lock: %w", err)
	}
	defer func() {
		_ = lock.Release(context.WithoutCancel(ctx))
	}()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		ticker := time.NewTicker(l.ttl / 2)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				if err := lock.Refresh(runCtx, l.ttl, nil); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	return fn(runCtx)
}

// Close releases the Redis connection
func (l *BusinessLocker) Close() error {
	return l.client.Close()
}
