package redisclient

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("staff lock not acquired")
	// ErrLockUnavailable means the lock backend could not be reached; fn was not run.
	ErrLockUnavailable = errors.New("staff lock backend unavailable")
)

// Locker serializes bookings per staff member across api-server instances.
type Locker interface {
	WithStaffLock(ctx context.Context, staffID uuid.UUID, fn func(ctx context.Context) error) error
}

type redisStaffLocker struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
	poll   time.Duration
}

// NewRedisStaffLocker creates a locker that uses a per staff Redis key.
// Acquisition is retried until wait elapses.
func NewRedisStaffLocker(client *redis.Client, ttl, wait time.Duration) Locker {
	return &redisStaffLocker{
		client: client,
		ttl:    ttl,
		wait:   wait,
		poll:   25 * time.Millisecond,
	}
}

func staffLockKey(staffID uuid.UUID) string {
	return fmt.Sprintf("lock:staff:%s", staffID.String())
}

func (l *redisStaffLocker) WithStaffLock(ctx context.Context, staffID uuid.UUID, fn func(ctx context.Context) error) error {
	key := staffLockKey(staffID)
	token := uuid.NewString()

	if err := l.acquire(ctx, key, token); err != nil {
		return err
	}

	defer func() {
		// release even when the caller's context is already done
		if err := l.release(context.WithoutCancel(ctx), key, token); err != nil {
			log.Printf("release %s: %v", key, err)
		}
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

func (l *redisStaffLocker) acquire(ctx context.Context, key, token string) error {
	deadline := time.Now().Add(l.wait)
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrLockUnavailable, err)
		}
		if ok {
			return nil
		}
		if time.Now().Add(l.poll).After(deadline) {
			return ErrLockNotAcquired
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.poll):
		}
	}
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisStaffLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release staff lock: %w", err)
	}
	return nil
}
