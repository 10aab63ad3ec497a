package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	redisclient "github.com/hackgods/appointment-booking/internal/redis"
)

// Locker is an in-process stand-in for the Redis staff lock.
type Locker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]chan struct{}
	wait  time.Duration
}

func NewLocker(wait time.Duration) *Locker {
	return &Locker{
		locks: make(map[uuid.UUID]chan struct{}),
		wait:  wait,
	}
}

func (l *Locker) sem(staffID uuid.UUID) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch, ok := l.locks[staffID]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[staffID] = ch
	}
	return ch
}

func (l *Locker) WithStaffLock(ctx context.Context, staffID uuid.UUID, fn func(ctx context.Context) error) error {
	ch := l.sem(staffID)

	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
	case <-timer.C:
		return redisclient.ErrLockNotAcquired
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-ch }()

	return fn(ctx)
}

var _ redisclient.Locker = (*Locker)(nil)
