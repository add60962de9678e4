package service

import (
	"sync"
	"time"
)

// runLock serializes sync runs. The expiry guards against a crashed run
// wedging the lock for good.
type runLock struct {
	mu       sync.Mutex
	ttl      time.Duration
	lockedAt time.Time
}

func newRunLock(ttl time.Duration) *runLock {
	return &runLock{ttl: ttl}
}

func (l *runLock) Acquire() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.lockedAt.IsZero() && time.Since(l.lockedAt) < l.ttl {
		return ErrAlreadyRunning
	}
	l.lockedAt = time.Now()
	return nil
}

func (l *runLock) Release() {
	l.mu.Lock()
	l.lockedAt = time.Time{}
	l.mu.Unlock()
}
