package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type window struct {
	count     int
	expiresAt time.Time
}

// MemoryLimiter keeps counters in process. It suits a single instance or tests.
type MemoryLimiter struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	windows map[string]window
	calls   int
}

func NewMemoryLimiter(clock clockwork.Clock) *MemoryLimiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryLimiter{clock: clock, windows: make(map[string]window)}
}

func (l *MemoryLimiter) CheckAndIncrement(_ context.Context, key string, limit int, ttl time.Duration) (bool, error) {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls++
	if l.calls%256 == 0 {
		l.sweep(now)
	}

	w, ok := l.windows[key]
	if !ok || !now.Before(w.expiresAt) {
		w = window{expiresAt: now.Add(ttl)}
	}
	if w.count >= limit {
		return false, nil
	}
	w.count++
	l.windows[key] = w
	return true, nil
}

func (l *MemoryLimiter) sweep(now time.Time) {
	for k, w := range l.windows {
		if !now.Before(w.expiresAt) {
			delete(l.windows, k)
		}
	}
}
