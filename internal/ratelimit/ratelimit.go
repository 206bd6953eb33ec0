// Package ratelimit implements a fixed-window in-memory request limiter
// keyed by owner id. State is per process; a multi-instance deployment
// would need a shared store instead.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count    int
	windowAt time.Time
}

// Limiter allows up to limit requests per owner per window.
type Limiter struct {
	limit  int
	window time.Duration

	mu    sync.Mutex
	usage map[int64]*window
}

// New creates a limiter. limit <= 0 means unlimited.
func New(limit int, windowSize time.Duration) *Limiter {
	if windowSize <= 0 {
		windowSize = time.Hour
	}
	return &Limiter{
		limit:  limit,
		window: windowSize,
		usage:  make(map[int64]*window),
	}
}

// Allow records one request for the owner and reports whether it fits in
// the current window, with the remaining budget and time until reset.
func (l *Limiter) Allow(ownerID int64) (bool, int, time.Duration) {
	if l.limit <= 0 {
		return true, -1, 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w, ok := l.usage[ownerID]
	if !ok || now.Sub(w.windowAt) >= l.window {
		w = &window{windowAt: now}
		l.usage[ownerID] = w
	}

	resetIn := l.window - now.Sub(w.windowAt)
	if w.count >= l.limit {
		return false, 0, resetIn
	}
	w.count++
	return true, l.limit - w.count, resetIn
}

// Cleanup drops windows that have fully expired.
func (l *Limiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for ownerID, w := range l.usage {
		if now.Sub(w.windowAt) >= l.window {
			delete(l.usage, ownerID)
		}
	}
}

// StartCleanup runs Cleanup periodically until the context ends.
func (l *Limiter) StartCleanup(ctx context.Context) {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Cleanup()
		}
	}
}
