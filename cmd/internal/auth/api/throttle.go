package authapi

import (
	"sync"
	"time"
)

// failureLimiter is a per-username sliding window over login attempts.
// An attempt is reserved before the password check and only a successful
// login clears the key, so concurrent guesses cannot all slip through.
// A zero limit disables it.
type failureLimiter struct {
	mu        sync.Mutex
	events    map[string][]time.Time
	limit     int
	window    time.Duration
	lastSweep time.Time
}

func newFailureLimiter(limit int, window time.Duration) *failureLimiter {
	if limit <= 0 || window <= 0 {
		return &failureLimiter{}
	}
	return &failureLimiter{
		events: make(map[string][]time.Time),
		limit:  limit,
		window: window,
	}
}

// Begin reserves one attempt for key at time now. When key already holds limit
// attempts it returns false and how long until the oldest one leaves the window.
func (l *failureLimiter) Begin(key string, now time.Time) (bool, time.Duration) {
	if l.limit == 0 {
		return true, 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(now)

	kept := l.prune(key, now)
	if len(kept) >= l.limit {
		return false, kept[0].Add(l.window).Sub(now)
	}
	l.events[key] = append(kept, now)
	return true, 0
}

// Reset forgets key after a successful login.
func (l *failureLimiter) Reset(key string) {
	if l.limit == 0 {
		return
	}
	l.mu.Lock()
	delete(l.events, key)
	l.mu.Unlock()
}

// sweep drops every expired key at most once per window, which bounds the map
// by the attempts seen in roughly two windows; callers hold mu.
func (l *failureLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	for key := range l.events {
		l.prune(key, now)
	}
	l.lastSweep = now
}

// prune drops expired events for key; callers hold mu.
func (l *failureLimiter) prune(key string, now time.Time) []time.Time {
	cut := now.Add(-l.window)
	events := l.events[key]
	dst := events[:0]
	for _, t := range events {
		if t.After(cut) {
			dst = append(dst, t)
		}
	}
	if len(dst) == 0 {
		delete(l.events, key)
		return nil
	}
	l.events[key] = dst
	return dst
}
