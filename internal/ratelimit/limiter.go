// Package ratelimit implements a process-local sliding-window attempt
// counter keyed by arbitrary strings such as "auth:<email>" or
// "register:<ip>". State is not persisted; a restart forgives all limits.
package ratelimit

import (
	"sync"
	"time"

	"github.com/studydesk/studydesk-server/internal/logger"
)

const (
	defaultSweepInterval = 10 * time.Minute
	defaultMaxEntryAge   = time.Hour
)

// Result reports the outcome of a single rate limit check.
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

type entry struct {
	count        int
	firstAttempt time.Time
	lastAttempt  time.Time
}

// Limiter counts attempts per key within a trailing window. A background
// sweep removes entries untouched for longer than the max entry age so
// abandoned keys do not accumulate.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry

	logger        *logger.Logger
	now           func() time.Time
	sweepInterval time.Duration
	maxEntryAge   time.Duration

	done     chan struct{}
	stopOnce sync.Once
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source. Used by tests to drive windows
// deterministically.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// WithSweepInterval overrides how often stale entries are collected.
func WithSweepInterval(d time.Duration) Option {
	return func(l *Limiter) {
		l.sweepInterval = d
	}
}

// WithMaxEntryAge overrides the staleness cutoff for the sweep.
func WithMaxEntryAge(d time.Duration) Option {
	return func(l *Limiter) {
		l.maxEntryAge = d
	}
}

// New creates a Limiter and starts its background sweep. Call Stop to halt
// the sweep when tearing the service down.
func New(logger *logger.Logger, opts ...Option) *Limiter {
	l := &Limiter{
		entries:       make(map[string]*entry),
		logger:        logger,
		now:           time.Now,
		sweepInterval: defaultSweepInterval,
		maxEntryAge:   defaultMaxEntryAge,
		done:          make(chan struct{}),
	}

	for _, opt := range opts {
		opt(l)
	}

	go l.sweepLoop()

	return l
}

// Check records an attempt for key and reports whether it is allowed under
// the given policy. The first attempt for an unseen key, or any attempt
// after the window has elapsed, starts a fresh window with count 1. Within
// an active window the count increments; once it exceeds maxAttempts the
// check is rejected with the time left until the window resets.
func (l *Limiter) Check(key string, maxAttempts int, window time.Duration) Result {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok || now.Sub(e.firstAttempt) > window {
		l.entries[key] = &entry{count: 1, firstAttempt: now, lastAttempt: now}
		return Result{Allowed: true, Remaining: maxAttempts - 1}
	}

	e.count++
	e.lastAttempt = now

	if e.count <= maxAttempts {
		return Result{Allowed: true, Remaining: maxAttempts - e.count}
	}

	retryAfter := window - now.Sub(e.firstAttempt)
	if retryAfter < 0 {
		retryAfter = 0
	}

	return Result{Allowed: false, Remaining: 0, RetryAfter: retryAfter}
}

// Reset clears the entry for key. Called after a qualifying success so
// prior failures are forgiven.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.entries, key)
}

// Count returns the current attempt count for key, or 0 when the key is
// unknown. Read-only: it does not record an attempt.
func (l *Limiter) Count(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok {
		return 0
	}
	return e.count
}

// Stop halts the background sweep. Safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() {
		close(l.done)
	})
}

func (l *Limiter) sweepLoop() {
	ticker := time.NewTicker(l.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed := l.sweep()
			if removed > 0 {
				l.logger.Debug("rate limiter sweep removed stale entries", "removed", removed)
			}
		case <-l.done:
			return
		}
	}
}

// sweep removes entries whose last attempt is older than the max entry
// age, regardless of window state.
func (l *Limiter) sweep() int {
	cutoff := l.now().Add(-l.maxEntryAge)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, e := range l.entries {
		if e.lastAttempt.Before(cutoff) {
			delete(l.entries, key)
			removed++
		}
	}
	return removed
}
