// Package authlog keeps a bounded, append-only in-memory log of
// authentication events and derives suspicious-activity signals from it.
package authlog

import (
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/studydesk/studydesk-server/internal/logger"
	"github.com/studydesk/studydesk-server/internal/model"
)

const (
	defaultCapacity      = 10000
	defaultSweepInterval = time.Hour
	defaultMaxEventAge   = 24 * time.Hour

	suspicionWindow        = time.Hour
	suspicionFailedLogins  = 10
	suspicionDistinctIPs   = 3
	suspicionResetRequests = 5
)

// Handler forwards recorded events to an external sink, e.g. a central
// logging service. Implementations must not block.
type Handler func(model.AuthEvent)

// Log is a capacity-bounded FIFO buffer of auth events. Entries are
// insertion-ordered and therefore time-ordered, which lets Cleanup evict
// old entries with a single prefix cut.
type Log struct {
	mu     sync.Mutex
	events []model.AuthEvent

	capacity      int
	handlers      []Handler
	logger        *logger.Logger
	now           func() time.Time
	sweepInterval time.Duration
	maxEventAge   time.Duration

	done     chan struct{}
	stopOnce sync.Once
}

// Option configures a Log.
type Option func(*Log)

// WithCapacity overrides the maximum number of retained events.
func WithCapacity(n int) Option {
	return func(l *Log) {
		if n > 0 {
			l.capacity = n
		}
	}
}

// WithClock overrides the time source for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(l *Log) {
		l.now = now
	}
}

// WithHandler adds a forwarding handler invoked for every recorded event.
func WithHandler(h Handler) Option {
	return func(l *Log) {
		l.handlers = append(l.handlers, h)
	}
}

// WithSweepInterval overrides how often the age-based cleanup runs.
func WithSweepInterval(d time.Duration) Option {
	return func(l *Log) {
		l.sweepInterval = d
	}
}

// WithMaxEventAge overrides the age cutoff used by the background sweep.
func WithMaxEventAge(d time.Duration) Option {
	return func(l *Log) {
		l.maxEventAge = d
	}
}

// New creates a Log and starts its background sweep. Call Stop on
// shutdown.
func New(logger *logger.Logger, opts ...Option) *Log {
	l := &Log{
		capacity:      defaultCapacity,
		logger:        logger,
		now:           time.Now,
		sweepInterval: defaultSweepInterval,
		maxEventAge:   defaultMaxEventAge,
		done:          make(chan struct{}),
	}

	for _, opt := range opts {
		opt(l)
	}

	go l.sweepLoop()

	return l
}

// Record appends an event with a server-assigned timestamp. When the
// buffer is full the oldest entry is dropped first.
func (l *Log) Record(event model.AuthEvent) {
	event.Timestamp = l.now()

	l.mu.Lock()
	l.events = append(l.events, event)
	if len(l.events) > l.capacity {
		l.events = append(l.events[:0:0], l.events[len(l.events)-l.capacity:]...)
	}
	handlers := l.handlers
	l.mu.Unlock()

	for _, h := range handlers {
		h(event)
	}
}

// ByUser returns up to limit events for the user, most recent first.
func (l *Log) ByUser(userID uuid.UUID, limit int) []model.AuthEvent {
	return l.filter(limit, func(e model.AuthEvent) bool {
		return e.UserID == userID
	})
}

// ByType returns up to limit events of the given kind, most recent first.
func (l *Log) ByType(kind model.EventType, limit int) []model.AuthEvent {
	return l.filter(limit, func(e model.AuthEvent) bool {
		return e.Type == kind
	})
}

func (l *Log) filter(limit int, match func(model.AuthEvent) bool) []model.AuthEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]model.AuthEvent, 0, limit)
	for i := len(l.events) - 1; i >= 0 && len(out) < limit; i-- {
		if match(l.events[i]) {
			out = append(out, l.events[i])
		}
	}
	return out
}

// CountFailedLogins counts LOGIN_FAILED events for the email within the
// trailing window.
func (l *Log) CountFailedLogins(email string, window time.Duration) int {
	cutoff := l.now().Add(-window)

	l.mu.Lock()
	defer l.mu.Unlock()

	count := 0
	for i := len(l.events) - 1; i >= 0; i-- {
		e := l.events[i]
		if e.Timestamp.Before(cutoff) {
			break
		}
		if e.Type == model.EventLoginFailed && e.Email == email {
			count++
		}
	}
	return count
}

// DetectSuspicious evaluates the trailing hour for the email. It flags, in
// this order: failed logins from several distinct addresses, then
// excessive password reset requests. A positive detection is itself
// recorded as a SUSPICIOUS_ACTIVITY event.
func (l *Log) DetectSuspicious(email string) (bool, string) {
	cutoff := l.now().Add(-suspicionWindow)

	l.mu.Lock()
	failed := 0
	resets := 0
	ips := make(map[string]struct{})
	for i := len(l.events) - 1; i >= 0; i-- {
		e := l.events[i]
		if e.Timestamp.Before(cutoff) {
			break
		}
		if e.Email != email {
			continue
		}
		switch e.Type {
		case model.EventLoginFailed:
			failed++
			if e.IP != "" {
				ips[e.IP] = struct{}{}
			}
		case model.EventPasswordResetRequest:
			resets++
		}
	}
	l.mu.Unlock()

	var reason string
	switch {
	case failed >= suspicionFailedLogins && len(ips) >= suspicionDistinctIPs:
		reason = "failed logins from multiple addresses"
	case resets >= suspicionResetRequests:
		reason = "excessive password reset requests"
	default:
		return false, ""
	}

	l.Record(model.AuthEvent{
		Type:  model.EventSuspiciousActivity,
		Email: email,
		Metadata: map[string]string{
			"reason":         reason,
			"failed_logins":  strconv.Itoa(failed),
			"distinct_ips":   strconv.Itoa(len(ips)),
			"reset_requests": strconv.Itoa(resets),
		},
	})
	l.logger.Warn("suspicious activity detected", "email", email, "reason", reason)

	return true, reason
}

// Cleanup removes all events older than maxAge and returns how many were
// removed. Entries are time-ordered, so eviction is a prefix cut.
func (l *Log) Cleanup(maxAge time.Duration) int {
	cutoff := l.now().Add(-maxAge)

	l.mu.Lock()
	defer l.mu.Unlock()

	keep := 0
	for keep < len(l.events) && l.events[keep].Timestamp.Before(cutoff) {
		keep++
	}
	if keep == 0 {
		return 0
	}

	l.events = append(l.events[:0:0], l.events[keep:]...)
	return keep
}

// Len returns the number of retained events.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.events)
}

// Stop halts the background sweep. Safe to call more than once.
func (l *Log) Stop() {
	l.stopOnce.Do(func() {
		close(l.done)
	})
}

func (l *Log) sweepLoop() {
	ticker := time.NewTicker(l.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed := l.Cleanup(l.maxEventAge)
			if removed > 0 {
				l.logger.Debug("auth event log sweep removed old events", "removed", removed)
			}
		case <-l.done:
			return
		}
	}
}
