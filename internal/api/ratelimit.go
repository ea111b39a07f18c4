package api

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	queryBurst       = 5
	limiterIdleAfter = 10 * time.Minute
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// sessionLimiter hands out one token bucket per session id. A non-positive
// per-minute rate disables limiting. Buckets idle for longer than idleAfter
// are swept on a later call; by then they have refilled, so dropping them
// loses nothing.
type sessionLimiter struct {
	mu        sync.Mutex
	perMin    int
	burst     int
	idleAfter time.Duration
	now       func() time.Time
	lastSweep time.Time
	limiters  map[string]*limiterEntry
}

func newSessionLimiter(perMinute int, burst int) *sessionLimiter {
	return &sessionLimiter{
		perMin:    perMinute,
		burst:     burst,
		idleAfter: limiterIdleAfter,
		now:       time.Now,
		limiters:  map[string]*limiterEntry{},
	}
}

func (l *sessionLimiter) Allow(sessionID string) bool {
	if l == nil || l.perMin <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	l.sweep(now)
	entry, ok := l.limiters[sessionID]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(float64(l.perMin)/60.0), l.burst)}
		l.limiters[sessionID] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

func (l *sessionLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.idleAfter {
		return
	}
	l.lastSweep = now
	for id, entry := range l.limiters {
		if now.Sub(entry.lastSeen) >= l.idleAfter {
			delete(l.limiters, id)
		}
	}
}

func (l *sessionLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}
