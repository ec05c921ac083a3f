// Package memorylimiter is a per-key token-bucket rate limiter for a single process.
package memorylimiter

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limit allows Limit hits per Window. The full allowance is available as a burst
// and refills evenly over the window.
type Limit struct {
	Limit  int
	Window time.Duration
}

type entry struct {
	lim    *rate.Limiter
	window time.Duration
	seen   time.Time
}

// Limiter keeps one rate.Limiter per bucket and key. Buckets without an entry fall
// back to "default"; when that is missing too, requests are allowed.
type Limiter struct {
	mu     sync.Mutex
	limits map[string]Limit
	keys   map[string]*entry
	now    func() time.Time
	calls  int
}

func New(limits map[string]Limit) *Limiter {
	cp := make(map[string]Limit, len(limits))
	for k, v := range limits {
		cp[k] = v
	}
	return &Limiter{limits: cp, keys: map[string]*entry{}, now: time.Now}
}

// WithClock replaces the time source (tests).
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	if now != nil {
		l.now = now
	}
	return l
}

func (l *Limiter) limitFor(bucket string) (Limit, bool) {
	if lim, ok := l.limits[bucket]; ok {
		return lim, true
	}
	lim, ok := l.limits["default"]
	return lim, ok
}

// AllowNamed spends one token for key in bucket and reports whether one was available.
func (l *Limiter) AllowNamed(bucket, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limitFor(bucket)
	if !ok || lim.Limit <= 0 || lim.Window <= 0 {
		return true, nil
	}
	now := l.now()
	k := bucket + "|" + key
	e := l.keys[k]
	if e == nil {
		e = &entry{
			lim:    rate.NewLimiter(rate.Every(lim.Window/time.Duration(lim.Limit)), lim.Limit),
			window: lim.Window,
		}
		l.keys[k] = e
	}
	e.seen = now

	l.calls++
	if l.calls%1024 == 0 {
		l.sweepLocked(now)
	}
	return e.lim.AllowN(now, 1), nil
}

// sweepLocked drops keys idle for a full window; their bucket would be full again.
func (l *Limiter) sweepLocked(now time.Time) {
	for k, e := range l.keys {
		if now.Sub(e.seen) >= e.window {
			delete(l.keys, k)
		}
	}
}
