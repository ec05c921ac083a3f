// Package redislimiter is a fixed-window rate limiter shared across instances through Redis.
package redislimiter

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limit allows Limit hits per Window.
type Limit struct {
	Limit  int
	Window time.Duration
}

type Limiter struct {
	rd      redis.UniversalClient
	limits  map[string]Limit
	prefix  string
	timeout time.Duration
}

func New(rd redis.UniversalClient, limits map[string]Limit) *Limiter {
	cp := make(map[string]Limit, len(limits))
	for k, v := range limits {
		cp[k] = v
	}
	return &Limiter{rd: rd, limits: cp, prefix: "rl:", timeout: 500 * time.Millisecond}
}

// AllowNamed increments the window counter for key; the first hit sets its expiry.
// Callers are expected to fail open on error.
func (l *Limiter) AllowNamed(bucket, key string) (bool, error) {
	lim, ok := l.limits[bucket]
	if !ok {
		lim, ok = l.limits["default"]
	}
	if !ok || lim.Limit <= 0 || lim.Window <= 0 {
		return true, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	k := l.prefix + key
	var incr *redis.IntCmd
	_, err := l.rd.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, k)
		p.ExpireNX(ctx, k, lim.Window)
		return nil
	})
	if err != nil {
		return false, err
	}
	return incr.Val() <= int64(lim.Limit), nil
}
