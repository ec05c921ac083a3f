package authhttp

import (
	"time"

	memorylimiter "github.com/open-rails/linkconfirm/ratelimit/memory"
	redislimiter "github.com/open-rails/linkconfirm/ratelimit/redis"
)

// Limit configures a named rate limit bucket.
type Limit struct {
	Limit  int
	Window time.Duration
}

// DefaultRateLimits returns the built-in per-endpoint rate limits, enforced per
// client IP (as determined by the Service's ClientIPFunc).
func DefaultRateLimits() map[string]Limit {
	return map[string]Limit{
		"default": {Limit: 120, Window: time.Minute},

		// Page loads include the fragment bootstrap round trip.
		RLLinkPage: {Limit: 60, Window: 10 * time.Minute},

		RLLinkConfirm:  {Limit: 20, Window: 10 * time.Minute},
		RLLinkPassword: {Limit: 10, Window: 10 * time.Minute},
	}
}

func ToMemoryLimits(in map[string]Limit) map[string]memorylimiter.Limit {
	out := make(map[string]memorylimiter.Limit, len(in))
	for k, v := range in {
		out[k] = memorylimiter.Limit{Limit: v.Limit, Window: v.Window}
	}
	return out
}

func ToRedisLimits(in map[string]Limit) map[string]redislimiter.Limit {
	out := make(map[string]redislimiter.Limit, len(in))
	for k, v := range in {
		out[k] = redislimiter.Limit{Limit: v.Limit, Window: v.Window}
	}
	return out
}
