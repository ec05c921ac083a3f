package authhttp

import (
	"net/http"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/open-rails/linkconfirm/core"
	memorylimiter "github.com/open-rails/linkconfirm/ratelimit/memory"
	redislimiter "github.com/open-rails/linkconfirm/ratelimit/redis"
	memorystore "github.com/open-rails/linkconfirm/storage/memory"
	redisstore "github.com/open-rails/linkconfirm/storage/redis"
)

// Service wraps core.Service with net/http mounting helpers.
type Service struct {
	svc      *core.Service
	rl       RateLimiter
	clientIP ClientIPFunc
	pages    *pageRenderer
}

func (s *Service) allow(r *http.Request, bucket string) bool {
	if s == nil || s.rl == nil {
		return true
	}
	ip := s.ipOf(r)
	if strings.TrimSpace(ip) == "" {
		return true
	}
	key := "linkconfirm:" + bucket + ":ip:" + ip
	ok, err := s.rl.AllowNamed(bucket, key)
	if err != nil {
		return true
	}
	return ok
}

func (s *Service) ipOf(r *http.Request) string {
	ipFn := s.clientIP
	if ipFn == nil {
		ipFn = DefaultClientIP()
	}
	return ipFn(r)
}

// NewService wraps svc for net/http mounting. A ticket store already set on svc
// is kept; otherwise tickets and rate limits stay in memory. Multi-instance
// deployments should call WithRedis.
func NewService(svc *core.Service) *Service {
	if svc != nil && !svc.HasEphemeralStore() {
		svc = svc.WithEphemeralStore(memorystore.NewKV(), core.EphemeralMemory)
	}
	return &Service{
		svc:      svc,
		rl:       memorylimiter.New(ToMemoryLimits(DefaultRateLimits())),
		clientIP: DefaultClientIP(),
		pages:    newPageRenderer(),
	}
}

// WithRedis moves reset tickets and rate-limit counters to Redis.
func (s *Service) WithRedis(rd redis.UniversalClient) *Service {
	if rd == nil {
		return s
	}
	if s.svc != nil {
		s.svc = s.svc.WithEphemeralStore(redisstore.NewKV(rd), core.EphemeralRedis)
	}
	s.rl = redislimiter.New(rd, ToRedisLimits(DefaultRateLimits()))
	return s
}

func (s *Service) WithRateLimiter(rl RateLimiter) *Service { s.rl = rl; return s }
func (s *Service) DisableRateLimiter() *Service            { s.rl = nil; return s }
func (s *Service) WithClientIPFunc(fn ClientIPFunc) *Service {
	if fn == nil {
		s.clientIP = DefaultClientIP()
		return s
	}
	s.clientIP = fn
	return s
}
func (s *Service) WithEventLogger(l core.EventLogger) *Service {
	if s.svc != nil {
		s.svc = s.svc.WithEventLogger(l)
	}
	return s
}
func (s *Service) WithEphemeralStore(store core.EphemeralStore, mode core.EphemeralMode) *Service {
	if s.svc != nil {
		s.svc = s.svc.WithEphemeralStore(store, mode)
	}
	return s
}

func (s *Service) Core() *core.Service { return s.svc }
