package authgin

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/open-rails/linkconfirm/adapters/gin/handlers"
	"github.com/open-rails/linkconfirm/adapters/ginutil"
	"github.com/open-rails/linkconfirm/core"
	memorylimiter "github.com/open-rails/linkconfirm/ratelimit/memory"
	redisl "github.com/open-rails/linkconfirm/ratelimit/redis"
	memorystore "github.com/open-rails/linkconfirm/storage/memory"
	redisstore "github.com/open-rails/linkconfirm/storage/redis"
)

// Service wraps core.Service for mounting on a gin router.
type Service struct {
	svc *core.Service
	rl  ginutil.RateLimiter
}

func defaultLimits() map[string]memorylimiter.Limit {
	return map[string]memorylimiter.Limit{
		"default":              {Limit: 120, Window: time.Minute},
		ginutil.RLLinkConfirm:  {Limit: 20, Window: 10 * time.Minute},
		ginutil.RLLinkPassword: {Limit: 10, Window: 10 * time.Minute},
	}
}

// NewService wraps svc with an in-memory rate limiter. The in-memory ticket
// store is installed only when svc has none.
func NewService(svc *core.Service) *Service {
	if svc != nil && !svc.HasEphemeralStore() {
		svc = svc.WithEphemeralStore(memorystore.NewKV(), core.EphemeralMemory)
	}
	return &Service{svc: svc, rl: memorylimiter.New(defaultLimits())}
}

// WithRedis moves reset tickets and rate-limit counters to Redis.
func (s *Service) WithRedis(rd redis.UniversalClient) *Service {
	if rd == nil {
		return s
	}
	if s.svc != nil {
		s.svc = s.svc.WithEphemeralStore(redisstore.NewKV(rd), core.EphemeralRedis)
	}
	limits := map[string]redisl.Limit{}
	for k, v := range defaultLimits() {
		limits[k] = redisl.Limit{Limit: v.Limit, Window: v.Window}
	}
	s.rl = redisl.New(rd, limits)
	return s
}

func (s *Service) WithRateLimiter(rl ginutil.RateLimiter) *Service { s.rl = rl; return s }
func (s *Service) WithEventLogger(l core.EventLogger) *Service {
	if s.svc != nil {
		s.svc = s.svc.WithEventLogger(l)
	}
	return s
}

func (s *Service) Core() *core.Service { return s.svc }

// GinRegisterAPI mounts the JSON link routes on the provided router or group.
// Pass a prefixed group (e.g., r.Group("/api/v1")) to mount under a prefix.
func (s *Service) GinRegisterAPI(r gin.IRouter) *Service {
	if !core.IsDevEnvironment() && s.svc.EphemeralMode() != core.EphemeralRedis {
		panic("linkconfirm: redis-compatible ephemeral store is required in production")
	}
	g := r.Group("/auth/links", ginutil.RequestContext())
	g.POST("/confirm", handlers.HandleLinksConfirmPOST(s.svc, s.rl))
	g.POST("/password", handlers.HandleLinksPasswordPOST(s.svc, s.rl))
	return s
}

// GinRegisterPages mounts browser pages served by a net/http handler (see
// adapters/http) at /confirm-email and /reset-password.
func (s *Service) GinRegisterPages(root gin.IRouter, pages http.Handler) *Service {
	h := gin.WrapH(pages)
	root.GET("/confirm-email", h)
	root.GET("/reset-password", h)
	root.POST("/reset-password", h)
	return s
}
