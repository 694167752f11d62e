package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"face-auth-backend/internal/faces"
	"face-auth-backend/internal/services/health"
	"face-auth-backend/internal/shared/config"
	"face-auth-backend/internal/shared/metrics"
	"face-auth-backend/internal/shared/server/middleware"
	"face-auth-backend/internal/shared/server/respond"
)

const verifyRateLimitGroup = "VERIFY"

// RouterDeps groups the handlers NewRouter mounts.
type RouterDeps struct {
	Config      config.Config
	FaceHandler *faces.Handler
	Health      *health.Service
	// Limiter lets tests control the verify rate limiter clock.
	Limiter *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if !config.IsDevLike(deps.Config.Env) {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	verifyLimit := middleware.RateLimit(middleware.RateLimitConfig{
		DefaultGroup: verifyRateLimitGroup,
		Limiter:      deps.Limiter,
		Rules: map[string]middleware.RateLimitRule{
			verifyRateLimitGroup: {
				Rate:  deps.Config.RateLimitVerifyRPS,
				Burst: deps.Config.RateLimitVerifyBurst,
			},
		},
	})

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		checks, ok := deps.Health.Status(c.Request.Context())
		status := http.StatusOK
		if !ok {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, gin.H{"ok": ok, "checks": checks})
	})
	if deps.FaceHandler != nil {
		deps.FaceHandler.RegisterRoutes(api, verifyLimit)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
