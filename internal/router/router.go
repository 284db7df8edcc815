package router

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/medipass-api/internal/handler/auth"
	"github.com/jwalitptl/medipass-api/internal/handler/consultation"
	"github.com/jwalitptl/medipass-api/internal/handler/health"
	"github.com/jwalitptl/medipass-api/internal/handler/patient"
	"github.com/jwalitptl/medipass-api/internal/handler/practitioner"
	"github.com/jwalitptl/medipass-api/internal/handler/prometheus"
	"github.com/jwalitptl/medipass-api/internal/handler/report"
	"github.com/jwalitptl/medipass-api/internal/middleware"
	"github.com/jwalitptl/medipass-api/pkg/metrics"
)

type Handlers struct {
	Auth         *auth.Handler
	Patient      *patient.Handler
	Practitioner *practitioner.Handler
	Consultation *consultation.Handler
	Report       *report.Handler
	Health       *health.Handler
	Prometheus   *prometheus.Handler
}

type RouterConfig struct {
	RateLimit rate.Limit
	RateBurst int
	Release   bool
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	handlers Handlers
}

func NewRouter(auth *middleware.AuthMiddleware, handlers Handlers, m *metrics.Metrics, config RouterConfig) *Router {
	if config.Release {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logger(),
		middleware.SecurityHeaders(middleware.DefaultSecurityConfig()),
	)
	if m != nil {
		engine.Use(middleware.Metrics(m))
	}
	engine.Use(middleware.ErrorHandler())

	if config.RateLimit > 0 {
		rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		})
		engine.Use(rateLimiter.RateLimit())
	}

	r := &Router{
		engine:   engine,
		auth:     auth,
		handlers: handlers,
	}
	r.setup()
	return r
}

func (r *Router) setup() {
	h := r.handlers

	if h.Health != nil {
		h.Health.RegisterRoutes(r.engine)
	}
	if h.Prometheus != nil {
		r.engine.GET("/metrics", h.Prometheus.Handler())
	}

	api := r.engine.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	// Public routes
	h.Auth.RegisterPublicRoutes(api)

	// Protected routes
	protected := api.Group("")
	protected.Use(r.auth.Authenticate())
	admin := r.auth.RequireAdmin()

	h.Auth.RegisterRoutes(protected, admin)
	h.Patient.RegisterRoutes(protected)
	h.Practitioner.RegisterRoutes(protected, admin)
	h.Consultation.RegisterRoutes(protected)
	h.Report.RegisterRoutes(protected)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
