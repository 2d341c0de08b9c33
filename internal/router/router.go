package router

import (
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/pediatric-clinic-api/internal/handler"
	"github.com/jwalitptl/pediatric-clinic-api/internal/handler/health"
	"github.com/jwalitptl/pediatric-clinic-api/internal/handler/prometheus"
	"github.com/jwalitptl/pediatric-clinic-api/internal/middleware"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/httputil"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/ratelimit"
)

// PublicUploadFolders are the asset folders anyone may fetch.
var PublicUploadFolders = []string{"doctors", "testimonials"}

// Handler is implemented by every resource handler package.
type Handler interface {
	RegisterRoutes(*gin.RouterGroup, *handler.Middleware)
}

type Router struct {
	engine   *gin.Engine
	mw       *handler.Middleware
	handlers []Handler
	health   *health.Handler
	metrics  *prometheus.Handler
	config   RouterConfig
}

type LimitsConfig struct {
	Login         ratelimit.Rule
	PasswordReset ratelimit.Rule
	OTP           ratelimit.Rule
	Testimonial   ratelimit.Rule
}

type RouterConfig struct {
	Mode           string
	TrustedProxies []string
	RateLimit      middleware.RateLimiterConfig
	CORSConfig     middleware.CORSConfig
	Security       middleware.SecurityConfig
	SizeLimit      middleware.SizeLimitConfig
	Timeout        time.Duration
	PublicCacheTTL time.Duration
	Limits         LimitsConfig
	// UploadsDir holds local-driver assets; public folders are served under /uploads.
	UploadsDir string
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	audit *middleware.AuditMiddleware,
	limiter *middleware.KeyedLimiter,
	healthH *health.Handler,
	metrics *prometheus.Handler,
	config RouterConfig,
	handlers ...Handler,
) *Router {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(config.TrustedProxies); err != nil {
		log.Warn().Err(err).Msg("invalid trusted proxies, trusting none")
		_ = engine.SetTrustedProxies(nil)
	}

	r := &Router{
		engine:   engine,
		handlers: handlers,
		health:   healthH,
		metrics:  metrics,
		config:   config,
		mw: &handler.Middleware{
			Auth:        auth,
			Audit:       audit,
			PublicCache: middleware.PublicCache(config.PublicCacheTTL),
		},
	}

	if limiter != nil {
		r.mw.LoginLimit = limiter.Limit(middleware.KeyedLimitConfig{
			Name:    "login",
			Rule:    config.Limits.Login,
			Key:     middleware.ByIPAndEmail,
			Message: "Too many login attempts, please try again after 15 minutes",
		})
		r.mw.ForgotPasswordLimit = limiter.Limit(middleware.KeyedLimitConfig{
			Name:    "password_reset",
			Rule:    config.Limits.PasswordReset,
			Key:     middleware.ByEmail,
			Message: "Too many password reset requests, please try again later",
		})
		r.mw.OTPLimit = limiter.Limit(middleware.KeyedLimitConfig{
			Name:    "otp",
			Rule:    config.Limits.OTP,
			Key:     middleware.ByEmail,
			Message: "Too many OTP attempts, please request a new code later",
		})
		r.mw.TestimonialLimit = limiter.Limit(middleware.KeyedLimitConfig{
			Name:    "testimonial",
			Rule:    config.Limits.Testimonial,
			Key:     middleware.ByIP,
			Message: "Too many testimonials submitted, please try again later",
		})
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Recovery(),
		middleware.ErrorHandler(),
	)
	if metrics != nil {
		engine.Use(metrics.Middleware())
	}
	engine.Use(
		middleware.SecurityHeaders(config.Security),
		middleware.CORS(config.CORSConfig),
	)
	if config.RateLimit.Burst > 0 {
		engine.Use(middleware.NewRateLimiter(config.RateLimit).RateLimit())
	}
	engine.Use(
		middleware.Timeout(middleware.TimeoutConfig{Duration: config.Timeout}),
		middleware.SizeLimit(config.SizeLimit),
	)

	return r
}

func (r *Router) Setup() {
	r.engine.NoRoute(func(c *gin.Context) {
		httputil.RespondWithStatus(c, http.StatusNotFound, "Route not found")
	})

	// Result files are never served statically; they go through the
	// ownership check in /api/results/file.
	if r.config.UploadsDir != "" {
		for _, folder := range PublicUploadFolders {
			r.engine.Static("/uploads/"+folder, filepath.Join(r.config.UploadsDir, folder))
		}
	}
	if r.metrics != nil {
		r.engine.GET("/metrics", r.metrics.Handler())
	}

	api := r.engine.Group("/api")
	if r.health != nil {
		r.health.RegisterRoutes(api)
	}
	for _, h := range r.handlers {
		h.RegisterRoutes(api, r.mw)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
