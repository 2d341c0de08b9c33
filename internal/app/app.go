// Package app wires repositories, services, middleware and handlers into an
// HTTP router. cmd/api supplies the real stores; tests supply fakes.
package app

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/pediatric-clinic-api/config"
	appointmentHandler "github.com/jwalitptl/pediatric-clinic-api/internal/handler/appointment"
	auditHandler "github.com/jwalitptl/pediatric-clinic-api/internal/handler/audit"
	authHandler "github.com/jwalitptl/pediatric-clinic-api/internal/handler/auth"
	departmentHandler "github.com/jwalitptl/pediatric-clinic-api/internal/handler/department"
	doctorHandler "github.com/jwalitptl/pediatric-clinic-api/internal/handler/doctor"
	"github.com/jwalitptl/pediatric-clinic-api/internal/handler/health"
	promHandler "github.com/jwalitptl/pediatric-clinic-api/internal/handler/prometheus"
	resultHandler "github.com/jwalitptl/pediatric-clinic-api/internal/handler/result"
	subscriberHandler "github.com/jwalitptl/pediatric-clinic-api/internal/handler/subscriber"
	testimonialHandler "github.com/jwalitptl/pediatric-clinic-api/internal/handler/testimonial"
	userHandler "github.com/jwalitptl/pediatric-clinic-api/internal/handler/user"
	videoHandler "github.com/jwalitptl/pediatric-clinic-api/internal/handler/video"
	"github.com/jwalitptl/pediatric-clinic-api/internal/middleware"
	"github.com/jwalitptl/pediatric-clinic-api/internal/repository"
	"github.com/jwalitptl/pediatric-clinic-api/internal/router"
	appointmentService "github.com/jwalitptl/pediatric-clinic-api/internal/service/appointment"
	auditService "github.com/jwalitptl/pediatric-clinic-api/internal/service/audit"
	authService "github.com/jwalitptl/pediatric-clinic-api/internal/service/auth"
	departmentService "github.com/jwalitptl/pediatric-clinic-api/internal/service/department"
	doctorService "github.com/jwalitptl/pediatric-clinic-api/internal/service/doctor"
	"github.com/jwalitptl/pediatric-clinic-api/internal/service/notification"
	resultService "github.com/jwalitptl/pediatric-clinic-api/internal/service/result"
	subscriberService "github.com/jwalitptl/pediatric-clinic-api/internal/service/subscriber"
	testimonialService "github.com/jwalitptl/pediatric-clinic-api/internal/service/testimonial"
	userService "github.com/jwalitptl/pediatric-clinic-api/internal/service/user"
	videoService "github.com/jwalitptl/pediatric-clinic-api/internal/service/video"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/auth"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/metrics"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/ratelimit"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/security"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/storage"
)

// Deps are the external collaborators of the API.
type Deps struct {
	Config   *config.Config
	Repos    *repository.Set
	Assets   storage.Store
	Notifier notification.Service
	Limits   ratelimit.Store
	DB       health.Pinger
	Metrics  *metrics.Metrics

	// Registerer and Gatherer back the HTTP metrics and /metrics.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer

	// Hasher defaults to bcrypt at security.DefaultCost.
	Hasher security.PasswordHasher
}

type App struct {
	Router *router.Router
	Audit  *auditService.Service
	Users  *userService.Service
}

func New(d Deps) *App {
	cfg := d.Config
	middleware.RegisterValidators()

	if d.Metrics == nil {
		d.Metrics = metrics.NewNop()
	}
	if d.Hasher == nil {
		d.Hasher = security.NewBcryptHasher(security.DefaultCost)
	}

	jwtSvc := auth.NewJWTService(auth.Config{
		Secret:        cfg.Secrets.JWTSecret,
		RefreshSecret: cfg.Secrets.JWTRefreshSecret,
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		Issuer:        cfg.JWT.Issuer,
	})

	// Services
	auditSvc := auditService.NewService(d.Repos.Audit, d.Repos.Users, d.Metrics, cfg.Audit.ActorCacheTTL)
	authSvc := authService.NewService(d.Repos.Users, jwtSvc, d.Hasher, d.Notifier)
	userSvc := userService.NewService(d.Repos.Users, d.Repos.Results, d.Assets, d.Hasher)
	doctorSvc := doctorService.NewService(d.Repos.Doctors, d.Assets, cfg.App.PublicCacheTTL)
	departmentSvc := departmentService.NewService(d.Repos.Departments, cfg.App.PublicCacheTTL)
	subscriberSvc := subscriberService.NewService(d.Repos.Subscribers, d.Notifier, cfg.App.FrontendURL)
	videoSvc := videoService.NewService(d.Repos.Videos, subscriberSvc)
	testimonialSvc := testimonialService.NewService(d.Repos.Testimonials, d.Assets)
	appointmentSvc := appointmentService.NewService(d.Repos.Appointments, d.Repos.Doctors, d.Notifier)
	resultSvc := resultService.NewService(d.Repos.Results, d.Repos.Users, d.Assets, d.Notifier, cfg.App.FrontendURL)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtSvc, d.Repos.Users)
	auditMiddleware := middleware.NewAuditMiddleware(auditSvc)
	var limiter *middleware.KeyedLimiter
	if d.Limits != nil {
		limiter = middleware.NewKeyedLimiter(d.Limits, d.Metrics)
	}

	var metricsH *promHandler.Handler
	if d.Registerer != nil && d.Gatherer != nil {
		metricsH = promHandler.New("http", d.Registerer, d.Gatherer)
	}
	var healthH *health.Handler
	if d.DB != nil {
		healthH = health.NewHandler(d.DB)
	}

	r := router.NewRouter(
		authMiddleware,
		auditMiddleware,
		limiter,
		healthH,
		metricsH,
		RouterConfig(cfg),
		authHandler.NewHandler(authSvc),
		doctorHandler.NewHandler(doctorSvc),
		departmentHandler.NewHandler(departmentSvc),
		videoHandler.NewHandler(videoSvc),
		testimonialHandler.NewHandler(testimonialSvc),
		subscriberHandler.NewHandler(subscriberSvc),
		appointmentHandler.NewHandler(appointmentSvc),
		resultHandler.NewHandler(resultSvc),
		userHandler.NewHandler(userSvc),
		auditHandler.NewHandler(auditSvc),
	)
	r.Setup()

	return &App{
		Router: r,
		Audit:  auditSvc,
		Users:  userSvc,
	}
}

func (a *App) Engine() *gin.Engine {
	return a.Router.Engine()
}

// RouterConfig maps application configuration onto router settings.
func RouterConfig(cfg *config.Config) router.RouterConfig {
	uploadsDir := ""
	if cfg.Storage.Driver == "local" {
		uploadsDir = cfg.Server.UploadsDir
	}

	sizes := middleware.DefaultSizeLimitConfig()
	if cfg.Server.MaxUploadMB > 0 {
		// every result file at the per-file cap, plus form overhead
		sizes.MaxUploadSize = (cfg.Server.MaxUploadMB*resultService.MaxFiles + 5) << 20
	}

	return router.RouterConfig{
		Mode:           cfg.Server.Mode,
		TrustedProxies: cfg.Server.TrustedProxies,
		RateLimit: middleware.RateLimiterConfig{
			Rate:  rate.Limit(cfg.RateLimit.RequestsPerSecond),
			Burst: cfg.RateLimit.Burst,
		},
		CORSConfig: middleware.CORSConfig{
			AllowOrigins: cfg.CORS.AllowOrigins,
			MaxAge:       cfg.CORS.MaxAge,
		},
		Security:       middleware.DefaultSecurityConfig(),
		SizeLimit:      sizes,
		Timeout:        cfg.Server.RequestTimeout,
		PublicCacheTTL: cfg.App.PublicCacheTTL,
		Limits: router.LimitsConfig{
			Login:         ratelimit.Rule{Limit: cfg.RateLimit.LoginLimit, Window: cfg.RateLimit.LoginWindow},
			PasswordReset: ratelimit.Rule{Limit: cfg.RateLimit.PasswordResetLimit, Window: cfg.RateLimit.PasswordResetWindow},
			OTP:           ratelimit.Rule{Limit: cfg.RateLimit.LoginLimit, Window: cfg.RateLimit.PasswordResetWindow},
			Testimonial:   ratelimit.Rule{Limit: cfg.RateLimit.TestimonialLimit, Window: cfg.RateLimit.TestimonialWindow},
		},
		UploadsDir: uploadsDir,
	}
}
