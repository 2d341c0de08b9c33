package middleware

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type CORSConfig struct {
	AllowOrigins []string
	MaxAge       time.Duration
}

// CORS allows the SPA origins to call the API with credentials.
func CORS(config CORSConfig) gin.HandlerFunc {
	maxAge := config.MaxAge
	if maxAge <= 0 {
		maxAge = 12 * time.Hour
	}

	cfg := cors.Config{
		AllowMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
			"X-Requested-With",
			HeaderXRequestID,
		},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Disposition",
			HeaderXRequestID,
			"Retry-After",
		},
		AllowCredentials: true,
		MaxAge:           maxAge,
	}

	if len(config.AllowOrigins) == 0 || (len(config.AllowOrigins) == 1 && config.AllowOrigins[0] == "*") {
		// "*" cannot be combined with credentials, so echo the caller's origin.
		cfg.AllowOriginFunc = func(string) bool { return true }
	} else {
		cfg.AllowOrigins = config.AllowOrigins
	}

	return cors.New(cfg)
}
