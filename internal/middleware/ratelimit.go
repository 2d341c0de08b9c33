package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/pediatric-clinic-api/pkg/httputil"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/metrics"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/ratelimit"
)

// maxPeekBytes bounds how much of a JSON body a key function may buffer.
const maxPeekBytes = 64 << 10

// KeyFunc derives the limiter key for a request. An empty key skips limiting.
type KeyFunc func(c *gin.Context) string

// KeyedLimitConfig configures one named limiter over a shared store.
type KeyedLimitConfig struct {
	Name    string
	Rule    ratelimit.Rule
	Key     KeyFunc
	Message string
}

type KeyedLimiter struct {
	store   ratelimit.Store
	metrics *metrics.Metrics
}

func NewKeyedLimiter(store ratelimit.Store, m *metrics.Metrics) *KeyedLimiter {
	return &KeyedLimiter{store: store, metrics: m}
}

// Limit rejects requests beyond cfg.Rule with 429 and a Retry-After header.
// Store failures let the request through.
func (l *KeyedLimiter) Limit(cfg KeyedLimitConfig) gin.HandlerFunc {
	if cfg.Message == "" {
		cfg.Message = "Too many requests, please try again later"
	}

	return func(c *gin.Context) {
		key := cfg.Key(c)
		if key == "" {
			c.Next()
			return
		}

		res, err := l.store.Allow(c.Request.Context(), cfg.Name+":"+key, cfg.Rule)
		if err != nil {
			log.Warn().Err(err).Str("limiter", cfg.Name).Msg("rate limit store unavailable, allowing request")
			if l.metrics != nil {
				l.metrics.RateLimitErrors.WithLabelValues(cfg.Name).Inc()
			}
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Rule.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))

		if !res.Allowed {
			if l.metrics != nil {
				l.metrics.RateLimitRejections.WithLabelValues(cfg.Name).Inc()
			}
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
			httputil.RespondWithStatus(c, http.StatusTooManyRequests, cfg.Message)
			return
		}
		c.Next()
	}
}

func ByIP(c *gin.Context) string {
	return c.ClientIP()
}

// ByEmail keys on the "email" field of a JSON body.
func ByEmail(c *gin.Context) string {
	return peekEmail(c)
}

// ByIPAndEmail keys on the client IP plus the "email" field of a JSON body.
func ByIPAndEmail(c *gin.Context) string {
	return c.ClientIP() + "|" + peekEmail(c)
}

// peekEmail reads the body's email field and restores the body for the handler.
func peekEmail(c *gin.Context) string {
	if c.Request.Body == nil {
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPeekBytes))
	if err != nil {
		return ""
	}
	c.Request.Body = io.NopCloser(io.MultiReader(bytes.NewReader(raw), c.Request.Body))

	var body struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(body.Email))
}
