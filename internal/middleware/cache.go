package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// PublicCache marks successful GET responses of public content as cacheable
// by browsers and CDNs for maxAge. Anything else is no-store.
func PublicCache(maxAge time.Duration) gin.HandlerFunc {
	directive := "public, max-age=" + strconv.Itoa(int(maxAge.Seconds()))

	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet || c.GetHeader("Authorization") != "" || maxAge <= 0 {
			c.Header("Cache-Control", "no-store")
			c.Next()
			return
		}
		c.Header("Cache-Control", directive)
		c.Header("Vary", "Accept-Encoding")
		c.Next()
	}
}

// NoStore keeps private responses (tokens, patient data) out of caches.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}
