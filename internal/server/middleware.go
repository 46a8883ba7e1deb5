package server

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/retailpulse/pkg/tenantctx"
	"go.uber.org/zap"
)

// tenantContext copies the tenant header into the request context so every
// handler resolves the caller's tenant the same way.
func tenantContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		if tenantID := c.GetHeader("X-Tenant-ID"); tenantID != "" {
			ctx := tenantctx.WithTenantID(c.Request.Context(), tenantID)
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	log = log.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

// requireAPIKey guards operator endpoints. An unset key closes them
// entirely rather than leaving them open.
func requireAPIKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			abortWithError(c, http.StatusServiceUnavailable, "admin_disabled", "operator API key is not configured")
			return
		}
		provided := c.GetHeader("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
			abortWithError(c, http.StatusUnauthorized, "unauthorized", "invalid API key")
			return
		}
		c.Next()
	}
}
