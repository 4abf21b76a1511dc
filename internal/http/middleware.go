package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"customer-api/internal/service"
)

const (
	claimsKey       = "claims"
	requestIDHeader = "X-Request-ID"
)

// ClaimsFromContext returns the token claims stored by the auth guard, if any.
func ClaimsFromContext(c *gin.Context) (*service.Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*service.Claims)
	return claims, ok
}

func (h *Handler) requireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := h.tokens.Verify(c.GetHeader("Authorization"))
		if err != nil {
			h.fail(c, err)
			c.Abort()
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

func corsMiddleware(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		if requested := c.GetHeader("Access-Control-Request-Headers"); requested != "" {
			c.Writer.Header().Set("Access-Control-Allow-Headers", requested)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Headers", "*")
		}
		c.Writer.Header().Add("Vary", "Origin")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency":    time.Since(start).String(),
		})
		if claims, ok := ClaimsFromContext(c); ok {
			entry = entry.WithField("username", claims.Username)
		}
		entry.Info("request")
	}
}
