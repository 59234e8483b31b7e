package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/safar/storeledger/internal/service"
	"go.uber.org/zap"
)

// RequestLogger logs one line per request through zap.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if actor, ok := service.ActorFromContext(c.Request.Context()); ok {
			fields = append(fields, zap.String("actor", actor.Username))
		}

		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			logger.Error("request", fields...)
		case status >= http.StatusBadRequest:
			logger.Warn("request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}

// BasicAuth authenticates the operator from the Authorization header and
// attaches it to the request context.
func (h *handler) BasicAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		username, password, ok := c.Request.BasicAuth()
		if !ok {
			c.Header("WWW-Authenticate", `Basic realm="storeledger"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		user, err := h.svc.Authenticate(c.Request.Context(), username, password)
		if err != nil {
			if statusFor(err) == http.StatusUnauthorized {
				c.Header("WWW-Authenticate", `Basic realm="storeledger"`)
			}
			h.respondError(c, err)
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(service.WithActor(c.Request.Context(), user))
		c.Next()
	}
}
