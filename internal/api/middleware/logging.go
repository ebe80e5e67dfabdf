package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/DocSandbox/backend/internal/infrastructure/tracing"
)

// AccessLog logs one line per request. Server errors log at error level,
// client errors at warn, the rest at debug.
func AccessLog(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := append([]zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.Int("bytes", c.Writer.Size()),
			zap.String("client_ip", c.ClientIP()),
		}, tracing.Fields(c.Request.Context())...)
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("Request failed", fields...)
		case status >= http.StatusBadRequest:
			logger.Warn("Request rejected", fields...)
		default:
			logger.Debug("Request served", fields...)
		}
	}
}

// Recovery turns a panic into a 500 JSON response and logs it with the stack.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		logger.Error("Panic recovered",
			append([]zap.Field{
				zap.Any("panic", recovered),
				zap.String("path", c.Request.URL.Path),
				zap.Stack("stack"),
			}, tracing.Fields(c.Request.Context())...)...,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": "internal server error",
			"code":  "internal",
		})
	})
}
