package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CorrelationHeader carries the request-scoped correlation identifier across
// service boundaries.
const CorrelationHeader = "X-Correlation-ID"

type contextKey string

const correlationKey contextKey = "correlation_id"

// CorrelationID reads the correlation id from the incoming request, minting
// one when absent, and makes it available on the request context and the
// response headers.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(CorrelationHeader)
		if id == "" {
			id = uuid.New().String()
		}

		ctx := context.WithValue(c.Request.Context(), correlationKey, id)
		c.Request = c.Request.WithContext(ctx)
		c.Writer.Header().Set(CorrelationHeader, id)

		c.Next()
	}
}

// WithCorrelation returns a context carrying the given correlation id
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey, id)
}

// CorrelationFromContext returns the correlation id stored on ctx, if any
func CorrelationFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(correlationKey).(string); ok {
		return id
	}
	return ""
}

// RequestLogger logs each request with its correlation id
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("Request handled",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("correlation_id", CorrelationFromContext(c.Request.Context())))
	}
}

// CORS sets permissive cross-origin headers and short-circuits preflights
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Correlation-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
