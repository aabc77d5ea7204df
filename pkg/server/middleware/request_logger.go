package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/researchrender/researchrender/pkg/logger"
)

// healthPath is logged at debug level.
const healthPath = "/health"

// RequestLogger writes one line per request once the handler returns.
// Paths are logged by route pattern, so /papers/:hash never carries the hash.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"route", routeOf(c),
			"status", status,
			"duration", time.Since(start).Round(time.Millisecond),
			"client_ip", c.ClientIP(),
		}
		if n := c.Request.ContentLength; n > 0 {
			attrs = append(attrs, "bytes_in", n)
		}
		if n := c.Writer.Size(); n > 0 {
			attrs = append(attrs, "bytes_out", n)
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}

		ctx := c.Request.Context()
		switch {
		case status >= 500:
			logger.Error(ctx, "http request", attrs...)
		case status >= 400:
			logger.Warn(ctx, "http request", attrs...)
		case c.Request.URL.Path == healthPath:
			logger.Debug(ctx, "http request", attrs...)
		default:
			logger.Info(ctx, "http request", attrs...)
		}
	}
}

// routeOf returns the matched route pattern, or the raw path for 404s.
func routeOf(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return c.Request.URL.Path
}
