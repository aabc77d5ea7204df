package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/researchrender/researchrender/pkg/logger"
)

// Recovery answers a panicking handler with a 500 carrying the request id.
// If the handler had already started its response, the request is only
// aborted. http.ErrAbortHandler is passed through to net/http.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			logger.Error(c.Request.Context(), "handler panic",
				"panic", rec,
				"route", routeOf(c),
				"stack", string(debug.Stack()),
			)
			if c.Writer.Written() {
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":      "An unexpected error occurred",
				"request_id": GetRequestID(c),
			})
		}()

		c.Next()
	}
}
