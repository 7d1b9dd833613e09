package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/orderdesk/orderdesk-api/pkg/httputil"
)

// Recovery turns handler panics into 500 responses instead of killing the
// worker goroutine.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Interface("panic", r).
					Str("stack", string(debug.Stack())).
					Str("request_id", c.GetString(ContextRequestID)).
					Str("method", c.Request.Method).
					Str("path", c.Request.URL.Path).
					Msg("panic recovered")

				c.Abort()
				httputil.RespondWithStatus(c, http.StatusInternalServerError,
					"INTERNAL", "internal server error")
			}
		}()
		c.Next()
	}
}
