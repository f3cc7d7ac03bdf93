package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/knowledgenexus/forum/utils"
)

// Timeout bounds every request with a deadline. Handlers pass the request context
// down to the store, so an overrun surfaces as a Timeout error; if a handler returns
// without writing after the deadline passed, a 504 is written here.
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if d <= 0 {
			ctx.Next()
			return
		}
		c, cancel := context.WithTimeout(ctx.Request.Context(), d)
		defer cancel()
		ctx.Request = ctx.Request.WithContext(c)

		ctx.Next()

		if !ctx.Writer.Written() && errors.Is(c.Err(), context.DeadlineExceeded) {
			utils.Error(ctx, http.StatusGatewayTimeout, 50400, "request timed out")
		}
	}
}
