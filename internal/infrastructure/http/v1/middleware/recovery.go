// Package middleware provides HTTP middleware components.
package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"invoicedesk/internal/core/apperror"
	"invoicedesk/pkg/logger"
)

// Recovery turns a handler panic into a 500 response.
// It sits outside ErrorHandler, so it renders the body itself and releases any
// idempotency key the request held; the client may retry.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}
			requestID := c.GetString(ContextKeyRequestID)
			logger.Error(c.Request.Context(), "panic while serving request",
				"panic", fmt.Sprint(recovered),
				"method", c.Request.Method,
				"route", c.FullPath(),
				"stack", string(debug.Stack()),
			)

			appErr := apperror.NewInternal(fmt.Errorf("panic: %v", recovered)).
				WithDetail("request_id", requestID)
			_ = c.Error(appErr)

			body := gin.H{
				"code":    appErr.Code,
				"message": appErr.Message,
				"details": appErr.Details,
			}
			settleIdempotency(c, http.StatusInternalServerError, body)
			if c.Writer.Written() {
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, body)
		}()
		c.Next()
	}
}
