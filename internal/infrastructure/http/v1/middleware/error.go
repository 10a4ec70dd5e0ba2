package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"invoicedesk/internal/core/apperror"
	"invoicedesk/internal/infrastructure/idempotency"
	"invoicedesk/pkg/logger"
)

// ErrorHandler middleware transforms errors into consistent JSON responses.
// Hides internal errors from clients while logging full details.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		// If response already written by handler, do not override it.
		if c.Writer.Written() {
			return
		}

		if appErr, ok := apperror.AsAppError(err); ok {
			if appErr.Err != nil {
				logger.Error(c.Request.Context(), "request error",
					"code", appErr.Code,
					"cause", appErr.Err,
				)
			}

			body := gin.H{
				"code":    appErr.Code,
				"message": appErr.Message,
				"details": appErr.Details,
			}
			settleIdempotency(c, appErr.HTTPStatus, body)
			c.JSON(appErr.HTTPStatus, body)
			return
		}

		logger.Error(c.Request.Context(), "unhandled error",
			"error", err,
		)

		body := gin.H{
			"code":    apperror.CodeInternal,
			"message": "Internal server error",
			"details": map[string]any{
				"request_id": c.GetString(ContextKeyRequestID),
			},
		}
		settleIdempotency(c, http.StatusInternalServerError, body)
		c.JSON(http.StatusInternalServerError, body)
	}
}

// settleIdempotency records a client error for replay. Server-side failures
// release the key instead, so a retry may run the operation again.
func settleIdempotency(c *gin.Context, status int, body any) {
	key, store, ok := IdempotencyFrom(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var err error
	if status >= http.StatusInternalServerError {
		err = store.Release(ctx, key)
	} else {
		err = store.FailKey(ctx, key, status, "application/json", body)
	}
	if err != nil {
		logger.Warn(ctx, "idempotency key not settled", "key", key, "error", err)
	}
}

// IdempotencyFrom returns the key acquired by the Idempotency middleware for this request.
func IdempotencyFrom(c *gin.Context) (string, *idempotency.Store, bool) {
	key := c.GetString(ContextKeyIdempotencyKey)
	if key == "" {
		return "", nil, false
	}
	raw, _ := c.Get(ContextKeyIdempotencyStore)
	store, ok := raw.(*idempotency.Store)
	if !ok || store == nil {
		return "", nil, false
	}
	return key, store, true
}
