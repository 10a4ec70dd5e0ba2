package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/propagation"
	oteltrace "go.opentelemetry.io/otel/trace"

	appctx "invoicedesk/internal/core/context"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderTraceID   = "X-Trace-ID"
)

// Gin context keys carrying the ids for handlers and error bodies.
const (
	ContextKeyRequestID = "request_id"
	ContextKeyTraceID   = "trace_id"
)

var traceparent = propagation.TraceContext{}

// Trace attaches request and trace ids to the request. A W3C traceparent
// header wins over X-Trace-ID, and its span becomes the parent of the
// sequence and transaction spans opened while serving the request.
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := traceparent.Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		var traceID string
		if sc := oteltrace.SpanContextFromContext(ctx); sc.HasTraceID() {
			traceID = sc.TraceID().String()
		} else if traceID = c.GetHeader(HeaderTraceID); traceID == "" {
			traceID = appctx.NewTraceID()
		}

		c.Request = c.Request.WithContext(appctx.WithTrace(ctx, &appctx.TraceContext{
			TraceID:   traceID,
			RequestID: requestID,
			Source:    appctx.SourceHTTP,
		}))

		c.Set(ContextKeyTraceID, traceID)
		c.Set(ContextKeyRequestID, requestID)

		c.Header(HeaderRequestID, requestID)
		c.Header(HeaderTraceID, traceID)

		c.Next()
	}
}
