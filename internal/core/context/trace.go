package context

import (
	"context"

	"github.com/google/uuid"
)

// Trace sources.
const (
	SourceHTTP = "http"
	SourceCLI  = "cli"
)

// TraceContext identifies one unit of work (an API request or an operator
// command) across log lines and spans.
type TraceContext struct {
	TraceID   string
	RequestID string
	Source    string
}

type traceContextKey struct{}

// WithTrace adds TraceContext to context.
func WithTrace(ctx context.Context, trace *TraceContext) context.Context {
	return context.WithValue(ctx, traceContextKey{}, trace)
}

// GetTrace returns TraceContext from context.
func GetTrace(ctx context.Context) *TraceContext {
	if v, ok := ctx.Value(traceContextKey{}).(*TraceContext); ok {
		return v
	}
	return nil
}

// GetRequestID returns request ID from context or empty string.
func GetRequestID(ctx context.Context) string {
	if t := GetTrace(ctx); t != nil {
		return t.RequestID
	}
	return ""
}

// NewTraceContext starts a trace for work that did not arrive with one.
// Trace ids use the 32-hex-digit form of W3C trace context.
func NewTraceContext(source string) *TraceContext {
	return &TraceContext{
		TraceID:   NewTraceID(),
		RequestID: uuid.NewString(),
		Source:    source,
	}
}

// NewTraceID returns a random 32-hex-digit trace id.
func NewTraceID() string {
	id := uuid.New()
	const hex = "0123456789abcdef"
	out := make([]byte, 32)
	for i, b := range id {
		out[i*2] = hex[b>>4]
		out[i*2+1] = hex[b&0x0f]
	}
	return string(out)
}
