package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "invoicedesk/internal/core/context"
	"invoicedesk/internal/infrastructure/idempotency"
	"invoicedesk/internal/infrastructure/storage/memory"
)

func newTracedRouter(seen *appctx.TraceContext) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Recovery())
	r.Use(Trace())
	r.GET("/api/ping", func(c *gin.Context) {
		if tc := appctx.GetTrace(c.Request.Context()); tc != nil {
			*seen = *tc
		}
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestTrace_GeneratesIDs(t *testing.T) {
	var seen appctx.TraceContext
	r := newTracedRouter(&seen)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ping", nil))

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))
	assert.Len(t, rec.Header().Get(HeaderTraceID), 32)
	assert.Equal(t, rec.Header().Get(HeaderRequestID), seen.RequestID)
	assert.Equal(t, rec.Header().Get(HeaderTraceID), seen.TraceID)
	assert.Equal(t, appctx.SourceHTTP, seen.Source)
}

func TestTrace_EchoesCallerIDs(t *testing.T) {
	var seen appctx.TraceContext
	r := newTracedRouter(&seen)

	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.Header.Set(HeaderRequestID, "req-42")
	req.Header.Set(HeaderTraceID, "trace-from-caller")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get(HeaderRequestID))
	assert.Equal(t, "trace-from-caller", rec.Header().Get(HeaderTraceID))
	assert.Equal(t, "req-42", seen.RequestID)
}

func TestTrace_TraceparentWins(t *testing.T) {
	var seen appctx.TraceContext
	r := newTracedRouter(&seen)

	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	req.Header.Set(HeaderTraceID, "ignored")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", rec.Header().Get(HeaderTraceID))
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", seen.TraceID)
}

func TestRecovery_RendersInternalError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Recovery())
	r.Use(Trace())
	r.Use(ErrorHandler())
	r.GET("/api/boom", func(c *gin.Context) {
		panic("nil map write")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/boom", nil)
	req.Header.Set(HeaderRequestID, "req-panic")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var out struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "INTERNAL_ERROR", out.Code)
	assert.Equal(t, "req-panic", out.Details["request_id"])
	assert.NotContains(t, rec.Body.String(), "nil map write")
}

func TestRecovery_ReleasesIdempotencyKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := idempotency.NewStore(memory.NewStore().Collection(idempotency.CollectionName), 0)

	var calls int
	r := gin.New()
	r.Use(Recovery())
	r.Use(ErrorHandler())
	r.Use(Idempotency(store))
	r.POST("/api/things", func(c *gin.Context) {
		calls++
		if calls == 1 {
			panic("first attempt")
		}
		c.JSON(http.StatusCreated, gin.H{"ok": true})
	})

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/things", strings.NewReader(`{"name":"bolt"}`))
		req.Header.Set(HeaderIdempotencyKey, "k-panic")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusInternalServerError, send())
	assert.Equal(t, http.StatusCreated, send())
	assert.Equal(t, 2, calls)
}
