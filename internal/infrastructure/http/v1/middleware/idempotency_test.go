package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicedesk/internal/infrastructure/idempotency"
	"invoicedesk/internal/infrastructure/storage/memory"
)

func newIdempotentRouter(calls *int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	store := idempotency.NewStore(memory.NewStore().Collection(idempotency.CollectionName), 0)

	r := gin.New()
	r.Use(ErrorHandler())
	r.Use(Idempotency(store))
	r.POST("/api/things", func(c *gin.Context) {
		*calls++
		var payload map[string]any
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		if key, store, ok := IdempotencyFrom(c); ok {
			_ = store.CompleteKey(c.Request.Context(), key, http.StatusCreated, "application/json", payload)
		}
		c.JSON(http.StatusCreated, payload)
	})
	return r
}

func TestIdempotency_BodyReadFailure(t *testing.T) {
	var calls int
	r := newIdempotentRouter(&calls)

	// The first bytes arrive, then the connection breaks.
	broken := io.MultiReader(strings.NewReader(`{"name":`), iotest.ErrReader(errors.New("connection reset")))
	req := httptest.NewRequest(http.MethodPost, "/api/things", broken)
	req.Header.Set(HeaderIdempotencyKey, "k-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "INVALID_INPUT", out["code"])
	assert.Zero(t, calls)

	// The key was never bound, so the complete request runs normally.
	req = httptest.NewRequest(http.MethodPost, "/api/things", strings.NewReader(`{"name":"bolt"}`))
	req.Header.Set(HeaderIdempotencyKey, "k-1")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"name":"bolt"}`, rec.Body.String())
	assert.Equal(t, 1, calls)
}

func TestIdempotency_ReplaysCompletedRequest(t *testing.T) {
	var calls int
	r := newIdempotentRouter(&calls)

	send := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/things", strings.NewReader(body))
		req.Header.Set(HeaderIdempotencyKey, "k-2")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	first := send(`{"name":"nut"}`)
	require.Equal(t, http.StatusCreated, first.Code)

	second := send(`{"name":"nut"}`)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, calls)

	assert.Equal(t, http.StatusConflict, send(`{"name":"washer"}`).Code)
}
