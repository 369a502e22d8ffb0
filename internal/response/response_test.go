package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestEnvelope(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ok", func(c *gin.Context) { Success(c, http.StatusOK, gin.H{"hello": "world"}) })
	r.GET("/fail", func(c *gin.Context) {
		FailWithFields(c, http.StatusBadRequest, ErrValidation, map[string]string{"title": "is required"})
	})

	t.Run("success carries data and the caller's request id", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ok", nil)
		req.Header.Set("X-Request-ID", "req-123")
		r.ServeHTTP(w, req)

		var body Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, map[string]any{"hello": "world"}, body.Data)
		assert.Nil(t, body.Error)
		assert.Equal(t, "req-123", body.Metadata.RequestID)
		assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))
		assert.NotEmpty(t, body.Metadata.Timestamp)
	})

	t.Run("failure carries code message and fields", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))

		var body Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		require.NotNil(t, body.Error)
		assert.Equal(t, ErrValidation, body.Error.Code)
		assert.Equal(t, GetMessage(ErrValidation), body.Error.Message)
		assert.Equal(t, "is required", body.Error.Fields["title"])
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("malformed request id is replaced", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ok", nil)
		req.Header.Set("X-Request-ID", "bad id\twith spaces")
		r.ServeHTTP(w, req)

		got := w.Header().Get("X-Request-ID")
		assert.NotEqual(t, "bad id\twith spaces", got)
		_, err := uuid.Parse(got)
		assert.NoError(t, err)
	})
}

func TestNewPagination(t *testing.T) {
	assert.Equal(t, &Pagination{Page: 1, Limit: 20, Total: 41, TotalPages: 3, HasNext: true}, NewPagination(1, 20, 41))
	assert.False(t, NewPagination(3, 20, 41).HasNext)
	assert.Equal(t, 0, NewPagination(1, 20, 0).TotalPages)
	assert.False(t, NewPagination(1, 20, 0).HasNext)
	assert.Equal(t, 0, NewPagination(1, 0, 10).TotalPages)
}

func TestMetadataTimestampIsUTC(t *testing.T) {
	orig := now
	t.Cleanup(func() { now = orig })
	now = func() time.Time {
		return time.Date(2026, 3, 1, 14, 30, 0, 0, time.FixedZone("WITA", 8*3600))
	}

	r := gin.New()
	r.GET("/ok", func(c *gin.Context) { Success(c, http.StatusOK, nil) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))

	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "2026-03-01T06:30:00Z", body.Metadata.Timestamp)
	_, err := uuid.Parse(body.Metadata.RequestID)
	assert.NoError(t, err, "request id is generated when the middleware is absent")
}
