package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go-qr-relay/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestCORSMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		allowed    []string
		origin     string
		wantOrigin string
	}{
		{name: "wildcard", allowed: []string{"*"}, origin: "http://kiosk.local", wantOrigin: "*"},
		{name: "listed origin", allowed: []string{"http://kiosk.local"}, origin: "http://kiosk.local", wantOrigin: "http://kiosk.local"},
		{name: "unlisted origin", allowed: []string{"http://kiosk.local"}, origin: "http://evil.example", wantOrigin: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(CORSMiddleware(tt.allowed))
			router.POST("/print-qr", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(http.MethodPost, "/print-qr", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.wantOrigin, w.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	called := false
	router := gin.New()
	router.Use(CORSMiddleware([]string{"*"}))
	router.POST("/print-qr", func(c *gin.Context) { called = true })

	req := httptest.NewRequest(http.MethodOptions, "/print-qr", nil)
	req.Header.Set("Origin", "http://kiosk.local")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Content-Type")
	assert.False(t, called)
}

func TestPerformanceMonitor(t *testing.T) {
	pm := NewPerformanceMonitor(time.Second, logger.NewWriterLogger(io.Discard, logger.DEBUG, "test"))

	router := gin.New()
	router.Use(pm.PerformanceMiddleware())
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/test-printer", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	router.POST("/print-qr", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, r := range []struct{ method, path string }{
		{http.MethodGet, "/health"},
		{http.MethodPost, "/print-qr"},
		{http.MethodPost, "/print-qr"},
		{http.MethodGet, "/test-printer"},
		{http.MethodGet, "/missing"},
	} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(r.method, r.path, nil))
	}

	metrics := pm.GetMetrics()
	assert.Equal(t, int64(3), metrics.RequestCount)
	assert.InDelta(t, 100.0/3, metrics.ErrorRate, 0.01)
	assert.NotContains(t, metrics.EndpointStats, "GET /health")

	printStats := metrics.EndpointStats["POST /print-qr"]
	assert.Equal(t, int64(2), printStats.Count)
	assert.Equal(t, int64(0), printStats.ErrorCount)
	assert.Equal(t, int64(1), metrics.EndpointStats["GET /test-printer"].ErrorCount)

	top := pm.GetTopSlowEndpoints(1)
	require.Len(t, top, 1)
}

func TestRequestSizeLimitMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RequestSizeLimitMiddleware(16))
	router.POST("/api/scan/decode", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/scan/decode", strings.NewReader("small")))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/scan/decode", strings.NewReader(strings.Repeat("x", 64))))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.5 KB", formatBytes(1536))
	assert.Equal(t, "2.0 MB", formatBytes(2*1024*1024))
}
