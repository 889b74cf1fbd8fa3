package routes

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go-qr-relay/internal/deeplink"
	"go-qr-relay/internal/escpos"
	"go-qr-relay/internal/handlers"
	"go-qr-relay/internal/logger"
	"go-qr-relay/internal/middleware"
	"go-qr-relay/internal/models"
	"go-qr-relay/internal/monitoring"
	"go-qr-relay/internal/printer"
	"go-qr-relay/internal/scan"
	"go-qr-relay/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type staticTables struct{}

func (staticTables) ListTables(ctx context.Context) ([]models.Table, error) {
	return []models.Table{{ID: 7, Name: "Bar 1"}}, nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	log := logger.NewWriterLogger(io.Discard, logger.DEBUG, "test")
	links := deeplink.Generator{Host: "t.me", Bot: "club_krush_bot"}
	transport := printer.NewTransport(printer.Config{Address: "127.0.0.1:9", Timeout: time.Second})
	barcodes := services.NewBarcodeService(300)
	monitor := middleware.NewPerformanceMonitor(time.Second, log)

	h := Handlers{
		Print:   handlers.NewPrintHandler(services.NewPrintService(escpos.DefaultLayout(), transport, "https://t.me/club_krush_bot", log), links),
		Status:  handlers.NewStatusHandler(transport, monitor, monitoring.NewErrorTracker(10, time.Hour)),
		Tables:  handlers.NewTableHandler(staticTables{}, log),
		Barcode: handlers.NewBarcodeHandler(barcodes, services.NewPDFService(escpos.DefaultLayout(), barcodes, log), links),
		Scan:    NewScanFallbackHandler(scan.NewServerDecoder(time.Local)),
	}
	return SetupRouter(h, log, monitor, []string{"*"})
}

func TestSetupRouter_Routes(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/api/stats", http.StatusOK},
		{http.MethodGet, "/api/tables", http.StatusOK},
		{http.MethodGet, "/api/qr?table=A", http.StatusOK},
		{http.MethodGet, "/api/scan/status", http.StatusOK},
		{http.MethodGet, "/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))

			assert.Equal(t, tt.want, w.Code)
			assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		})
	}
}

func TestSetupRouter_Preflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/print-qr", nil)
	req.Header.Set("Origin", "http://kiosk.local")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestScanFallback_Decode(t *testing.T) {
	router := newTestRouter(t)

	pngBytes, err := qrcode.Encode("https://t.me/club_krush_bot?start=tableA1_2025-10-20_19-34-52", qrcode.Medium, 256)
	require.NoError(t, err)
	valid := base64.StdEncoding.EncodeToString(pngBytes)

	truncated, err := qrcode.Encode("x", qrcode.Medium, 64)
	require.NoError(t, err)

	white := image.NewGray(image.Rect(0, 0, 64, 64))
	for i := range white.Pix {
		white.Pix[i] = 0xff
	}
	var blank bytes.Buffer
	require.NoError(t, png.Encode(&blank, white))

	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "table link", body: `{"imageData":"data:image/png;base64,` + valid + `"}`, want: http.StatusOK},
		{name: "missing image", body: `{}`, want: http.StatusBadRequest},
		{name: "not an image", body: `{"imageData":"` + base64.StdEncoding.EncodeToString([]byte("text")) + `"}`, want: http.StatusBadRequest},
		{name: "truncated png", body: `{"imageData":"` + base64.StdEncoding.EncodeToString(truncated[:len(truncated)/2]) + `"}`, want: http.StatusBadRequest},
		{name: "no code", body: `{"imageData":"` + base64.StdEncoding.EncodeToString(blank.Bytes()) + `"}`, want: http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/scan/decode", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
		})
	}

	t.Run("link details", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/scan/decode", strings.NewReader(`{"imageData":"`+valid+`"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		var resp scan.DecodeResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Link)
		assert.Equal(t, "tableA1", resp.Link.TableIdentifier)
	})
}
