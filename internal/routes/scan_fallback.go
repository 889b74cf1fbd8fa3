package routes

import (
	"errors"
	"net/http"

	"go-qr-relay/internal/middleware"
	"go-qr-relay/internal/scan"

	"github.com/gin-gonic/gin"
)

// maxDecodeBody caps uploaded images; base64 phone photos stay well below it.
const maxDecodeBody = 8 << 20

// ScanFallbackHandler decodes QR codes from uploaded images so staff can
// check a printed ticket without a phone.
type ScanFallbackHandler struct {
	decoder *scan.ServerDecoder
}

// NewScanFallbackHandler creates a new scan fallback handler
func NewScanFallbackHandler(decoder *scan.ServerDecoder) *ScanFallbackHandler {
	return &ScanFallbackHandler{decoder: decoder}
}

// DecodeFallback handles server-side decode requests
func (h *ScanFallbackHandler) DecodeFallback(c *gin.Context) {
	var req scan.DecodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Image data is required"})
		return
	}

	response, err := h.decoder.Decode(&req)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, response)
	case errors.Is(err, scan.ErrNoCode):
		// Valid image, but no QR code in it
		c.JSON(http.StatusUnprocessableEntity, response)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}

// GetDecoderStatus reports what the decoder accepts
func (h *ScanFallbackHandler) GetDecoderStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":           "ready",
		"supportedFormats": []string{"QR_CODE"},
		"imageTypes":       []string{"image/png", "image/jpeg"},
	})
}

// SetupScanFallbackRoutes sets up the fallback decode routes
func SetupScanFallbackRoutes(r *gin.Engine, handler *ScanFallbackHandler) {
	api := r.Group("/api/scan")
	{
		api.POST("/decode", middleware.RequestSizeLimitMiddleware(maxDecodeBody), handler.DecodeFallback)
		api.GET("/status", handler.GetDecoderStatus)
	}
}
