package scan

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"
	"time"

	"go-qr-relay/internal/deeplink"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// ErrNoCode means the image decoded but contained no readable QR code.
var ErrNoCode = errors.New("no QR code found")

// DecodeRequest represents a server-side decode request
type DecodeRequest struct {
	ImageData string `json:"imageData" binding:"required"` // Base64 PNG or JPEG, data URL prefix allowed
}

// DecodeResponse represents a server-side decode response
type DecodeResponse struct {
	Success        bool      `json:"success"`
	Result         *Result   `json:"result,omitempty"`
	Link           *LinkInfo `json:"link,omitempty"`
	Error          string    `json:"error,omitempty"`
	ProcessingTime int64     `json:"processingTime"` // milliseconds
}

// Result represents a decode result
type Result struct {
	Text         string  `json:"text"`
	Format       string  `json:"format"`
	CornerPoints []Point `json:"cornerPoints"`
}

// LinkInfo describes a decoded table start link.
type LinkInfo struct {
	Bot             string    `json:"bot"`
	TableIdentifier string    `json:"tableIdentifier"`
	IssuedAt        time.Time `json:"issuedAt"`
}

// Point represents a 2D coordinate
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ServerDecoder reads QR codes from uploaded images, used to check a printed
// or generated code without a phone.
type ServerDecoder struct {
	reader   gozxing.Reader
	location *time.Location
}

// NewServerDecoder creates a decoder; link timestamps are read in loc.
func NewServerDecoder(loc *time.Location) *ServerDecoder {
	if loc == nil {
		loc = time.Local
	}
	return &ServerDecoder{
		reader:   qrcode.NewQRCodeReader(),
		location: loc,
	}
}

// Decode processes a decode request. The returned error is ErrNoCode when the
// image holds no QR code and a descriptive error when the image is unreadable.
func (d *ServerDecoder) Decode(req *DecodeRequest) (*DecodeResponse, error) {
	startTime := time.Now()
	response := &DecodeResponse{}

	img, err := d.decodeImageData(req.ImageData)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	result, err := d.DecodeImage(img)
	response.ProcessingTime = time.Since(startTime).Milliseconds()
	if err != nil {
		response.Error = err.Error()
		return response, err
	}

	response.Success = true
	response.Result = &Result{
		Text:         result.GetText(),
		Format:       "QR_CODE",
		CornerPoints: extractCornerPoints(result),
	}
	if link, err := deeplink.Parse(result.GetText(), d.location); err == nil {
		response.Link = &LinkInfo{
			Bot:             link.Bot,
			TableIdentifier: link.TableIdentifier,
			IssuedAt:        link.IssuedAt,
		}
	}
	return response, nil
}

// DecodeImage finds a QR code in img.
func (d *ServerDecoder) DecodeImage(img image.Image) (*gozxing.Result, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return nil, fmt.Errorf("failed to create bitmap: %w", err)
	}

	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}
	result, err := d.reader.Decode(bmp, hints)
	if err != nil || result == nil {
		return nil, ErrNoCode
	}
	return result, nil
}

// decodeImageData decodes base64 image data
func (d *ServerDecoder) decodeImageData(imageData string) (image.Image, error) {
	// Remove data URL prefix if present
	if strings.HasPrefix(imageData, "data:") {
		comma := strings.IndexByte(imageData, ',')
		if comma < 0 {
			return nil, errors.New("malformed data URL")
		}
		imageData = imageData[comma+1:]
	}

	data, err := base64.StdEncoding.DecodeString(imageData)
	if err != nil {
		return nil, fmt.Errorf("base64 decode failed: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("image decode failed: %w", err)
	}
	return img, nil
}

// extractCornerPoints extracts corner points from decode result
func extractCornerPoints(result *gozxing.Result) []Point {
	resultPoints := result.GetResultPoints()
	corners := make([]Point, len(resultPoints))
	for i, p := range resultPoints {
		corners[i] = Point{
			X: float64(p.GetX()),
			Y: float64(p.GetY()),
		}
	}
	return corners
}
