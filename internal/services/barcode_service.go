package services

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/skip2/go-qrcode"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	captionScale  = 2
	captionMargin = 8
)

type BarcodeService struct {
	qrSize int
}

func NewBarcodeService(qrSize int) *BarcodeService {
	return &BarcodeService{qrSize: qrSize}
}

// QRSize is the default edge length of generated QR images in pixels.
func (s *BarcodeService) QRSize() int {
	return s.qrSize
}

func (s *BarcodeService) GenerateQRCode(data string, size int) ([]byte, error) {
	pngBytes, err := qrcode.Encode(data, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to create QR code: %w", err)
	}

	return pngBytes, nil
}

// GenerateQRDataURL returns the QR code as a data URL an <img> tag can show.
func (s *BarcodeService) GenerateQRDataURL(data string) (string, error) {
	pngBytes, err := s.GenerateQRCode(data, s.qrSize)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes), nil
}

// GenerateQRLabel renders the QR code with a caption underneath, for printing
// from a browser when the receipt printer is unavailable.
func (s *BarcodeService) GenerateQRLabel(data, caption string) ([]byte, error) {
	qr, err := qrcode.New(data, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("failed to create QR code: %w", err)
	}
	qrImg := qr.Image(s.qrSize)
	qrSize := qrImg.Bounds().Dx()

	face := basicfont.Face7x13
	textWidth := font.MeasureString(face, caption).Ceil()
	lineHeight := face.Metrics().Height.Ceil()

	// Draw the caption at 1x, then scale it up so it stays legible next to the code.
	text := image.NewRGBA(image.Rect(0, 0, textWidth+2, lineHeight+2))
	draw.Draw(text, text.Bounds(), image.White, image.Point{}, draw.Src)
	d := &font.Drawer{
		Dst:  text,
		Src:  image.Black,
		Face: face,
		Dot:  fixed.P(1, face.Metrics().Ascent.Ceil()+1),
	}
	d.DrawString(caption)

	scaledW := text.Bounds().Dx() * captionScale
	scaledH := text.Bounds().Dy() * captionScale

	width := qrSize
	if scaledW+2*captionMargin > width {
		width = scaledW + 2*captionMargin
	}
	height := qrSize + scaledH + captionMargin

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{color.White}, image.Point{}, draw.Src)

	qrX := (width - qrSize) / 2
	draw.Draw(img, image.Rect(qrX, 0, qrX+qrSize, qrSize), qrImg, qrImg.Bounds().Min, draw.Src)

	textX := (width - scaledW) / 2
	textRect := image.Rect(textX, qrSize, textX+scaledW, qrSize+scaledH)
	xdraw.NearestNeighbor.Scale(img, textRect, text, text.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode label as PNG: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *BarcodeService) GenerateBarcode(data string) ([]byte, error) {
	// Create Code128 barcode
	bc, err := code128.Encode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode barcode: %w", err)
	}

	// Scale the barcode to reasonable size
	width := 400
	if bc.Bounds().Dx() > width {
		width = bc.Bounds().Dx()
	}
	scaledBC, err := barcode.Scale(bc, width, 80)
	if err != nil {
		return nil, fmt.Errorf("failed to scale barcode: %w", err)
	}

	// Scaled codes use 16-bit gray, which PDF embedding rejects
	img := image.NewGray(scaledBC.Bounds())
	draw.Draw(img, img.Bounds(), scaledBC, scaledBC.Bounds().Min, draw.Src)

	var buf bytes.Buffer
	err = png.Encode(&buf, img)
	if err != nil {
		return nil, fmt.Errorf("failed to encode barcode as PNG: %w", err)
	}

	return buf.Bytes(), nil
}
