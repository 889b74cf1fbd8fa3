package handlers

import (
	"mime"
	"net/http"

	"go-qr-relay/internal/deeplink"
	"go-qr-relay/internal/models"
	"go-qr-relay/internal/services"

	"github.com/gin-gonic/gin"
)

type BarcodeHandler struct {
	barcodeService *services.BarcodeService
	pdfService     *services.PDFService
	links          deeplink.Generator
}

func NewBarcodeHandler(barcodeService *services.BarcodeService, pdfService *services.PDFService, links deeplink.Generator) *BarcodeHandler {
	return &BarcodeHandler{
		barcodeService: barcodeService,
		pdfService:     pdfService,
		links:          links,
	}
}

// GenerateTableQR issues a fresh link for a table and returns it with its QR
// code as a data URL.
func (h *BarcodeHandler) GenerateTableQR(c *gin.Context) {
	tableName := c.Query("table")
	if tableName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Table name is required"})
		return
	}

	link := h.links.ForTable(tableName)
	qrCode, err := h.barcodeService.GenerateQRDataURL(link.String())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, models.QRCodeResponse{
		TableName:  tableName,
		Link:       link.String(),
		StartParam: link.StartParam(),
		QRCode:     qrCode,
	})
}

// GenerateTableLabel returns a captioned PNG of a table's QR code.
func (h *BarcodeHandler) GenerateTableLabel(c *gin.Context) {
	tableName, data, ok := h.ticketParams(c)
	if !ok {
		return
	}

	labelBytes, err := h.barcodeService.GenerateQRLabel(data, "Table "+tableName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	identifier := deeplink.TableIdentifier(tableName)
	c.Header("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": identifier + "_qr.png"}))
	c.Data(http.StatusOK, "image/png", labelBytes)
}

// GenerateTablePDF returns a receipt-sized PDF ticket for the browser print
// dialog, used when the thermal printer is unreachable.
func (h *BarcodeHandler) GenerateTablePDF(c *gin.Context) {
	tableName, data, ok := h.ticketParams(c)
	if !ok {
		return
	}

	pdfBytes, err := h.pdfService.GenerateTicketPDF(tableName, data)
	if err != nil {
		respondError(c, err)
		return
	}

	identifier := deeplink.TableIdentifier(tableName)
	c.Header("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": identifier + "_ticket.pdf"}))
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}

// ticketParams reads ?table= and the optional ?data=, issuing a fresh link
// when no data is given.
func (h *BarcodeHandler) ticketParams(c *gin.Context) (string, string, bool) {
	tableName := c.Query("table")
	if tableName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Table name is required"})
		return "", "", false
	}

	data := c.Query("data")
	if data == "" {
		data = h.links.ForTable(tableName).String()
	}
	return tableName, data, true
}
