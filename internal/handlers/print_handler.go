package handlers

import (
	"net/http"

	"go-qr-relay/internal/deeplink"
	"go-qr-relay/internal/models"
	"go-qr-relay/internal/services"

	"github.com/gin-gonic/gin"
)

type PrintHandler struct {
	printService *services.PrintService
	links        deeplink.Generator
}

func NewPrintHandler(printService *services.PrintService, links deeplink.Generator) *PrintHandler {
	return &PrintHandler{
		printService: printService,
		links:        links,
	}
}

// PrintQR prints a ticket for a caller-supplied link.
// POST /print-qr {"data": "...", "tableName": "..."}
func (h *PrintHandler) PrintQR(c *gin.Context) {
	var job models.PrintJob
	if err := c.ShouldBindJSON(&job); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": services.MissingFieldsMessage})
		return
	}

	if err := h.printService.Print(c.Request.Context(), job); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.PrintResponse{
		Success: true,
		Message: "QR code printed successfully",
	})
}

// TestPrinter prints the fixed self-test ticket.
func (h *PrintHandler) TestPrinter(c *gin.Context) {
	if err := h.printService.PrintTestPage(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.PrintResponse{
		Success: true,
		Message: "Test print sent successfully",
	})
}

// PrintForTable issues a fresh link for a table and prints it.
// POST /api/tables/print {"tableName": "..."}
func (h *PrintHandler) PrintForTable(c *gin.Context) {
	var req models.TablePrintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing tableName"})
		return
	}

	link := h.links.ForTable(req.TableName).String()
	job := models.PrintJob{Data: link, TableName: req.TableName}
	if err := h.printService.Print(c.Request.Context(), job); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.PrintResponse{
		Success: true,
		Message: "QR code printed successfully",
		Link:    link,
	})
}
