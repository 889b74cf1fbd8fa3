package handlers

import (
	"context"
	"net/http"

	"go-qr-relay/internal/logger"
	"go-qr-relay/internal/models"

	"github.com/gin-gonic/gin"
)

// TableLister lists seating tables from the POS.
type TableLister interface {
	ListTables(ctx context.Context) ([]models.Table, error)
}

type TableHandler struct {
	tables TableLister
	log    *logger.StructuredLogger
}

func NewTableHandler(tables TableLister, log *logger.StructuredLogger) *TableHandler {
	return &TableHandler{tables: tables, log: log}
}

// ListTables proxies the POS table list for the table picker.
func (h *TableHandler) ListTables(c *gin.Context) {
	tables, err := h.tables.ListTables(c.Request.Context())
	if err != nil {
		h.log.WithRequestContext(c).Error("Error fetching tables", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tables from Revel"})
		return
	}

	if tables == nil {
		tables = []models.Table{}
	}
	c.JSON(http.StatusOK, gin.H{"tables": tables})
}
