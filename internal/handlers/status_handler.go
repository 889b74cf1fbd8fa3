package handlers

import (
	"net/http"

	"go-qr-relay/internal/middleware"
	"go-qr-relay/internal/models"
	"go-qr-relay/internal/monitoring"
	"go-qr-relay/internal/printer"

	"github.com/gin-gonic/gin"
)

// PrinterStatus is the part of the transport the status endpoints read.
type PrinterStatus interface {
	Address() string
	Stats() printer.Stats
}

type StatusHandler struct {
	printer  PrinterStatus
	monitor  *middleware.PerformanceMonitor
	failures *monitoring.ErrorTracker
}

func NewStatusHandler(printer PrinterStatus, monitor *middleware.PerformanceMonitor, failures *monitoring.ErrorTracker) *StatusHandler {
	return &StatusHandler{printer: printer, monitor: monitor, failures: failures}
}

// Health reports liveness without touching the printer.
func (h *StatusHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:  "OK",
		Message: "Print relay server is running",
		Printer: h.printer.Address(),
	})
}

// Stats reports request metrics and print outcomes since start.
func (h *StatusHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"printer": gin.H{
			"address":  h.printer.Address(),
			"jobs":     h.printer.Stats(),
			"failures": h.failures.GetErrorSummary(),
			"recent":   h.failures.GetErrors(10),
		},
		"requests":       h.monitor.GetMetrics(),
		"slow_endpoints": h.monitor.GetTopSlowEndpoints(5),
	})
}
