package routes

import (
	"go-qr-relay/internal/handlers"
	"go-qr-relay/internal/logger"
	"go-qr-relay/internal/middleware"

	"github.com/gin-gonic/gin"
)

// Handlers groups everything the router serves.
type Handlers struct {
	Print   *handlers.PrintHandler
	Status  *handlers.StatusHandler
	Tables  *handlers.TableHandler
	Barcode *handlers.BarcodeHandler
	Scan    *ScanFallbackHandler
}

// SetupRouter builds the relay's HTTP router. The print and health routes
// keep the paths existing kiosks and front ends already call.
func SetupRouter(h Handlers, log *logger.StructuredLogger, monitor *middleware.PerformanceMonitor, allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(handlers.GlobalErrorHandler(log))
	r.Use(log.LoggingMiddleware())
	r.Use(middleware.CORSMiddleware(allowedOrigins))
	r.Use(monitor.PerformanceMiddleware())
	r.NoRoute(handlers.NotFoundHandler())

	r.POST("/print-qr", h.Print.PrintQR)
	r.GET("/health", h.Status.Health)
	r.GET("/test-printer", h.Print.TestPrinter)

	api := r.Group("/api")
	{
		api.GET("/stats", h.Status.Stats)

		api.GET("/tables", h.Tables.ListTables)
		api.POST("/tables/print", h.Print.PrintForTable)

		api.GET("/qr", h.Barcode.GenerateTableQR)
		api.GET("/qr.png", h.Barcode.GenerateTableLabel)
		api.GET("/qr.pdf", h.Barcode.GenerateTablePDF)
	}

	SetupScanFallbackRoutes(r, h.Scan)

	return r
}
