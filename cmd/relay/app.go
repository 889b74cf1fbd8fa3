package main

import (
	"fmt"
	"time"

	"go-qr-relay/internal/config"
	"go-qr-relay/internal/deeplink"
	"go-qr-relay/internal/handlers"
	"go-qr-relay/internal/logger"
	"go-qr-relay/internal/middleware"
	"go-qr-relay/internal/monitoring"
	"go-qr-relay/internal/printer"
	"go-qr-relay/internal/revel"
	"go-qr-relay/internal/routes"
	"go-qr-relay/internal/scan"
	"go-qr-relay/internal/services"

	"github.com/gin-gonic/gin"
)

const (
	serviceName   = "qr-print-relay"
	version       = "1.0.0"
	slowThreshold = 2 * time.Second

	maxTrackedFailures = 50
	failureRetention   = 24 * time.Hour
)

// app holds the wired components shared by every command.
type app struct {
	cfg       *config.Config
	log       *logger.StructuredLogger
	transport *printer.Transport
	failures  *monitoring.ErrorTracker
	links     deeplink.Generator
	prints    *services.PrintService
	tables    *revel.Client
}

func newApp(cfg *config.Config) (*app, error) {
	log, err := logger.NewStructuredLogger(logger.LoggerConfig{
		Level:        logger.ParseLevel(cfg.Logging.Level),
		Service:      serviceName,
		Version:      version,
		Environment:  cfg.Server.Environment,
		OutputPath:   cfg.Logging.File,
		EnableCaller: cfg.Server.Environment != "production",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	transport := printer.NewTransport(printer.Config{
		Address:   cfg.Printer.Address(),
		Timeout:   cfg.Printer.Timeout(),
		Serialize: cfg.Printer.SerializeJobs,
	})

	failures := monitoring.NewErrorTracker(maxTrackedFailures, failureRetention)
	sender := monitoring.TrackedSender{Sender: transport, Address: transport.Address(), Tracker: failures}

	return &app{
		cfg:       cfg,
		log:       log,
		transport: transport,
		failures:  failures,
		links:     deeplink.Generator{Host: cfg.Bot.Host, Bot: cfg.Bot.Username},
		prints:    services.NewPrintService(cfg.Ticket.Layout(), sender, cfg.Bot.BotURL(), log),
		tables:    revel.New(cfg.Revel.BaseURL, cfg.Revel.APIKey, cfg.Revel.APISecret, revel.WithTimeout(cfg.Revel.Timeout())),
	}, nil
}

// router builds the HTTP surface.
func (a *app) router() *gin.Engine {
	gin.SetMode(a.cfg.Server.Mode)

	barcodes := services.NewBarcodeService(a.cfg.QR.ImageSize)
	monitor := middleware.NewPerformanceMonitor(slowThreshold, a.log)

	h := routes.Handlers{
		Print:   handlers.NewPrintHandler(a.prints, a.links),
		Status:  handlers.NewStatusHandler(a.transport, monitor, a.failures),
		Tables:  handlers.NewTableHandler(a.tables, a.log),
		Barcode: handlers.NewBarcodeHandler(barcodes, services.NewPDFService(a.cfg.Ticket.Layout(), barcodes, a.log), a.links),
		Scan:    routes.NewScanFallbackHandler(scan.NewServerDecoder(time.Local)),
	}
	return routes.SetupRouter(h, a.log, monitor, a.cfg.CORS.AllowedOrigins)
}

func (a *app) close() {
	_ = a.log.Close()
}
