package services

import (
	"bytes"
	"fmt"

	"go-qr-relay/internal/deeplink"
	"go-qr-relay/internal/escpos"
	"go-qr-relay/internal/logger"

	"github.com/jung-kurt/gofpdf"
)

// Receipt paper geometry in millimetres.
const (
	ticketWidth  = 80.0
	ticketHeight = 170.0
	ticketMargin = 5.0
	qrWidth      = 56.0
)

// PDFService renders table tickets as PDFs for the browser print dialog. The
// layout mirrors the thermal ticket so both paths look alike.
type PDFService struct {
	layout   escpos.Layout
	barcodes *BarcodeService
	log      *logger.StructuredLogger
}

func NewPDFService(layout escpos.Layout, barcodes *BarcodeService, log *logger.StructuredLogger) *PDFService {
	return &PDFService{
		layout:   layout,
		barcodes: barcodes,
		log:      log,
	}
}

// GenerateTicketPDF renders one ticket for tableName encoding data.
func (s *PDFService) GenerateTicketPDF(tableName, data string) ([]byte, error) {
	if tableName == "" || data == "" {
		return nil, &ValidationError{Message: MissingFieldsMessage}
	}

	qrPNG, err := s.barcodes.GenerateQRCode(data, 600)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           gofpdf.SizeType{Wd: ticketWidth, Ht: ticketHeight},
	})
	pdf.SetMargins(ticketMargin, ticketMargin, ticketMargin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle("Table "+tableName, true)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	lineWidth := ticketWidth - 2*ticketMargin

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(lineWidth, 8, tr(s.layout.VenueName), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(lineWidth, 7, tr("Table "+tableName), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(lineWidth, 6, tr(s.layout.Instruction), "", 1, "C", false, 0, "")
	pdf.Ln(3)

	imageOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", imageOpts, bytes.NewReader(qrPNG))
	y := pdf.GetY()
	pdf.ImageOptions("qr", (ticketWidth-qrWidth)/2, y, qrWidth, qrWidth, false, imageOpts, 0, "")
	pdf.SetY(y + qrWidth + 4)

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(lineWidth, 5, tr(s.layout.FooterHandle), "", 1, "C", false, 0, "")
	pdf.CellFormat(lineWidth, 5, tr(s.layout.ThankYou), "", 1, "C", false, 0, "")

	// Staff barcode with the table identifier; names Code128 cannot carry are skipped.
	identifier := deeplink.TableIdentifier(tableName)
	if barcodePNG, err := s.barcodes.GenerateBarcode(identifier); err == nil {
		pdf.Ln(4)
		pdf.RegisterImageOptionsReader("table-barcode", imageOpts, bytes.NewReader(barcodePNG))
		y = pdf.GetY()
		pdf.ImageOptions("table-barcode", ticketMargin+5, y, lineWidth-10, 12, false, imageOpts, 0, "")
		pdf.SetY(y + 13)
		pdf.SetFont("Courier", "", 8)
		pdf.CellFormat(lineWidth, 4, identifier, "", 1, "C", false, 0, "")
	} else {
		s.log.Warn("Skipping table barcode on PDF ticket", map[string]interface{}{
			"table": tableName,
			"error": err.Error(),
		})
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render PDF ticket: %w", err)
	}
	return buf.Bytes(), nil
}
