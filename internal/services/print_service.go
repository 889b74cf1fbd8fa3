package services

import (
	"context"
	"errors"
	"time"

	"go-qr-relay/internal/escpos"
	"go-qr-relay/internal/logger"
	"go-qr-relay/internal/models"
)

// MissingFieldsMessage is returned to clients that omit data or tableName.
const MissingFieldsMessage = "Missing data or tableName"

// TestTableName labels the operator self-test ticket.
const TestTableName = "TEST"

// ValidationError is a client input error. Jobs that fail validation never
// reach the printer.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsValidationError reports whether err is a client input error.
func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// Sender delivers a command stream to a printer.
type Sender interface {
	Send(ctx context.Context, buf []byte) error
}

// PrintService turns print jobs into ESC/POS streams and hands them to the printer.
type PrintService struct {
	layout   escpos.Layout
	sender   Sender
	testData string
	log      *logger.StructuredLogger
}

// NewPrintService creates a print service. testData is the payload of the
// self-test ticket.
func NewPrintService(layout escpos.Layout, sender Sender, testData string, log *logger.StructuredLogger) *PrintService {
	return &PrintService{
		layout:   layout,
		sender:   sender,
		testData: testData,
		log:      log,
	}
}

// Validate checks a job without printing it.
func Validate(job models.PrintJob) error {
	if job.Data == "" || job.TableName == "" {
		return &ValidationError{Message: MissingFieldsMessage}
	}
	if len(job.Data) > escpos.MaxQRPayload {
		return &ValidationError{Message: escpos.ErrPayloadTooLarge.Error()}
	}
	return nil
}

// Print validates, encodes and sends one job, returning once the printer
// connection has accepted the whole buffer. Cancelling ctx does not abort a
// dispatched job; only the transport's own timeout does.
func (s *PrintService) Print(ctx context.Context, job models.PrintJob) error {
	if err := Validate(job); err != nil {
		return err
	}

	buf, err := s.layout.Encode(escpos.Ticket{TableName: job.TableName, Data: job.Data})
	if err != nil {
		return &ValidationError{Message: err.Error()}
	}

	start := time.Now()
	err = s.sender.Send(context.WithoutCancel(ctx), buf)

	fields := map[string]interface{}{
		"table":    job.TableName,
		"data":     job.Data,
		"bytes":    len(buf),
		"duration": time.Since(start).String(),
	}
	if err != nil {
		s.log.LogPrintEvent("Print job failed", err, fields)
		return err
	}
	s.log.LogPrintEvent("Print job sent", nil, fields)
	return nil
}

// PrintTestPage prints the fixed self-test ticket.
func (s *PrintService) PrintTestPage(ctx context.Context) error {
	return s.Print(ctx, models.PrintJob{Data: s.testData, TableName: TestTableName})
}
