package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"go-qr-relay/internal/escpos"
	"go-qr-relay/internal/logger"
	"go-qr-relay/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	calls [][]byte
	ctxs  []context.Context
	err   error
}

func (f *fakeSender) Send(ctx context.Context, buf []byte) error {
	f.calls = append(f.calls, append([]byte(nil), buf...))
	f.ctxs = append(f.ctxs, ctx)
	return f.err
}

func newTestPrintService(sender Sender) *PrintService {
	log := logger.NewWriterLogger(io.Discard, logger.DEBUG, "test")
	return NewPrintService(escpos.DefaultLayout(), sender, "https://t.me/club_krush_bot", log)
}

func TestPrintService_Print(t *testing.T) {
	sender := &fakeSender{}
	service := newTestPrintService(sender)

	job := models.PrintJob{Data: "https://t.me/bot?start=tableA_2025-01-01_00-00-00", TableName: "A"}
	require.NoError(t, service.Print(context.Background(), job))

	require.Len(t, sender.calls, 1)
	want, err := escpos.DefaultLayout().Encode(escpos.Ticket{TableName: "A", Data: job.Data})
	require.NoError(t, err)
	assert.Equal(t, want, sender.calls[0])
}

func TestPrintService_Print_Validation(t *testing.T) {
	tests := []struct {
		name    string
		job     models.PrintJob
		message string
	}{
		{name: "missing data", job: models.PrintJob{TableName: "A"}, message: MissingFieldsMessage},
		{name: "missing table", job: models.PrintJob{Data: "x"}, message: MissingFieldsMessage},
		{name: "empty job", job: models.PrintJob{}, message: MissingFieldsMessage},
		{name: "oversized payload", job: models.PrintJob{TableName: "A", Data: strings.Repeat("a", escpos.MaxQRPayload+1)}, message: escpos.ErrPayloadTooLarge.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &fakeSender{}
			err := newTestPrintService(sender).Print(context.Background(), tt.job)

			require.Error(t, err)
			assert.True(t, IsValidationError(err))
			assert.Equal(t, tt.message, err.Error())
			assert.Empty(t, sender.calls, "transport must not be invoked")
		})
	}
}

func TestPrintService_Print_TransportFailure(t *testing.T) {
	sender := &fakeSender{err: errors.New("printer connection error (10.0.0.1:9100): refused")}
	err := newTestPrintService(sender).Print(context.Background(), models.PrintJob{Data: "x", TableName: "A"})

	require.Error(t, err)
	assert.False(t, IsValidationError(err))
	assert.Equal(t, sender.err, err)
}

func TestPrintService_Print_IgnoresCallerCancellation(t *testing.T) {
	sender := &fakeSender{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, newTestPrintService(sender).Print(ctx, models.PrintJob{Data: "x", TableName: "A"}))
	require.Len(t, sender.ctxs, 1)
	assert.NoError(t, sender.ctxs[0].Err())
}

func TestPrintService_PrintTestPage(t *testing.T) {
	sender := &fakeSender{}
	require.NoError(t, newTestPrintService(sender).PrintTestPage(context.Background()))

	require.Len(t, sender.calls, 1)
	assert.True(t, bytes.Contains(sender.calls[0], []byte("Table TEST\n")))
	assert.True(t, bytes.Contains(sender.calls[0], []byte("https://t.me/club_krush_bot")))
}
