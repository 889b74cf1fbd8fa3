// Package escpos builds command streams for line-mode receipt printers that speak
// the ESC/POS control language (Epson TM-T82X and compatibles).
package escpos

import (
	"bytes"
	"errors"
	"fmt"
)

// Control bytes
const (
	ESC = 0x1B
	GS  = 0x1D
	LF  = 0x0A
)

// MaxQRPayload is the largest payload the QR store function accepts
// (pL + pH*256 must not exceed 7092, which includes the 3-byte sub-header).
const MaxQRPayload = 7089

// qrStoreOverhead is the "cn fn m" sub-header of GS ( k <Function 180>.
const qrStoreOverhead = 3

// ErrorCorrection selects the QR error-correction level (GS ( k <Function 169>).
type ErrorCorrection byte

const (
	ErrorCorrectionL ErrorCorrection = 0x30
	ErrorCorrectionM ErrorCorrection = 0x31
	ErrorCorrectionQ ErrorCorrection = 0x32
	ErrorCorrectionH ErrorCorrection = 0x33
)

// ParseErrorCorrection maps "L", "M", "Q" or "H" to a level.
func ParseErrorCorrection(level string) (ErrorCorrection, error) {
	switch level {
	case "L", "l":
		return ErrorCorrectionL, nil
	case "M", "m":
		return ErrorCorrectionM, nil
	case "Q", "q":
		return ErrorCorrectionQ, nil
	case "H", "h":
		return ErrorCorrectionH, nil
	default:
		return 0, fmt.Errorf("unknown QR error correction level %q", level)
	}
}

var (
	ErrEmptyPayload    = errors.New("QR payload is empty")
	ErrPayloadTooLarge = fmt.Errorf("QR payload exceeds %d bytes", MaxQRPayload)
)

// Layout holds the fixed text and QR parameters of a table ticket.
type Layout struct {
	VenueName       string
	Instruction     string
	FooterHandle    string
	ThankYou        string
	ModuleSize      byte
	ErrorCorrection ErrorCorrection
}

// DefaultLayout returns the layout printed by the venue's original relay.
func DefaultLayout() Layout {
	return Layout{
		VenueName:       "Club Krush",
		Instruction:     "Scan to order",
		FooterHandle:    "@club_krush_bot",
		ThankYou:        "Thank you for dining with us!",
		ModuleSize:      8,
		ErrorCorrection: ErrorCorrectionL,
	}
}

// Ticket is the variable part of one print.
type Ticket struct {
	TableName string
	Data      string
}

// Encode assembles the complete command stream for a ticket. The command order
// is positional on the device and must not change.
func (l Layout) Encode(t Ticket) ([]byte, error) {
	if len(t.Data) == 0 {
		return nil, ErrEmptyPayload
	}
	if len(t.Data) > MaxQRPayload {
		return nil, ErrPayloadTooLarge
	}

	var b Builder
	b.Initialize()
	b.AlignCenter()
	b.Line(l.VenueName)
	b.Line("Table " + t.TableName)
	b.Line(l.Instruction)
	b.Feed(1)
	b.QRModel2()
	b.QRModuleSize(l.ModuleSize)
	b.QRErrorCorrection(l.ErrorCorrection)
	b.QRStore([]byte(t.Data))
	b.QRPrint()
	b.Feed(2)
	b.Line(l.FooterHandle)
	b.Line(l.ThankYou)
	b.Cut()
	return b.Bytes(), nil
}

// Builder appends ESC/POS commands to an in-memory buffer. The zero value is
// ready to use.
type Builder struct {
	buf bytes.Buffer
}

// Initialize emits ESC @.
func (b *Builder) Initialize() {
	b.buf.Write([]byte{ESC, '@'})
}

// AlignCenter emits ESC a 1.
func (b *Builder) AlignCenter() {
	b.buf.Write([]byte{ESC, 'a', 0x01})
}

// Line writes text verbatim followed by LF.
func (b *Builder) Line(text string) {
	b.buf.WriteString(text)
	b.buf.WriteByte(LF)
}

// Feed emits n line feeds.
func (b *Builder) Feed(n int) {
	for i := 0; i < n; i++ {
		b.buf.WriteByte(LF)
	}
}

// QRModel2 emits GS ( k <Function 165> selecting model 2.
func (b *Builder) QRModel2() {
	b.qr([]byte{'1', 'A', '2', 0x00})
}

// QRModuleSize emits GS ( k <Function 167>.
func (b *Builder) QRModuleSize(size byte) {
	b.qr([]byte{'1', 'C', size})
}

// QRErrorCorrection emits GS ( k <Function 169>.
func (b *Builder) QRErrorCorrection(level ErrorCorrection) {
	b.qr([]byte{'1', 'E', byte(level)})
}

// QRStore emits GS ( k <Function 180>. The length field counts the payload
// plus the 3-byte "1 P 0" sub-header.
func (b *Builder) QRStore(payload []byte) {
	n := len(payload) + qrStoreOverhead
	b.buf.Write([]byte{GS, '(', 'k', byte(n), byte(n >> 8), '1', 'P', '0'})
	b.buf.Write(payload)
}

// QRPrint emits GS ( k <Function 181>, printing the stored symbol.
func (b *Builder) QRPrint() {
	b.qr([]byte{'1', 'Q', '0'})
}

// Cut emits GS V 0 (full cut).
func (b *Builder) Cut() {
	b.buf.Write([]byte{GS, 'V', 0x00})
}

// Bytes returns the assembled stream.
func (b *Builder) Bytes() []byte {
	return b.buf.Bytes()
}

func (b *Builder) qr(params []byte) {
	n := len(params)
	b.buf.Write([]byte{GS, '(', 'k', byte(n), byte(n >> 8)})
	b.buf.Write(params)
}
