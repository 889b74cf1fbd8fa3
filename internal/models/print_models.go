package models

// PrintJob is one print request. It lives for a single HTTP request and is
// never stored.
type PrintJob struct {
	Data      string `json:"data" binding:"required"`
	TableName string `json:"tableName" binding:"required"`
}

// Table is a seating table as listed by the POS provider.
type Table struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// TablePrintRequest asks the relay to build a fresh deep link for a table and print it.
type TablePrintRequest struct {
	TableName string `json:"tableName" binding:"required"`
}

// PrintResponse acknowledges a job handed to the printer.
type PrintResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Link    string `json:"link,omitempty"`
}

// HealthResponse reports liveness and the configured printer address.
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Printer string `json:"printer"`
}

// QRCodeResponse carries a generated deep link and its QR image.
type QRCodeResponse struct {
	TableName  string `json:"tableName"`
	Link       string `json:"link"`
	StartParam string `json:"startParam"`
	QRCode     string `json:"qrCode"` // data:image/png;base64,...
}
