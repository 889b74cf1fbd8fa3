package printer

import (
	"fmt"
	"time"
)

// ConnectionError reports that the printer could not be reached or that the
// connection failed before the whole buffer was written. Partial writes are
// reported the same way.
type ConnectionError struct {
	Address string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("printer connection error (%s): %v", e.Address, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// TimeoutError reports that the job did not complete within the transport's
// fixed bound. The connection has been torn down when this is returned.
type TimeoutError struct {
	Address string
	After   time.Duration
}

func (e *TimeoutError) Error() string {
	return "Connection timeout"
}

// Timeout lets callers treat the error like a net.Error.
func (e *TimeoutError) Timeout() bool {
	return true
}
