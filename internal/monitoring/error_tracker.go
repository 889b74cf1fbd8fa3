package monitoring

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go-qr-relay/internal/printer"

	"github.com/google/uuid"
)

// ErrorDetails is one kind of print failure, grouped by fingerprint.
type ErrorDetails struct {
	ID          string                 `json:"id"`
	Kind        string                 `json:"kind"`
	Error       string                 `json:"error"`
	Printer     string                 `json:"printer"`
	Context     map[string]interface{} `json:"context,omitempty"`
	Fingerprint string                 `json:"fingerprint"`
	Count       int                    `json:"count"`
	FirstSeen   time.Time              `json:"first_seen"`
	LastSeen    time.Time              `json:"last_seen"`
}

// ErrorSummary represents error summary for reporting
type ErrorSummary struct {
	Count        int       `json:"count"`
	LastOccurred time.Time `json:"last_occurred"`
	Kind         string    `json:"kind"`
}

// ErrorTracker keeps the recent print failures so staff can see what went
// wrong without reading logs. Entries older than retention are dropped.
type ErrorTracker struct {
	errors    map[string]*ErrorDetails
	mutex     sync.RWMutex
	maxErrors int
	retention time.Duration
	now       func() time.Time
}

// NewErrorTracker creates a new error tracker
func NewErrorTracker(maxErrors int, retention time.Duration) *ErrorTracker {
	return &ErrorTracker{
		errors:    make(map[string]*ErrorDetails),
		maxErrors: maxErrors,
		retention: retention,
		now:       time.Now,
	}
}

// CaptureError records a failed send to the printer at address.
func (et *ErrorTracker) CaptureError(address string, err error, context map[string]interface{}) *ErrorDetails {
	now := et.now().UTC()
	kind := classify(err)

	et.mutex.Lock()
	defer et.mutex.Unlock()

	et.cleanup(now)

	fingerprint := fmt.Sprintf("%s|%s", kind, address)
	if existing, exists := et.errors[fingerprint]; exists {
		existing.Count++
		existing.LastSeen = now
		existing.Error = err.Error()
		existing.Context = context // keep the latest
		return existing
	}

	details := &ErrorDetails{
		ID:          uuid.NewString(),
		Kind:        kind,
		Error:       err.Error(),
		Printer:     address,
		Context:     context,
		Fingerprint: fingerprint,
		Count:       1,
		FirstSeen:   now,
		LastSeen:    now,
	}
	et.errors[fingerprint] = details

	if len(et.errors) > et.maxErrors {
		et.evictOldestError()
	}
	return details
}

// GetErrors returns tracked failures, most recent first
func (et *ErrorTracker) GetErrors(limit int) []ErrorDetails {
	et.mutex.Lock()
	defer et.mutex.Unlock()

	et.cleanup(et.now().UTC())

	errs := make([]ErrorDetails, 0, len(et.errors))
	for _, e := range et.errors {
		errs = append(errs, *e)
	}

	sort.Slice(errs, func(i, j int) bool {
		return errs[i].LastSeen.After(errs[j].LastSeen)
	})

	if limit > 0 && limit < len(errs) {
		errs = errs[:limit]
	}
	return errs
}

// GetErrorSummary returns failure counts by kind
func (et *ErrorTracker) GetErrorSummary() map[string]ErrorSummary {
	et.mutex.Lock()
	defer et.mutex.Unlock()

	et.cleanup(et.now().UTC())

	summary := make(map[string]ErrorSummary)
	for _, e := range et.errors {
		existing := summary[e.Kind]
		existing.Kind = e.Kind
		existing.Count += e.Count
		if e.LastSeen.After(existing.LastOccurred) {
			existing.LastOccurred = e.LastSeen
		}
		summary[e.Kind] = existing
	}
	return summary
}

// evictOldestError removes the oldest error. Caller holds the lock.
func (et *ErrorTracker) evictOldestError() {
	var oldest *ErrorDetails
	var oldestKey string

	for key, e := range et.errors {
		if oldest == nil || e.FirstSeen.Before(oldest.FirstSeen) {
			oldest = e
			oldestKey = key
		}
	}

	if oldestKey != "" {
		delete(et.errors, oldestKey)
	}
}

// cleanup drops entries not seen within retention. Caller holds the lock.
func (et *ErrorTracker) cleanup(now time.Time) {
	if et.retention <= 0 {
		return
	}
	cutoff := now.Add(-et.retention)
	for key, e := range et.errors {
		if e.LastSeen.Before(cutoff) {
			delete(et.errors, key)
		}
	}
}

func classify(err error) string {
	var timeoutErr *printer.TimeoutError
	var connErr *printer.ConnectionError
	switch {
	case errors.As(err, &timeoutErr):
		return "timeout"
	case errors.As(err, &connErr):
		return "connection"
	default:
		return "other"
	}
}

// Sender delivers a command stream to a printer.
type Sender interface {
	Send(ctx context.Context, buf []byte) error
}

// TrackedSender records every failed send in an ErrorTracker.
type TrackedSender struct {
	Sender  Sender
	Address string
	Tracker *ErrorTracker
}

func (s TrackedSender) Send(ctx context.Context, buf []byte) error {
	err := s.Sender.Send(ctx, buf)
	if err != nil {
		s.Tracker.CaptureError(s.Address, err, map[string]interface{}{
			"bytes": len(buf),
		})
	}
	return err
}
