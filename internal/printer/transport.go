// Package printer delivers command streams to a network receipt printer over a
// raw TCP socket (the "RAW"/JetDirect port, usually 9100).
package printer

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"time"
)

// DefaultTimeout bounds a whole Send call: lock wait, dial and write.
const DefaultTimeout = 10 * time.Second

// DialFunc opens a stream connection. It matches net.Dialer.DialContext.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Config describes how to reach one physical printer.
type Config struct {
	Address string
	Timeout time.Duration
	// Serialize admits one job at a time to the device.
	Serialize bool
	Dial      DialFunc
}

// Stats counts Send outcomes.
type Stats struct {
	Sent             uint64 `json:"sent"`
	ConnectionErrors uint64 `json:"connection_errors"`
	Timeouts         uint64 `json:"timeouts"`
	InFlight         int64  `json:"in_flight"`
}

// Transport sends buffers to a printer. It opens a new connection for every
// job and never reads from the device.
type Transport struct {
	address string
	timeout time.Duration
	dial    DialFunc
	lock    *semaphore

	sent       atomic.Uint64
	connErrors atomic.Uint64
	timeouts   atomic.Uint64
	inFlight   atomic.Int64
}

// NewTransport creates a transport for the printer at cfg.Address.
func NewTransport(cfg Config) *Transport {
	t := &Transport{
		address: cfg.Address,
		timeout: cfg.Timeout,
		dial:    cfg.Dial,
	}
	if t.timeout <= 0 {
		t.timeout = DefaultTimeout
	}
	if t.dial == nil {
		t.dial = (&net.Dialer{}).DialContext
	}
	if cfg.Serialize {
		t.lock = newSemaphore(1)
	}
	return t
}

// Address returns the printer's host:port.
func (t *Transport) Address() string {
	return t.address
}

// Timeout returns the fixed bound applied to each Send.
func (t *Transport) Timeout() time.Duration {
	return t.timeout
}

// Send writes buf to the printer and half-closes the connection. It returns nil
// once the whole buffer has been handed to the socket; the device does not
// acknowledge prints. Failures are *ConnectionError or *TimeoutError.
func (t *Transport) Send(ctx context.Context, buf []byte) error {
	t.inFlight.Add(1)
	defer t.inFlight.Add(-1)

	err := t.send(ctx, buf)

	var timeoutErr *TimeoutError
	switch {
	case err == nil:
		t.sent.Add(1)
	case errors.As(err, &timeoutErr):
		t.timeouts.Add(1)
	default:
		t.connErrors.Add(1)
	}
	return err
}

func (t *Transport) send(parent context.Context, buf []byte) error {
	ctx, cancel := context.WithTimeout(parent, t.timeout)
	defer cancel()

	if t.lock != nil {
		if err := t.lock.Acquire(ctx); err != nil {
			return t.classify(ctx, parent, err)
		}
		defer t.lock.Release()
	}

	conn, err := t.dial(ctx, "tcp", t.address)
	if err != nil {
		return t.classify(ctx, parent, err)
	}

	deadline, _ := ctx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		conn.Close()
		return &ConnectionError{Address: t.address, Err: err}
	}

	// Tear the connection down as soon as ctx ends.
	stop := context.AfterFunc(ctx, func() { abort(conn) })
	defer stop()

	if _, err := conn.Write(buf); err != nil {
		abort(conn)
		return t.classify(ctx, parent, err)
	}

	if cw, ok := conn.(interface{ CloseWrite() error }); ok {
		if err := cw.CloseWrite(); err != nil {
			abort(conn)
			return t.classify(ctx, parent, err)
		}
	}
	conn.Close()
	return nil
}

// classify maps a failure to the error taxonomy. A deadline hit by our own
// bound is a timeout; a cancelled parent or any other error is a connection error.
func (t *Transport) classify(ctx, parent context.Context, err error) error {
	if parent.Err() == nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &TimeoutError{Address: t.address, After: t.timeout}
	}
	var netErr net.Error
	if parent.Err() == nil && errors.As(err, &netErr) && netErr.Timeout() {
		return &TimeoutError{Address: t.address, After: t.timeout}
	}
	return &ConnectionError{Address: t.address, Err: err}
}

// Stats returns a snapshot of the outcome counters.
func (t *Transport) Stats() Stats {
	return Stats{
		Sent:             t.sent.Load(),
		ConnectionErrors: t.connErrors.Load(),
		Timeouts:         t.timeouts.Load(),
		InFlight:         t.inFlight.Load(),
	}
}

// abort drops the connection without a graceful shutdown.
func abort(conn net.Conn) {
	if tc, ok := conn.(*net.TCPConn); ok {
		tc.SetLinger(0)
	}
	conn.Close()
}
