package printer

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockPrinter accepts connections and records everything written to each one.
type mockPrinter struct {
	listener net.Listener
	jobs     chan []byte
}

func newMockPrinter(t *testing.T) *mockPrinter {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	m := &mockPrinter{listener: l, jobs: make(chan []byte, 8)}
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				data, _ := io.ReadAll(conn)
				m.jobs <- data
			}()
		}
	}()
	t.Cleanup(func() { l.Close() })
	return m
}

func (m *mockPrinter) Address() string {
	return m.listener.Addr().String()
}

func (m *mockPrinter) next(t *testing.T) []byte {
	t.Helper()
	select {
	case data := <-m.jobs:
		return data
	case <-time.After(5 * time.Second):
		t.Fatal("mock printer received nothing")
		return nil
	}
}

// closedAddress returns an address with nothing listening on it.
func closedAddress(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	l.Close()
	return addr
}

// blockingDial never connects; it returns only when ctx ends.
func blockingDial(ctx context.Context, network, address string) (net.Conn, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestTransport_Send_DeliversWholeBuffer(t *testing.T) {
	printer := newMockPrinter(t)
	transport := NewTransport(Config{Address: printer.Address()})

	buf := append([]byte{0x1B, 0x40}, []byte("hello\n")...)
	buf = append(buf, 0x1D, 0x56, 0x00)

	require.NoError(t, transport.Send(context.Background(), buf))
	assert.Equal(t, buf, printer.next(t))

	stats := transport.Stats()
	assert.Equal(t, uint64(1), stats.Sent)
	assert.Equal(t, int64(0), stats.InFlight)
}

func TestTransport_Send_NewConnectionPerCall(t *testing.T) {
	printer := newMockPrinter(t)
	transport := NewTransport(Config{Address: printer.Address()})

	require.NoError(t, transport.Send(context.Background(), []byte("one")))
	require.NoError(t, transport.Send(context.Background(), []byte("two")))

	got := []string{string(printer.next(t)), string(printer.next(t))}
	assert.ElementsMatch(t, []string{"one", "two"}, got)
}

func TestTransport_Send_Unreachable(t *testing.T) {
	addr := closedAddress(t)
	transport := NewTransport(Config{Address: addr, Timeout: 2 * time.Second})

	err := transport.Send(context.Background(), []byte("x"))
	require.Error(t, err)

	var connErr *ConnectionError
	require.True(t, errors.As(err, &connErr), "got %T", err)
	assert.Equal(t, addr, connErr.Address)
	assert.Contains(t, err.Error(), addr)
	assert.Equal(t, uint64(1), transport.Stats().ConnectionErrors)
}

func TestTransport_Send_TimeoutWhenNeverConnected(t *testing.T) {
	timeout := 300 * time.Millisecond
	transport := NewTransport(Config{Address: "192.0.2.1:9100", Timeout: timeout, Dial: blockingDial})

	start := time.Now()
	err := transport.Send(context.Background(), []byte("x"))
	elapsed := time.Since(start)

	var timeoutErr *TimeoutError
	require.True(t, errors.As(err, &timeoutErr), "got %T: %v", err, err)
	assert.Equal(t, "Connection timeout", err.Error())
	assert.Equal(t, timeout, timeoutErr.After)
	assert.GreaterOrEqual(t, elapsed, timeout)
	assert.Less(t, elapsed, timeout+time.Second)
	assert.Equal(t, uint64(1), transport.Stats().Timeouts)
}

func TestTransport_Send_TimeoutWhenPeerStopsReading(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	dial := func(ctx context.Context, network, address string) (net.Conn, error) {
		return client, nil
	}
	transport := NewTransport(Config{Address: "pipe", Timeout: 200 * time.Millisecond, Dial: dial})

	err := transport.Send(context.Background(), []byte("never read"))

	var timeoutErr *TimeoutError
	require.True(t, errors.As(err, &timeoutErr), "got %T: %v", err, err)

	// The connection has been torn down.
	_, err = client.Write([]byte("x"))
	assert.Error(t, err)
}

func TestTransport_Send_ParentCancelIsConnectionError(t *testing.T) {
	transport := NewTransport(Config{Address: "192.0.2.1:9100", Timeout: 5 * time.Second, Dial: blockingDial})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	err := transport.Send(ctx, []byte("x"))

	var connErr *ConnectionError
	require.True(t, errors.As(err, &connErr), "got %T: %v", err, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTransport_Send_SerializesJobs(t *testing.T) {
	release := make(chan struct{})
	var (
		mu      sync.Mutex
		active  int
		maxSeen int
	)
	dial := func(ctx context.Context, network, address string) (net.Conn, error) {
		mu.Lock()
		active++
		if active > maxSeen {
			maxSeen = active
		}
		mu.Unlock()

		<-release
		client, server := net.Pipe()
		go func() {
			io.Copy(io.Discard, server)
			server.Close()
		}()
		return &countingConn{Conn: client, done: func() {
			mu.Lock()
			active--
			mu.Unlock()
		}}, nil
	}
	transport := NewTransport(Config{Address: "pipe", Timeout: 5 * time.Second, Serialize: true, Dial: dial})

	var wg sync.WaitGroup
	errs := make([]error, 3)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = transport.Send(context.Background(), []byte("job"))
		}(i)
	}

	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, maxSeen)
	assert.Equal(t, uint64(3), transport.Stats().Sent)
}

func TestTransport_Send_LockWaitCountsAgainstTimeout(t *testing.T) {
	timeout := 200 * time.Millisecond
	transport := NewTransport(Config{Address: "192.0.2.1:9100", Timeout: timeout, Serialize: true, Dial: blockingDial})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	start := time.Now()
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = transport.Send(context.Background(), []byte("job"))
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		var timeoutErr *TimeoutError
		assert.True(t, errors.As(err, &timeoutErr), "got %T: %v", err, err)
	}
	assert.Less(t, time.Since(start), timeout+time.Second)
}

func TestNewTransport_Defaults(t *testing.T) {
	transport := NewTransport(Config{Address: "10.0.0.5:9100"})

	assert.Equal(t, "10.0.0.5:9100", transport.Address())
	assert.Equal(t, DefaultTimeout, transport.Timeout())
	assert.Nil(t, transport.lock)
}

// countingConn runs done once when closed.
type countingConn struct {
	net.Conn
	once sync.Once
	done func()
}

func (c *countingConn) Close() error {
	c.once.Do(c.done)
	return c.Conn.Close()
}
