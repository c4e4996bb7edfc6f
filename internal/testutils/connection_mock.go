package testutils

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"os"
	"strings"
	"sync"
	"time"
)

// ConnectionMock is a mock implementation of net.Conn for testing.
// Reads are served from the scripted response data; once it is drained,
// reads fail with the configured error (io.EOF by default).
type ConnectionMock struct {
	mu       sync.Mutex
	readBuf  *bytes.Buffer
	writeBuf *bytes.Buffer
	readErr  error
	closed   bool
	block    chan struct{}
}

// NewConnectionMock creates a new mock connection with pre-configured response data
func NewConnectionMock(responseData ...string) *ConnectionMock {
	return &ConnectionMock{
		readBuf:  bytes.NewBufferString(strings.Join(responseData, "")),
		writeBuf: &bytes.Buffer{},
		readErr:  io.EOF,
	}
}

// NewTimeoutConnectionMock creates a mock connection whose reads time out
// once the response data is drained.
func NewTimeoutConnectionMock(responseData ...string) *ConnectionMock {
	m := NewConnectionMock(responseData...)
	m.readErr = os.ErrDeadlineExceeded
	return m
}

// NewBlockingConnectionMock creates a mock connection whose reads block
// until the connection is closed once the response data is drained.
func NewBlockingConnectionMock(responseData ...string) *ConnectionMock {
	m := NewConnectionMock(responseData...)
	m.block = make(chan struct{})
	return m
}

func (m *ConnectionMock) Read(b []byte) (n int, err error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, net.ErrClosed
	}
	if m.readBuf.Len() == 0 {
		block := m.block
		m.mu.Unlock()
		if block == nil {
			return 0, m.readErr
		}
		<-block
		return 0, net.ErrClosed
	}
	defer m.mu.Unlock()
	return m.readBuf.Read(b)
}

func (m *ConnectionMock) Write(b []byte) (n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, net.ErrClosed
	}
	return m.writeBuf.Write(b)
}

func (m *ConnectionMock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.block != nil && !m.closed {
		close(m.block)
	}
	m.closed = true
	return nil
}

// IsClosed reports whether Close was called.
func (m *ConnectionMock) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *ConnectionMock) LocalAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0}
}

func (m *ConnectionMock) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 8481}
}

func (m *ConnectionMock) SetDeadline(t time.Time) error      { return nil }
func (m *ConnectionMock) SetReadDeadline(t time.Time) error  { return nil }
func (m *ConnectionMock) SetWriteDeadline(t time.Time) error { return nil }

// GetWrittenRequest returns the raw request bytes written to the mock connection
func (m *ConnectionMock) GetWrittenRequest() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writeBuf.String()
}

// ErrNoMoreConnections is returned by ScriptedDialer once every scripted
// connection has been handed out.
var ErrNoMoreConnections = errors.New("testutils: no more scripted connections")

// ScriptedDialer hands out pre-built connections in order, one per dial.
type ScriptedDialer struct {
	mu    sync.Mutex
	conns []*ConnectionMock
	addrs []string
}

func NewScriptedDialer(conns ...*ConnectionMock) *ScriptedDialer {
	return &ScriptedDialer{conns: conns}
}

func (d *ScriptedDialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.addrs) >= len(d.conns) {
		return nil, ErrNoMoreConnections
	}
	conn := d.conns[len(d.addrs)]
	d.addrs = append(d.addrs, addr)
	return conn, nil
}

// Dials returns the number of successful dials.
func (d *ScriptedDialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.addrs)
}

// Addrs returns the dialed addresses in order.
func (d *ScriptedDialer) Addrs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.addrs...)
}
