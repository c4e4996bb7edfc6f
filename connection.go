package fcp

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/pior/fcp/protocol"
)

// Connection is a single FCP exchange with a node. FCP 1.x nodes answer one
// command per connection, so a Connection carries one request and is closed
// once its answer is consumed.
type Connection struct {
	addr   string
	conn   net.Conn
	reader *protocol.Reader

	stop      func() bool
	closeOnce sync.Once
	closeErr  error
}

// newConnection wraps conn. The reader is reset onto conn so its chunk
// buffer is reused. The connection is closed when ctx is done.
func newConnection(ctx context.Context, addr string, conn net.Conn, reader *protocol.Reader) *Connection {
	reader.Reset(conn)
	c := &Connection{
		addr:   addr,
		conn:   conn,
		reader: reader,
	}
	c.stop = context.AfterFunc(ctx, func() { _ = c.close() })
	return c
}

// Send writes the session header and the request.
func (c *Connection) Send(req *protocol.ClientGet, timeout time.Duration) error {
	c.setDeadline(c.conn.SetWriteDeadline, timeout)

	if err := protocol.WriteSession(c.conn, req); err != nil {
		var ire *protocol.InvalidRequestError
		if errors.As(err, &ire) {
			return err
		}
		return &protocol.ConnectionError{Op: "write", Err: err}
	}
	return nil
}

// Receive reads the next message, waiting at most timeout.
func (c *Connection) Receive(timeout time.Duration) (protocol.Message, error) {
	c.setDeadline(c.conn.SetReadDeadline, timeout)
	return c.reader.ReadMessage()
}

func (c *Connection) setDeadline(set func(time.Time) error, timeout time.Duration) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	_ = set(deadline)
}

// Addr returns the node address
func (c *Connection) Addr() string {
	return c.addr
}

// Close closes the connection. It is safe to call more than once.
func (c *Connection) Close() error {
	c.stop()
	return c.close()
}

func (c *Connection) close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
