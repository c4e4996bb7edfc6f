package fcp

import (
	"context"
	"net"
	"time"

	"github.com/pior/fcp/protocol"
)

// Dialer opens transport connections to nodes. *net.Dialer implements it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Session fetches keys from one node. It owns the message reader, whose
// chunk buffer is reused by every fetch, and the current read timeout.
//
// A Session is not safe for concurrent use. Client pools sessions for
// concurrent fetches.
type Session struct {
	node    *node
	dialer  Dialer
	options Options
	logger  Logger
	stats   *clientStatsCollector
	reader  *protocol.Reader
	timeout time.Duration
}

// SessionConfig configures a standalone Session.
type SessionConfig struct {
	// Node is the node address. Defaults to DefaultNode.
	Node string

	// Dialer defaults to a net.Dialer with the fetch timeout as connect timeout.
	Dialer Dialer

	Options Options

	// Logger defaults to DiscardLogger.
	Logger Logger

	// CircuitBreaker guards the node when set.
	CircuitBreaker *CircuitBreaker
}

// NewSession returns a Session bound to a single node.
func NewSession(config SessionConfig) *Session {
	addr := config.Node
	if addr == "" {
		addr = DefaultNode
	}
	s := newSession(config.Dialer, config.Options, config.Logger, newClientStatsCollector())
	s.node = &node{addr: addr, breaker: config.CircuitBreaker}
	return s
}

func newSession(dialer Dialer, options Options, logger Logger, stats *clientStatsCollector) *Session {
	options = options.withDefaults()
	if logger == nil {
		logger = DiscardLogger
	}
	if dialer == nil {
		dialer = &net.Dialer{Timeout: options.Timeout}
	}
	return &Session{
		dialer:  dialer,
		options: options,
		logger:  logger,
		stats:   stats,
		reader:  protocol.NewReader(nil, logger),
		timeout: options.Timeout,
	}
}

// Timeout returns the current read timeout, as last updated by the node.
func (s *Session) Timeout() time.Duration {
	return s.timeout
}

// Node returns the address of the node the session talks to.
func (s *Session) Node() string {
	return s.node.addr
}

// Stats returns a snapshot of the session statistics. Sessions created by a
// Client share the client's statistics.
func (s *Session) Stats() ClientStats {
	return s.stats.snapshot()
}

func (s *Session) setTimeout(timeout time.Duration, reason protocol.MessageType) {
	if timeout <= 0 || timeout == s.timeout {
		return
	}
	s.logger.Debugf("fcp: %s: timeout set to %s", reason, timeout)
	s.timeout = timeout
}

// connect dials the node and sends the request.
func (s *Session) connect(ctx context.Context, req *protocol.ClientGet) (*Connection, error) {
	netConn, err := s.dialer.DialContext(ctx, "tcp", s.node.addr)
	if err != nil {
		return nil, &protocol.ConnectionError{Op: "connect", Err: err}
	}

	conn := newConnection(ctx, s.node.addr, netConn, s.reader)
	if err := conn.Send(req, s.timeout); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}
