package fcp

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/jackc/puddle/v2"
)

// DefaultMaxSessions is the default number of concurrent fetches.
const DefaultMaxSessions = 4

// Config holds configuration for the client.
type Config struct {
	// Nodes are the FCP node addresses. Defaults to DefaultNode.
	Nodes []string

	// MaxSessions is the maximum number of concurrent fetches.
	// Defaults to DefaultMaxSessions.
	MaxSessions int32

	// Dialer opens connections to nodes.
	// If nil, a net.Dialer with the fetch timeout is used.
	Dialer Dialer

	// Options apply to every fetch.
	Options Options

	// Logger receives progress messages. Defaults to DiscardLogger.
	Logger Logger

	// SelectNode picks the node for a URI.
	// If nil, uses DefaultNodeSelector.
	SelectNode NodeSelector

	// NewCircuitBreaker creates a circuit breaker for a node.
	// Called once per node address when the client is created.
	// If nil, no circuit breaker is used.
	NewCircuitBreaker func(nodeAddr string) *CircuitBreaker
}

// Client fetches keys from a set of FCP nodes. It is safe for concurrent use.
type Client struct {
	nodes      []*node
	selectNode NodeSelector
	pool       *sessionPool
	stats      *clientStatsCollector
	closed     atomic.Bool
}

// NewClient creates a new client.
func NewClient(config Config) (*Client, error) {
	addrs := config.Nodes
	if len(addrs) == 0 {
		addrs = []string{DefaultNode}
	}

	maxSessions := config.MaxSessions
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}

	selectNode := config.SelectNode
	if selectNode == nil {
		selectNode = DefaultNodeSelector
	}

	nodes := make([]*node, len(addrs))
	for i, addr := range addrs {
		if addr == "" {
			return nil, fmt.Errorf("fcp: empty node address at index %d", i)
		}
		n := &node{addr: addr}
		if config.NewCircuitBreaker != nil {
			n.breaker = config.NewCircuitBreaker(addr)
		}
		nodes[i] = n
	}

	client := &Client{
		nodes:      nodes,
		selectNode: selectNode,
		stats:      newClientStatsCollector(),
	}

	pool, err := newSessionPool(func(ctx context.Context) (*Session, error) {
		return newSession(config.Dialer, config.Options, config.Logger, client.stats), nil
	}, maxSessions)
	if err != nil {
		return nil, err
	}
	client.pool = pool

	return client, nil
}

// Get fetches uri into data, following redirects. The metadata of the
// final key is available in the Result.
func (c *Client) Get(ctx context.Context, uri string, data Sink) (*Result, error) {
	return c.GetWithMetadata(ctx, uri, data, nil)
}

// GetWithMetadata fetches uri, following redirects, and streams the data
// and metadata parts into their sinks. A nil sink discards its part.
func (c *Client) GetWithMetadata(ctx context.Context, uri string, data, meta Sink) (*Result, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}

	u, err := ParseURI(uri)
	if err != nil {
		c.stats.recordError()
		return nil, err
	}

	res, err := c.pool.Acquire(ctx)
	if err != nil {
		if errors.Is(err, puddle.ErrClosedPool) {
			return nil, ErrClientClosed
		}
		return nil, err
	}
	defer res.Release()

	s := res.Value()
	s.node = c.nodes[c.selectNode(u.String(), len(c.nodes))]

	return s.FollowRedirects(ctx, uri, &Key{DataSink: data, MetadataSink: meta})
}

// Close closes the client. It waits for running fetches to complete.
func (c *Client) Close() {
	if c.closed.Swap(true) {
		return
	}
	c.pool.Close()
}

// Stats returns a snapshot of client statistics.
func (c *Client) Stats() ClientStats {
	return c.stats.snapshot()
}

// PoolStats returns a snapshot of the session pool statistics.
func (c *Client) PoolStats() PoolStats {
	return c.pool.Stats()
}

// NodeStats returns stats for every configured node.
func (c *Client) NodeStats() []NodeStats {
	stats := make([]NodeStats, len(c.nodes))
	for i, n := range c.nodes {
		stats[i] = n.stats()
	}
	return stats
}
