package fcp

import (
	"github.com/pior/fcp/internal"
	"github.com/sony/gobreaker/v2"
	"github.com/zeebo/xxh3"
)

// DefaultNode is the address of a local node with the default FCP port.
const DefaultNode = "127.0.0.1:8481"

// NodeSelector picks which node serves a URI.
// It receives the canonical URI and the number of configured nodes, and
// returns an index in [0, nodeCount).
type NodeSelector func(uri string, nodeCount int) int

// DefaultNodeSelector uses Jump Hash over the xxh3 hash of the URI, so the
// same key always goes to the same node and benefits from its data store.
func DefaultNodeSelector(uri string, nodeCount int) int {
	return internal.JumpHash(xxh3.HashString(uri), nodeCount)
}

// staticSelector is used in tests to always select a specific node.
func staticSelector(index int) NodeSelector {
	return func(uri string, nodeCount int) int {
		return index % nodeCount
	}
}

// node is a configured node address with its circuit breaker.
type node struct {
	addr    string
	breaker *CircuitBreaker // nil if not configured
}

// NodeStats contains stats for a single node
type NodeStats struct {
	Addr                 string
	CircuitBreakerState  gobreaker.State
	CircuitBreakerCounts gobreaker.Counts
}

func (n *node) stats() NodeStats {
	stats := NodeStats{Addr: n.addr}
	if n.breaker != nil {
		stats.CircuitBreakerState = n.breaker.State()
		stats.CircuitBreakerCounts = n.breaker.Counts()
	}
	return stats
}
