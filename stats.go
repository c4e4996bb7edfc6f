package fcp

import (
	"sync/atomic"
)

// ClientStats contains statistics about client fetches.
// All fields are safe for concurrent access.
//
// For Prometheus integration see the metrics package, which exposes these
// as counters.
type ClientStats struct {
	Fetches       uint64 // ClientGet requests sent, redirect hops and retries included
	DataFound     uint64 // Requests answered with DataFound
	DataNotFound  uint64 // Requests answered with DataNotFound
	RouteNotFound uint64 // RouteNotFound answers, each one re-sends the request
	Restarts      uint64 // Restarted answers, each one re-sends the request
	Timeouts      uint64 // Read timeouts while waiting for an answer
	Redirects     uint64 // Redirects followed
	BytesReceived uint64 // Metadata and data bytes received in DataChunks
	Errors        uint64 // Fetches that ended with an error
}

// clientStatsCollector provides internal methods for updating client stats.
// Not exported - sessions update their own stats.
type clientStatsCollector struct {
	stats *ClientStats
}

func newClientStatsCollector() *clientStatsCollector {
	return &clientStatsCollector{
		stats: &ClientStats{},
	}
}

func (c *clientStatsCollector) recordFetch() {
	atomic.AddUint64(&c.stats.Fetches, 1)
}

func (c *clientStatsCollector) recordDataFound() {
	atomic.AddUint64(&c.stats.DataFound, 1)
}

func (c *clientStatsCollector) recordDataNotFound() {
	atomic.AddUint64(&c.stats.DataNotFound, 1)
}

func (c *clientStatsCollector) recordRouteNotFound() {
	atomic.AddUint64(&c.stats.RouteNotFound, 1)
}

func (c *clientStatsCollector) recordRestart() {
	atomic.AddUint64(&c.stats.Restarts, 1)
}

func (c *clientStatsCollector) recordTimeout() {
	atomic.AddUint64(&c.stats.Timeouts, 1)
}

func (c *clientStatsCollector) recordRedirect() {
	atomic.AddUint64(&c.stats.Redirects, 1)
}

func (c *clientStatsCollector) recordBytes(n int) {
	atomic.AddUint64(&c.stats.BytesReceived, uint64(n))
}

func (c *clientStatsCollector) recordError() {
	atomic.AddUint64(&c.stats.Errors, 1)
}

func (c *clientStatsCollector) snapshot() ClientStats {
	return ClientStats{
		Fetches:       atomic.LoadUint64(&c.stats.Fetches),
		DataFound:     atomic.LoadUint64(&c.stats.DataFound),
		DataNotFound:  atomic.LoadUint64(&c.stats.DataNotFound),
		RouteNotFound: atomic.LoadUint64(&c.stats.RouteNotFound),
		Restarts:      atomic.LoadUint64(&c.stats.Restarts),
		Timeouts:      atomic.LoadUint64(&c.stats.Timeouts),
		Redirects:     atomic.LoadUint64(&c.stats.Redirects),
		BytesReceived: atomic.LoadUint64(&c.stats.BytesReceived),
		Errors:        atomic.LoadUint64(&c.stats.Errors),
	}
}
