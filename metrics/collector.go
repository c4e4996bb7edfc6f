// Package metrics exposes fcp client statistics to Prometheus.
package metrics

import (
	"github.com/pior/fcp"
	"github.com/prometheus/client_golang/prometheus"
)

// StatsSource is implemented by *fcp.Client.
type StatsSource interface {
	Stats() fcp.ClientStats
	PoolStats() fcp.PoolStats
	NodeStats() []fcp.NodeStats
}

var _ StatsSource = (*fcp.Client)(nil)

type counter struct {
	desc  *prometheus.Desc
	value func(fcp.ClientStats) uint64
}

// Collector is a prometheus.Collector reading the statistics of a client
// at scrape time.
type Collector struct {
	source StatsSource

	counters       []counter
	poolSessions   *prometheus.Desc
	poolAcquires   *prometheus.Desc
	poolWaits      *prometheus.Desc
	breakerState   *prometheus.Desc
	breakerFailure *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector returns a collector for source. Metric names are prefixed
// with namespace, "fcp" when empty.
func NewCollector(namespace string, source StatsSource) *Collector {
	if namespace == "" {
		namespace = "fcp"
	}
	name := func(n string) string {
		return prometheus.BuildFQName(namespace, "", n)
	}
	newCounter := func(n, help string, value func(fcp.ClientStats) uint64) counter {
		return counter{desc: prometheus.NewDesc(name(n), help, nil, nil), value: value}
	}

	return &Collector{
		source: source,
		counters: []counter{
			newCounter("fetches_total", "ClientGet requests sent, retries and redirect hops included.",
				func(s fcp.ClientStats) uint64 { return s.Fetches }),
			newCounter("data_found_total", "Requests answered with DataFound.",
				func(s fcp.ClientStats) uint64 { return s.DataFound }),
			newCounter("data_not_found_total", "Requests answered with DataNotFound.",
				func(s fcp.ClientStats) uint64 { return s.DataNotFound }),
			newCounter("route_not_found_total", "Requests answered with RouteNotFound.",
				func(s fcp.ClientStats) uint64 { return s.RouteNotFound }),
			newCounter("restarts_total", "Requests answered with Restarted.",
				func(s fcp.ClientStats) uint64 { return s.Restarts }),
			newCounter("timeouts_total", "Read timeouts while waiting for the node.",
				func(s fcp.ClientStats) uint64 { return s.Timeouts }),
			newCounter("redirects_total", "Metadata redirects followed.",
				func(s fcp.ClientStats) uint64 { return s.Redirects }),
			newCounter("received_bytes_total", "Metadata and data bytes received.",
				func(s fcp.ClientStats) uint64 { return s.BytesReceived }),
			newCounter("errors_total", "Fetches that ended with an error.",
				func(s fcp.ClientStats) uint64 { return s.Errors }),
		},
		poolSessions: prometheus.NewDesc(name("pool_sessions"),
			"Sessions in the pool by state.", []string{"state"}, nil),
		poolAcquires: prometheus.NewDesc(name("pool_acquires_total"),
			"Sessions acquired from the pool.", nil, nil),
		poolWaits: prometheus.NewDesc(name("pool_acquire_waits_total"),
			"Acquires that waited for a free session.", nil, nil),
		breakerState: prometheus.NewDesc(name("circuit_breaker_state"),
			"Circuit breaker state (0=closed, 1=half-open, 2=open).", []string{"node"}, nil),
		breakerFailure: prometheus.NewDesc(name("circuit_breaker_failures"),
			"Circuit breaker failure counts.", []string{"node", "type"}, nil),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, counter := range c.counters {
		ch <- counter.desc
	}
	ch <- c.poolSessions
	ch <- c.poolAcquires
	ch <- c.poolWaits
	ch <- c.breakerState
	ch <- c.breakerFailure
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	stats := c.source.Stats()
	for _, counter := range c.counters {
		ch <- prometheus.MustNewConstMetric(counter.desc, prometheus.CounterValue, float64(counter.value(stats)))
	}

	pool := c.source.PoolStats()
	ch <- prometheus.MustNewConstMetric(c.poolSessions, prometheus.GaugeValue, float64(pool.TotalSessions), "total")
	ch <- prometheus.MustNewConstMetric(c.poolSessions, prometheus.GaugeValue, float64(pool.IdleSessions), "idle")
	ch <- prometheus.MustNewConstMetric(c.poolSessions, prometheus.GaugeValue, float64(pool.ActiveSessions), "active")
	ch <- prometheus.MustNewConstMetric(c.poolAcquires, prometheus.CounterValue, float64(pool.AcquireCount))
	ch <- prometheus.MustNewConstMetric(c.poolWaits, prometheus.CounterValue, float64(pool.AcquireWaitCount))

	for _, node := range c.source.NodeStats() {
		ch <- prometheus.MustNewConstMetric(c.breakerState, prometheus.GaugeValue, float64(node.CircuitBreakerState), node.Addr)
		ch <- prometheus.MustNewConstMetric(c.breakerFailure, prometheus.GaugeValue,
			float64(node.CircuitBreakerCounts.TotalFailures), node.Addr, "total")
		ch <- prometheus.MustNewConstMetric(c.breakerFailure, prometheus.GaugeValue,
			float64(node.CircuitBreakerCounts.ConsecutiveFailures), node.Addr, "consecutive")
	}
}
