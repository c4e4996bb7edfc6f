package fcp

import (
	"time"

	"github.com/pior/fcp/protocol"
)

const (
	DefaultHopsToLive        = protocol.DefaultHopsToLive
	DefaultTimeout           = 5 * time.Minute
	DefaultRetries           = 3
	DefaultMaxRestarts       = 16
	DefaultMaxRedirects      = 20
	DefaultMaxMetadataLength = 64 << 10
)

// Options control a single fetch.
type Options struct {
	// HopsToLive is the hop budget of the request.
	// Zero uses DefaultHopsToLive.
	HopsToLive int

	// RemoveLocalKey asks the node to skip its local store.
	RemoveLocalKey bool

	// Timeout is the initial wait for each read from the node. The node
	// replaces it with the timeout carried by Restarted, Pending and
	// DataFound messages. Zero uses DefaultTimeout.
	Timeout time.Duration

	// Retries is how many read timeouts are tolerated while waiting for the
	// node's answer. A Restarted message refills the budget.
	// Zero uses DefaultRetries, negative disables retrying.
	Retries int

	// MaxRestarts bounds the number of requests re-sent after Restarted or
	// RouteNotFound. Zero uses DefaultMaxRestarts, negative disables them.
	MaxRestarts int

	// MaxRedirects bounds the depth of a redirect chain.
	// Zero uses DefaultMaxRedirects. When negative, redirects are not
	// followed and the redirecting key itself is the result.
	MaxRedirects int

	// MaxMetadataLength is the largest metadata the client accepts.
	// Zero uses DefaultMaxMetadataLength.
	MaxMetadataLength int64
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{}.withDefaults()
}

func (o Options) withDefaults() Options {
	if o.HopsToLive <= 0 {
		o.HopsToLive = DefaultHopsToLive
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	o.Retries = orDefault(o.Retries, DefaultRetries)
	o.MaxRestarts = orDefault(o.MaxRestarts, DefaultMaxRestarts)
	if o.MaxRedirects == 0 {
		o.MaxRedirects = DefaultMaxRedirects
	}
	if o.MaxMetadataLength <= 0 {
		o.MaxMetadataLength = DefaultMaxMetadataLength
	}
	return o
}

func orDefault(v, def int) int {
	switch {
	case v == 0:
		return def
	case v < 0:
		return 0
	}
	return v
}
