package fcp

import (
	"context"
	"errors"
	"time"

	"github.com/pior/fcp/protocol"
	"github.com/sony/gobreaker/v2"
)

// CircuitBreaker guards the exchanges with one node. Each GetFile counts as
// one request, covering every retry up to the node's answer. Terminal
// answers such as DataNotFound and caller cancellations are successes:
// only transport failures, protocol errors and exhausted retries trip the
// breaker.
type CircuitBreaker = gobreaker.CircuitBreaker[protocol.Message]

// NewCircuitBreakerConfig returns a function that creates circuit breakers for nodes.
// This is a helper for common use cases.
func NewCircuitBreakerConfig(maxRequests uint32, interval, timeout time.Duration) func(string) *CircuitBreaker {
	return func(nodeAddr string) *CircuitBreaker {
		settings := gobreaker.Settings{
			Name:        nodeAddr,
			MaxRequests: maxRequests,
			Interval:    interval,
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
			IsSuccessful: func(err error) bool {
				return err == nil || isCallerError(err) || !protocol.ShouldCloseConnection(err)
			},
		}
		return gobreaker.NewCircuitBreaker[protocol.Message](settings)
	}
}

// isCallerError reports whether err comes from the caller's context rather
// than from the node.
func isCallerError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
