package fcp

import (
	"context"
	"sync/atomic"

	"github.com/jackc/puddle/v2"
)

// PoolStats contains statistics about the session pool.
//
// For Prometheus integration, expose these as:
//   - Gauges: TotalSessions, IdleSessions, ActiveSessions
//   - Counters: AcquireCount, AcquireWaitCount, CreatedSessions, AcquireErrors
type PoolStats struct {
	AcquireCount      uint64 // Total acquire attempts
	AcquireWaitCount  uint64 // Acquires that had to wait
	CreatedSessions   uint64 // Total sessions created
	AcquireErrors     uint64 // Cancelled acquire attempts
	AcquireWaitTimeNs uint64 // Total nanoseconds spent waiting

	TotalSessions  int32 // Sessions in the pool (active + idle)
	IdleSessions   int32 // Idle sessions available
	ActiveSessions int32 // Sessions currently fetching
}

// sessionPool bounds the number of concurrent fetches. Sessions hold no
// connection between fetches, only their reader and its chunk buffer.
type sessionPool struct {
	pool            *puddle.Pool[*Session]
	createdSessions atomic.Int64
}

func newSessionPool(constructor func(ctx context.Context) (*Session, error), maxSize int32) (*sessionPool, error) {
	p := &sessionPool{}

	poolConfig := &puddle.Config[*Session]{
		Constructor: func(ctx context.Context) (*Session, error) {
			s, err := constructor(ctx)
			if err == nil {
				p.createdSessions.Add(1)
			}
			return s, err
		},
		Destructor: func(*Session) {},
		MaxSize:    maxSize,
	}

	pool, err := puddle.NewPool(poolConfig)
	if err != nil {
		return nil, err
	}
	p.pool = pool
	return p, nil
}

func (p *sessionPool) Acquire(ctx context.Context) (*puddle.Resource[*Session], error) {
	return p.pool.Acquire(ctx)
}

func (p *sessionPool) Close() {
	p.pool.Close()
}

// Stats returns a snapshot of pool statistics by converting puddle's stats to our format.
func (p *sessionPool) Stats() PoolStats {
	s := p.pool.Stat()

	return PoolStats{
		TotalSessions:     s.TotalResources(),
		IdleSessions:      s.IdleResources(),
		ActiveSessions:    s.AcquiredResources(),
		AcquireCount:      uint64(s.AcquireCount()),
		AcquireWaitCount:  uint64(s.EmptyAcquireCount()),
		CreatedSessions:   uint64(p.createdSessions.Load()),
		AcquireErrors:     uint64(s.CanceledAcquireCount()),
		AcquireWaitTimeNs: uint64(s.EmptyAcquireWaitTime().Nanoseconds()),
	}
}
