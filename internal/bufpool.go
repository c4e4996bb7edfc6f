package internal

import (
	"bytes"
	"sync"
)

// maxPooledBufferSize keeps oversized buffers out of the pool.
const maxPooledBufferSize = 64 << 10

// BufferPool recycles bytes.Buffers used to build outbound commands.
type BufferPool struct {
	pool sync.Pool
}

// NewBufferPool returns a pool whose buffers start with initialSize capacity.
func NewBufferPool(initialSize int) *BufferPool {
	return &BufferPool{
		pool: sync.Pool{
			New: func() any {
				return bytes.NewBuffer(make([]byte, 0, initialSize))
			},
		},
	}
}

func (p *BufferPool) Get() *bytes.Buffer {
	return p.pool.Get().(*bytes.Buffer)
}

func (p *BufferPool) Put(buf *bytes.Buffer) {
	if buf.Cap() > maxPooledBufferSize {
		return
	}
	buf.Reset()
	p.pool.Put(buf)
}
