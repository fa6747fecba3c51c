// Package pool provides reusable byte buffers for streaming copies.
//
// A sync.Pool hands out previously allocated buffers and drops them on GC,
// which suits short-lived copy buffers: each archive borrows one for the
// duration of its copy and returns it before the next archive starts.
package pool

import "sync"

// BufferPool hands out byte slices of one fixed size.
type BufferPool struct {
	size int
	pool sync.Pool
}

// NewBufferPool creates a pool of size-byte buffers. A size below 1 panics.
func NewBufferPool(size int) *BufferPool {
	if size < 1 {
		panic("pool: buffer size must be at least 1 byte")
	}
	bp := &BufferPool{size: size}
	bp.pool.New = func() any {
		b := make([]byte, size)
		return &b
	}
	return bp
}

// Size returns the length of every buffer handed out by the pool.
func (bp *BufferPool) Size() int {
	return bp.size
}

// Get returns a buffer of exactly Size bytes.
func (bp *BufferPool) Get() *[]byte {
	return bp.pool.Get().(*[]byte)
}

// Put returns b to the pool. Buffers of a foreign capacity are dropped.
func (bp *BufferPool) Put(b *[]byte) {
	if b == nil || cap(*b) != bp.size {
		return
	}
	*b = (*b)[:bp.size]
	bp.pool.Put(b)
}
