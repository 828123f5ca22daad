// File: pool/bufferpool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Fixed-size byte buffer pool backing the per-tick socket reads.

package pool

import "sync"

// BytePool hands out byte slices of one fixed size and recycles them through
// a sync.Pool, keeping the read path free of per-tick allocations.
type BytePool struct {
	size int
	p    sync.Pool
}

// NewBytePool returns a pool producing slices of exactly size bytes.
func NewBytePool(size int) *BytePool {
	b := &BytePool{size: size}
	b.p.New = func() any {
		return make([]byte, size)
	}
	return b
}

// Get returns a buffer of the pool's size.
func (b *BytePool) Get() []byte {
	return b.p.Get().([]byte)
}

// Put recycles a buffer. Slices of a foreign capacity are dropped so a
// trimmed or grown slice can never poison the pool.
func (b *BytePool) Put(buf []byte) {
	if cap(buf) != b.size {
		return
	}
	b.p.Put(buf[:b.size])
}

// Size reports the pool's buffer size.
func (b *BytePool) Size() int { return b.size }
