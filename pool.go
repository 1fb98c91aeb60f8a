package lanecsv

import (
	"math/bits"
	"sync"
)

const (
	minPoolClass = 6  // 64 elements
	maxPoolClass = 31 // 2^31 elements
)

// slicePool keeps power-of-two sized slices in one sync.Pool per size class.
type slicePool[T any] struct {
	classes [maxPoolClass + 1]sync.Pool
}

func poolClass(n int) int {
	if n <= 1<<minPoolClass {
		return minPoolClass
	}
	return bits.Len(uint(n - 1))
}

// get returns a slice with len n and a power-of-two capacity.
func (p *slicePool[T]) get(n int) []T {
	c := poolClass(n)
	if c > maxPoolClass {
		return make([]T, n)
	}
	if v := p.classes[c].Get(); v != nil {
		s := *(v.(*[]T))
		return s[:n]
	}
	return make([]T, n, 1<<c)
}

// put returns s to the pool if its capacity is an exact size class.
func (p *slicePool[T]) put(s []T) {
	c := cap(s)
	if c < 1<<minPoolClass || c&(c-1) != 0 {
		return
	}
	class := bits.TrailingZeros(uint(c))
	if class > maxPoolClass {
		return
	}
	s = s[:0]
	p.classes[class].Put(&s)
}

// BufferPool rents the token windows, metadata arenas and scratch buffers used
// by readers. It is safe for concurrent use; readers on different goroutines
// may share one pool.
type BufferPool struct {
	bytes slicePool[byte]
	units slicePool[uint16]
	metas slicePool[FieldMeta]
}

// NewBufferPool returns an empty pool.
func NewBufferPool() *BufferPool {
	return &BufferPool{}
}

// DefaultPool is used by readers that do not set Options.Pool.
var DefaultPool = NewBufferPool()

func rentTokens[T Token](p *BufferPool, n int) []T {
	var zero T
	switch any(zero).(type) {
	case byte:
		return any(p.bytes.get(n)).([]T)
	default:
		return any(p.units.get(n)).([]T)
	}
}

func returnTokens[T Token](p *BufferPool, s []T) {
	switch v := any(s).(type) {
	case []byte:
		p.bytes.put(v)
	case []uint16:
		p.units.put(v)
	}
}

func (p *BufferPool) rentBytes(n int) []byte { return p.bytes.get(n) }
func (p *BufferPool) returnBytes(s []byte) { p.bytes.put(s) }
func (p *BufferPool) rentMetas(n int) []FieldMeta { return p.metas.get(n) }
func (p *BufferPool) returnMetas(s []FieldMeta) { p.metas.put(s) }
