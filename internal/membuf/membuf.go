package membuf

import (
	"errors"
	"fmt"
)

const (
	// DefaultBufferSize is the staging size used when the caller gives no hint.
	DefaultBufferSize = 1 << 20

	// BlockAlign is the alignment of the storage medium. staging buffers in
	// large-read mode are sized to a multiple of it.
	BlockAlign = 4096

	// close to golden ratio
	growthFactor = 1.6
)

// ErrStagingTooSmall is returned when a borrowed staging buffer cannot hold
// a raw block.
var ErrStagingTooSmall = errors.New("blockstream: staging buffer too small")

// Buffer stages raw block bytes before decompression. An owned buffer grows
// on demand and never shrinks, so the allocation cost is amortized over many
// fills. A wrapped buffer belongs to the caller and is never grown or freed.
type Buffer struct {
	buf   []byte
	owned bool
}

func New() *Buffer {
	return &Buffer{owned: true}
}

// Wrap stages into caller-owned memory. Reserve fails instead of growing
// when a block does not fit.
func Wrap(buf []byte) *Buffer {
	return &Buffer{buf: buf[:cap(buf)]}
}

func (b *Buffer) Owned() bool {
	return b.owned
}

func (b *Buffer) Cap() int {
	return len(b.buf)
}

// Reserve returns the first n bytes of the staging area. The first
// reservation of an owned buffer allocates exactly n; later reservations
// that exceed the capacity grow it by growthFactor over the requested size
// so repeated slightly-larger blocks don't reallocate every time. Contents
// are preserved across growth.
func (b *Buffer) Reserve(n int) ([]byte, error) {
	if n <= len(b.buf) {
		return b.buf[:n], nil
	}
	if !b.owned {
		return nil, fmt.Errorf("%w: need %d, have %d", ErrStagingTooSmall, n, len(b.buf))
	}
	size := n
	if len(b.buf) > 0 {
		size = int(growthFactor * float64(n))
	}
	grown := make([]byte, size)
	copy(grown, b.buf)
	b.buf = grown
	return b.buf[:n], nil
}

// Align rounds n up to a multiple of a.
func Align(n, a int) int {
	return (n + a - 1) / a * a
}
