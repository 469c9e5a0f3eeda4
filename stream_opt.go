package blockstream

import (
	"github.com/prabhah/blockstream/internal/codec"
	"github.com/prabhah/blockstream/internal/membuf"
)

// Method selects the block compression.
type Method = codec.Method

const (
	// Raw stores blocks uncompressed, framing and checksum still apply
	Raw  Method = codec.None
	Lz4  Method = codec.Lz4
	Zstd Method = codec.Zstd
)

type Opt func(*Reader)

// total stream size if the caller knows it, e.g. from a file index.
// compared against the mmap threshold to pick the read strategy
func WithEstimatedSize(n int) Opt {
	return func(r *Reader) {
		r.estimatedSize = n
	}
}

// streams at least this large are read through a memory mapping instead of
// buffered preads. 0 (the default) never maps
func WithMmapThreshold(n int) Opt {
	return func(r *Reader) {
		r.mmapThreshold = n
	}
}

// staging buffer size for buffered reads
func WithBufferSize(n int) Opt {
	return func(r *Reader) {
		r.bufSize = n
	}
}

// WithStaging stages raw reads in caller-owned memory. The reader never
// grows or frees it; blocks larger than the buffer fail with
// ErrStagingTooSmall.
func WithStaging(buf []byte) Opt {
	return func(r *Reader) {
		r.mem = membuf.Wrap(buf)
	}
}
