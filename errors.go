package blockstream

import (
	"errors"

	"github.com/prabhah/blockstream/internal/codec"
	"github.com/prabhah/blockstream/internal/membuf"
)

var (
	// ErrCorrupt is returned when a block fails its checksum or its framing
	// is malformed. Fatal: corrupted bytes don't self-correct, nothing is
	// retried.
	ErrCorrupt = codec.ErrCorrupt

	// ErrSeekOutOfRange is returned when a seek target lies beyond the
	// decompressed size of the block it points into. Recoverable, the
	// reader accepts further calls.
	ErrSeekOutOfRange = errors.New("blockstream: seek position is beyond the decompressed block")

	// ErrStagingTooSmall is returned when a caller-supplied staging buffer
	// cannot hold a raw block.
	ErrStagingTooSmall = membuf.ErrStagingTooSmall
)
