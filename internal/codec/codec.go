package codec

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Every block on disk is:
//
//	checksum  uint64 LE   xxhash64 of everything after it
//	method    byte
//	comp      uint32 LE   header + payload size, excluding the checksum
//	decomp    uint32 LE   decompressed payload size
//	payload   comp - HeaderSize bytes
//
// A block ends exactly ChecksumSize+comp bytes after it starts, so the next
// block's offset is always derivable from the header alone.

type Method byte

const (
	None Method = 0
	Lz4  Method = 1
	Zstd Method = 2
)

const (
	ChecksumSize = 8
	HeaderSize   = 9

	// sanity bound so a corrupt header can't drive a huge allocation
	maxBlockSize = 1 << 30
)

// ErrCorrupt is returned on checksum mismatches and malformed framing.
var ErrCorrupt = errors.New("blockstream: corrupt block")

type Header struct {
	Method Method
	// CompressedSize counts the header itself plus the payload, without the
	// checksum. The block occupies ChecksumSize+CompressedSize bytes on disk.
	CompressedSize   int
	DecompressedSize int
}

// ParseHeader decodes the HeaderSize bytes that follow the checksum.
func ParseHeader(b []byte) (Header, error) {
	h := Header{
		Method:           Method(b[0]),
		CompressedSize:   int(binary.LittleEndian.Uint32(b[1:])),
		DecompressedSize: int(binary.LittleEndian.Uint32(b[5:])),
	}
	switch h.Method {
	case None, Lz4, Zstd:
	default:
		return h, fmt.Errorf("%w: unknown compression method 0x%02x", ErrCorrupt, b[0])
	}
	if h.CompressedSize < HeaderSize || h.CompressedSize > maxBlockSize {
		return h, fmt.Errorf("%w: compressed size %d", ErrCorrupt, h.CompressedSize)
	}
	if h.DecompressedSize > maxBlockSize {
		return h, fmt.Errorf("%w: decompressed size %d", ErrCorrupt, h.DecompressedSize)
	}
	return h, nil
}

// Verify checks the leading checksum of a complete staged block.
func Verify(block []byte) error {
	want := binary.LittleEndian.Uint64(block)
	if got := xxhash.Sum64(block[ChecksumSize:]); got != want {
		return fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}
	return nil
}

// EncodeAll/DecodeAll are safe for concurrent use, one pair serves the
// whole process.
var (
	zstdEnc, _ = zstd.NewWriter(nil)
	zstdDec, _ = zstd.NewReader(nil)
)

// Decompress expands payload into dst, which must be sized to the header's
// decompressed size exactly.
func Decompress(dst, payload []byte, m Method) error {
	switch m {
	case None:
		if len(payload) != len(dst) {
			return fmt.Errorf("%w: stored block is %d bytes, expected %d", ErrCorrupt, len(payload), len(dst))
		}
		copy(dst, payload)
	case Lz4:
		n, err := lz4.UncompressBlock(payload, dst)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		if n != len(dst) {
			return fmt.Errorf("%w: lz4 block expanded to %d bytes, expected %d", ErrCorrupt, n, len(dst))
		}
	case Zstd:
		out, err := zstdDec.DecodeAll(payload, dst[:0])
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		if len(out) != len(dst) {
			return fmt.Errorf("%w: zstd block expanded to %d bytes, expected %d", ErrCorrupt, len(out), len(dst))
		}
		if len(out) > 0 && &out[0] != &dst[0] {
			copy(dst, out)
		}
	default:
		return fmt.Errorf("%w: unknown compression method 0x%02x", ErrCorrupt, byte(m))
	}
	return nil
}

// Compress frames src into a complete block, checksum included. Payloads
// that lz4 cannot shrink are stored raw so decompression stays bounded by
// the declared sizes.
func Compress(m Method, src []byte) ([]byte, error) {
	var payload []byte
	switch m {
	case None:
		payload = src
	case Lz4:
		buf := make([]byte, lz4.CompressBlockBound(len(src)))
		var c lz4.Compressor
		n, err := c.CompressBlock(src, buf)
		if err != nil {
			return nil, fmt.Errorf("blockstream: lz4 compress: %w", err)
		}
		if n == 0 || n >= len(src) {
			m, payload = None, src
		} else {
			payload = buf[:n]
		}
	case Zstd:
		payload = zstdEnc.EncodeAll(src, nil)
	default:
		return nil, fmt.Errorf("blockstream: unknown compression method 0x%02x", byte(m))
	}

	block := make([]byte, ChecksumSize+HeaderSize+len(payload))
	block[ChecksumSize] = byte(m)
	binary.LittleEndian.PutUint32(block[ChecksumSize+1:], uint32(HeaderSize+len(payload)))
	binary.LittleEndian.PutUint32(block[ChecksumSize+5:], uint32(len(src)))
	copy(block[ChecksumSize+HeaderSize:], payload)
	binary.LittleEndian.PutUint64(block, xxhash.Sum64(block[ChecksumSize:]))
	return block, nil
}
