package blockstream

import (
	"fmt"
	"io"

	"github.com/prabhah/blockstream/internal/codec"
)

// Writer produces a block stream: bytes are buffered to blockSize, then
// compressed, framed and checksummed as one independently readable block.
type Writer struct {
	w         io.Writer
	method    Method
	blockSize int
	buf       []byte
	off       int64
}

type WriterOpt func(*Writer)

func WithMethod(m Method) WriterOpt {
	return func(w *Writer) {
		w.method = m
	}
}

// uncompressed bytes per block. 64K is the default
func WithBlockSize(n int) WriterOpt {
	return func(w *Writer) {
		w.blockSize = n
	}
}

func NewWriter(w io.Writer, opts ...WriterOpt) *Writer {
	wr := &Writer{
		w:         w,
		method:    Lz4,
		blockSize: 64 * 1024,
	}
	for _, opt := range opts {
		opt(wr)
	}
	return wr
}

// Offset is the physical offset the next block will start at. Record it
// together with Buffered before writing a value to get the (file position,
// block offset) pair Reader.Seek takes.
func (w *Writer) Offset() int64 {
	return w.off
}

// Buffered is the number of pending bytes, the block offset of the next
// written byte within its block.
func (w *Writer) Buffered() int {
	return len(w.buf)
}

func (w *Writer) Write(p []byte) (int, error) {
	total := len(p)
	for len(p) > 0 {
		n := w.blockSize - len(w.buf)
		if n > len(p) {
			n = len(p)
		}
		w.buf = append(w.buf, p[:n]...)
		p = p[n:]
		if len(w.buf) >= w.blockSize {
			if err := w.Flush(); err != nil {
				return total - len(p), err
			}
		}
	}
	return total, nil
}

// Flush compresses and writes the pending block, if any. Flushing early
// ends the current block, so callers control block boundaries.
func (w *Writer) Flush() error {
	if len(w.buf) == 0 {
		return nil
	}
	block, err := codec.Compress(w.method, w.buf)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(block); err != nil {
		return fmt.Errorf("blockstream: write: %w", err)
	}
	w.off += int64(len(block))
	w.buf = w.buf[:0]
	return nil
}

func (w *Writer) Close() error {
	return w.Flush()
}
