// Package blockstream reads and writes streams of independently compressed
// blocks with a shared cache of decompressed blocks. The cache is external
// and passed to each reader, so scans that revisit the same regions of a
// file skip raw reads and decompression entirely.
package blockstream

import (
	"fmt"
	"io"

	"github.com/prabhah/blockstream/internal/cache"
	"github.com/prabhah/blockstream/internal/codec"
	"github.com/prabhah/blockstream/internal/file"
	"github.com/prabhah/blockstream/internal/membuf"
)

// Cache is the process-wide store of decompressed blocks, keyed by file path
// and physical block offset. Share one cache between all readers.
type Cache = cache.Cache

// NewCache returns a cache bounded to maxBytes of decompressed block data.
// Least recently used blocks are dropped when the budget is exceeded; blocks
// still held by a reader stay valid after eviction.
func NewCache(maxBytes int) *Cache {
	return cache.New(maxBytes)
}

// Reader reads a compressed block stream with cache support.
//
// A Reader belongs to one goroutine. The block at the current position is
// looked up in the cache first; only a miss opens the backing file and
// decompresses. Downside: when reading lots of data sequentially with only
// some of it cached, the reader has to seek between cached runs.
type Reader struct {
	path  string
	cache *Cache

	estimatedSize int
	mmapThreshold int
	bufSize       int
	mem           *membuf.Buffer

	// nil until the first cache miss. constructing a Reader does no I/O
	src     file.Source
	filePos int64

	// block from the cache, or a freshly filled block that was published
	cell *cache.Cell
	cur  int
	eof  bool
}

// NewReader creates a reader over the block stream at path. c may be nil to
// read uncached. No I/O happens until the first uncached read.
func NewReader(path string, c *Cache, opts ...Opt) *Reader {
	r := &Reader{
		path:    path,
		cache:   c,
		bufSize: membuf.DefaultBufferSize,
		mem:     membuf.New(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ensureOpen opens the backing file and sizes the staging buffer for the
// chosen read strategy. Deferred to the first miss so fully cached scans
// never touch the file.
func (r *Reader) ensureOpen() error {
	if r.src != nil {
		return nil
	}
	if r.mem.Owned() {
		size := r.bufSize
		if r.mmapThreshold > 0 && r.estimatedSize >= r.mmapThreshold {
			size = 2 * membuf.Align(r.bufSize+membuf.BlockAlign, membuf.BlockAlign)
		}
		if _, err := r.mem.Reserve(size); err != nil {
			return err
		}
	}
	src, err := file.Open(r.path, r.estimatedSize, r.mmapThreshold)
	if err != nil {
		return fmt.Errorf("blockstream: open: %w", err)
	}
	r.src = src
	return nil
}

// next makes the block at filePos current, from the cache when possible.
// Returns false at end of stream.
func (r *Reader) next() (bool, error) {
	var key cache.Key
	var cell *cache.Cell
	if r.cache != nil {
		key = cache.NewKey(r.path, r.filePos)
		cell = r.cache.Get(key)
	}
	if cell == nil {
		var err error
		cell, err = r.fill()
		if err != nil {
			return false, err
		}
		// end-of-stream cells are never published so repeated reads past
		// the end can't pollute the cache
		if r.cache != nil && len(cell.Data) > 0 {
			r.cache.Set(key, cell)
		}
	}

	if len(cell.Data) == 0 {
		r.cell = nil
		r.eof = true
		return false, nil
	}
	r.cell = cell
	r.cur = 0
	r.filePos += int64(cell.CompressedSize)
	return true, nil
}

// fill reads and decompresses the block at filePos into a fresh cell. Raw
// bytes are staged in r.mem; the decompressed bytes get their own allocation
// because the cell can outlive this reader in the cache.
func (r *Reader) fill() (*cache.Cell, error) {
	if err := r.ensureOpen(); err != nil {
		return nil, err
	}

	head := codec.ChecksumSize + codec.HeaderSize
	buf, err := r.mem.Reserve(head)
	if err != nil {
		return nil, err
	}
	n, err := r.src.ReadAt(buf, r.filePos)
	if n == 0 && err == io.EOF {
		// nothing at this offset: the zero-length end-of-stream block
		return &cache.Cell{}, nil
	}
	if n < head {
		if err == nil || err == io.EOF {
			return nil, fmt.Errorf("%w: truncated header at offset %d", ErrCorrupt, r.filePos)
		}
		return nil, fmt.Errorf("blockstream: read %v: %w", r.path, err)
	}

	hdr, err := codec.ParseHeader(buf[codec.ChecksumSize:head])
	if err != nil {
		return nil, err
	}

	total := codec.ChecksumSize + hdr.CompressedSize
	buf, err = r.mem.Reserve(total)
	if err != nil {
		return nil, err
	}
	if total > head {
		n, err = r.src.ReadAt(buf[head:total], r.filePos+int64(head))
		if n < total-head {
			if err == nil || err == io.EOF {
				return nil, fmt.Errorf("%w: truncated block at offset %d", ErrCorrupt, r.filePos)
			}
			return nil, fmt.Errorf("blockstream: read %v: %w", r.path, err)
		}
	}
	if err := codec.Verify(buf[:total]); err != nil {
		return nil, err
	}

	data := make([]byte, hdr.DecompressedSize)
	if err := codec.Decompress(data, buf[head:total], hdr.Method); err != nil {
		return nil, err
	}
	return &cache.Cell{Data: data, CompressedSize: total}, nil
}

// Read returns decompressed bytes from the current position. io.EOF after
// the last block; end of stream is sticky until the next Seek.
func (r *Reader) Read(p []byte) (int, error) {
	for r.cell == nil || r.cur >= len(r.cell.Data) {
		if r.eof {
			return 0, io.EOF
		}
		more, err := r.next()
		if err != nil {
			return 0, err
		}
		if !more {
			return 0, io.EOF
		}
	}
	n := copy(p, r.cell.Data[r.cur:])
	r.cur += n
	return n, nil
}

// Seek positions the reader blockOff bytes into the decompressed content of
// the block that starts at byte filePos of the compressed file. Seeking
// inside the currently held block only moves the cursor: no cache lookup,
// no I/O. Anywhere else reloads a block; if that block is shorter than
// blockOff the call fails with ErrSeekOutOfRange and the reader stays
// usable.
func (r *Reader) Seek(filePos, blockOff int64) error {
	if filePos < 0 || blockOff < 0 {
		return fmt.Errorf("%w: negative position %d/%d", ErrSeekOutOfRange, filePos, blockOff)
	}

	if r.cell != nil &&
		filePos == r.filePos-int64(r.cell.CompressedSize) &&
		blockOff <= int64(len(r.cell.Data)) {
		r.cur = int(blockOff)
		return nil
	}

	r.filePos = filePos
	r.cell = nil
	r.eof = false
	more, err := r.next()
	if err != nil {
		return err
	}
	size := 0
	if more {
		size = len(r.cell.Data)
	}
	if blockOff > int64(size) {
		return fmt.Errorf("%w: offset %d in block of %d bytes", ErrSeekOutOfRange, blockOff, size)
	}
	r.cur = int(blockOff)
	return nil
}

func (r *Reader) Close() error {
	r.cell = nil
	if r.src == nil {
		return nil
	}
	err := r.src.Close()
	r.src = nil
	return err
}
