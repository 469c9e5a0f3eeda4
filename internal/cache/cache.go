package cache

import (
	"encoding/binary"
	"io"
	"log"
	"sync"

	"github.com/hashicorp/golang-lru/simplelru"
	"github.com/zeebo/blake3"
)

// Key fingerprints one block: the path of the backing file plus the physical
// offset the block starts at. Same path and offset always hash to the same
// key, so independent readers over the same file share cells.
type Key [16]byte

func NewKey(path string, pos int64) Key {
	h := blake3.New()
	io.WriteString(h, path)
	var off [8]byte
	binary.LittleEndian.PutUint64(off[:], uint64(pos))
	h.Write(off[:])

	var k Key
	copy(k[:], h.Sum(nil))
	return k
}

// Cell is one decompressed block. Cells are immutable once published: Data
// is never written to again, so a *Cell returned by Get stays valid for as
// long as the caller holds it, no matter what the cache evicts.
type Cell struct {
	Data []byte
	// bytes the block occupies in the backing file, checksum included.
	// the following block starts exactly this many bytes later.
	CompressedSize int
}

type Stats struct {
	Hits      int64
	Misses    int64
	Blocks    int
	SizeBytes int
}

// Cache maps keys to cells, bounded to a byte budget with LRU eviction.
// Safe for concurrent use by any number of readers.
type Cache struct {
	mu     sync.Mutex
	lru    *simplelru.LRU
	max    int
	bytes  int
	hits   int64
	misses int64
}

func New(maxBytes int) *Cache {
	if maxBytes <= 0 {
		maxBytes = 128 * 1024 * 1024
	}
	c := &Cache{max: maxBytes}
	// entry cap can never bind before the byte budget: every published cell
	// holds at least one byte
	lru, err := simplelru.NewLRU(maxBytes, c.evicted)
	if err != nil {
		// should never happen with maxBytes > 0
		log.Panicln("lru creation error", err)
	}
	c.lru = lru
	return c
}

func (c *Cache) evicted(_, value interface{}) {
	c.bytes -= len(value.(*Cell).Data)
}

func (c *Cache) Get(k Key) *Cell {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.lru.Get(k)
	if !ok {
		c.misses++
		return nil
	}
	c.hits++
	return v.(*Cell)
}

// Set publishes cell under k. If another filler got there first the existing
// cell survives: both were decompressed from the same bytes, so there is
// nothing to compare.
func (c *Cache) Set(k Key, cell *Cell) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lru.Contains(k) {
		return
	}
	c.lru.Add(k, cell)
	c.bytes += len(cell.Data)
	for c.bytes > c.max && c.lru.Len() > 1 {
		c.lru.RemoveOldest()
	}
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Blocks:    c.lru.Len(),
		SizeBytes: c.bytes,
	}
}
