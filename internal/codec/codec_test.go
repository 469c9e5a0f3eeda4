package codec

import (
	"errors"
	"math/rand"
	"testing"
)

func payload(n int) []byte {
	rnd := rand.New(rand.NewSource(int64(n)))
	buf := make([]byte, n)
	for i := range buf {
		// skewed bytes so lz4/zstd actually compress
		buf[i] = byte(rnd.Intn(8))
	}
	return buf
}

func roundTrip(t *testing.T, m Method, src []byte) {
	t.Helper()

	block, err := Compress(m, src)
	if err != nil {
		t.Fatal(err)
	}
	h, err := ParseHeader(block[ChecksumSize:])
	if err != nil {
		t.Fatal(err)
	}
	if ChecksumSize+h.CompressedSize != len(block) {
		t.Fatal("header size does not cover block", h.CompressedSize, len(block))
	}
	if h.DecompressedSize != len(src) {
		t.Fatal("wrong decompressed size", h.DecompressedSize)
	}
	if err = Verify(block); err != nil {
		t.Fatal(err)
	}

	dst := make([]byte, h.DecompressedSize)
	if err = Decompress(dst, block[ChecksumSize+HeaderSize:], h.Method); err != nil {
		t.Fatal(err)
	}
	for i := range src {
		if dst[i] != src[i] {
			t.Fatal("byte mismatch at", i)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	const blockSize = 4096
	sizes := []int{0, 1, blockSize - 1, blockSize, 3*blockSize + 7}
	for _, m := range []Method{None, Lz4, Zstd} {
		for _, n := range sizes {
			roundTrip(t, m, payload(n))
		}
	}
}

func TestRoundTripIncompressible(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	src := make([]byte, 1000)
	rnd.Read(src)
	// lz4 falls back to stored for random bytes
	roundTrip(t, Lz4, src)
}

func TestChecksumMismatch(t *testing.T) {
	block, err := Compress(Lz4, payload(500))
	if err != nil {
		t.Fatal(err)
	}
	block[len(block)-1] ^= 1
	if err = Verify(block); !errors.Is(err, ErrCorrupt) {
		t.Fatal("expected ErrCorrupt, got", err)
	}
}

func TestBadHeader(t *testing.T) {
	hdr := make([]byte, HeaderSize)

	hdr[0] = 0x7f
	if _, err := ParseHeader(hdr); !errors.Is(err, ErrCorrupt) {
		t.Fatal("unknown method accepted", err)
	}

	// compressed size below the header's own length
	hdr[0] = byte(Lz4)
	if _, err := ParseHeader(hdr); !errors.Is(err, ErrCorrupt) {
		t.Fatal("undersized block accepted", err)
	}
}

func TestShortDecompression(t *testing.T) {
	block, err := Compress(Zstd, payload(100))
	if err != nil {
		t.Fatal(err)
	}
	dst := make([]byte, 101)
	err = Decompress(dst, block[ChecksumSize+HeaderSize:], Zstd)
	if !errors.Is(err, ErrCorrupt) {
		t.Fatal("size mismatch accepted", err)
	}
}
