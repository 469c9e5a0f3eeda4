package file

import (
	"io"
	"os"

	"github.com/prabhah/blockstream/internal/mmap"
)

// Source is a random-access byte source for a block stream.
type Source interface {
	io.ReaderAt
	Size() int64
	Close() error
}

// Open picks the read strategy for path: plain pread below mmapThreshold,
// a memory mapping at or above it. A threshold of 0 disables mapping.
// Mapping failures fall back to pread, mmap is an optimization only.
func Open(path string, estimatedSize, mmapThreshold int) (Source, error) {
	if mmapThreshold > 0 && estimatedSize >= mmapThreshold {
		if src, err := openMmap(path); err == nil {
			return src, nil
		}
	}
	return openFile(path)
}

type fileSource struct {
	f    *os.File
	size int64
}

func openFile(path string) (*fileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &fileSource{f: f, size: st.Size()}, nil
}

func (s *fileSource) ReadAt(p []byte, off int64) (int, error) {
	return s.f.ReadAt(p, off)
}

func (s *fileSource) Size() int64 {
	return s.size
}

func (s *fileSource) Close() error {
	return s.f.Close()
}

type mmapSource struct {
	f *os.File
	m mmap.MMap
}

func openMmap(path string) (*mmapSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	m, err := mmap.Map(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &mmapSource{f: f, m: m}, nil
}

func (s *mmapSource) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(s.m)) {
		return 0, io.EOF
	}
	n := copy(p, s.m[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (s *mmapSource) Size() int64 {
	return int64(len(s.m))
}

func (s *mmapSource) Close() error {
	err1 := s.m.Unmap()
	err2 := s.f.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
