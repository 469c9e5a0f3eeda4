package mmap

// MMap is a read-only view of a file's bytes.
type MMap []byte
