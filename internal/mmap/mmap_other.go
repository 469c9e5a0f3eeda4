//go:build !(darwin || dragonfly || freebsd || linux || openbsd || solaris || netbsd)

package mmap

import (
	"errors"
	"os"
)

var errUnsupported = errors.New("blockstream: mmap not supported on this platform")

func Map(f *os.File) (MMap, error) {
	return nil, errUnsupported
}

func (m MMap) Unmap() error {
	return nil
}
