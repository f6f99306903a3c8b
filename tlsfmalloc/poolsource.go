// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tlsfmalloc

import (
	"fmt"
	"os"
	"sync"
	"unsafe"

	"github.com/cznic/fileutil"
	"golang.org/x/sys/unix"
)

// PoolSource acquires and releases the backing memory for tlsf pools. It
// plays the role lldb.Filer plays for the allocator's persistent storage,
// except a pool source hands out raw []byte rather than an addressed I/O
// stream.
type PoolSource interface {
	// Acquire returns a new []byte of at least size bytes, ready to be
	// passed to (*tlsf.Engine).InsertPool.
	Acquire(size int64) ([]byte, error)

	// Release returns a buffer previously returned by Acquire. The
	// backing memory must not be touched by Acquire's caller afterwards.
	Release(buf []byte) error
}

// HeapPoolSource acquires pools from the Go heap via make([]byte, ...). It
// is the simplest PoolSource and the one Heap uses by default; Release is a
// nop and lets the garbage collector reclaim the memory once nothing else
// references it.
type HeapPoolSource struct{}

func (HeapPoolSource) Acquire(size int64) ([]byte, error) {
	return make([]byte, size), nil
}

func (HeapPoolSource) Release([]byte) error { return nil }

// MappedPoolSource backs each pool with its own temp file, mmap'd
// MAP_SHARED. Unlike HeapPoolSource, Release actually returns the pages to
// the OS: it punches a hole over the whole file with fileutil.PunchHole
// before unmapping and removing it, the same hole-punching primitive
// lldb.SimpleFileFiler.PunchHole uses to keep sparse files sparse.
type MappedPoolSource struct {
	dir string // os.TempDir() if empty

	mu    sync.Mutex
	files map[uintptr]*os.File // keyed by the address of buf[0]
}

// NewMappedPoolSource returns a MappedPoolSource that creates its backing
// files in dir (the OS default temp directory if dir is empty).
func NewMappedPoolSource(dir string) *MappedPoolSource {
	return &MappedPoolSource{dir: dir, files: map[uintptr]*os.File{}}
}

func (s *MappedPoolSource) Acquire(size int64) ([]byte, error) {
	f, err := os.CreateTemp(s.dir, "tlsfmalloc-pool-")
	if err != nil {
		return nil, fmt.Errorf("tlsfmalloc: create pool file: %w", err)
	}

	ok := false
	defer func() {
		if !ok {
			f.Close()
			os.Remove(f.Name())
		}
	}()

	if err := f.Truncate(size); err != nil {
		return nil, fmt.Errorf("tlsfmalloc: truncate pool file: %w", err)
	}

	buf, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("tlsfmalloc: mmap pool file: %w", err)
	}

	s.mu.Lock()
	s.files[bufAddr(buf)] = f
	s.mu.Unlock()

	ok = true
	return buf, nil
}

func (s *MappedPoolSource) Release(buf []byte) error {
	key := bufAddr(buf)

	s.mu.Lock()
	f := s.files[key]
	delete(s.files, key)
	s.mu.Unlock()

	if f == nil {
		return fmt.Errorf("tlsfmalloc: Release: buffer not acquired from this source")
	}

	var firstErr error
	note := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	note(fileutil.PunchHole(f, 0, int64(len(buf))))
	note(unix.Munmap(buf))
	note(f.Close())
	note(os.Remove(f.Name()))
	return firstErr
}

func bufAddr(buf []byte) uintptr {
	if len(buf) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&buf[0]))
}
