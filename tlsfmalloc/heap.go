// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tlsfmalloc

import (
	"fmt"
	"log"
	"sync"
	"unsafe"

	"github.com/cznic/tlsfcore/tlsf"
)

// Options amend Heap's behavior the way dbm.Options amend DB's -- a struct
// of knobs checked once, on New, rather than a chain of functional options.
type Options struct {
	// Config is the tlsf.Config to build the Engine with. The zero value
	// means tlsf.DefaultConfig().
	Config tlsf.Config

	// Source acquires and releases pool memory. HeapPoolSource{} if nil.
	Source PoolSource

	// Logger, if non-nil, receives one line per tlsf.Event the Engine
	// traces (pool insertion, allocate, deallocate, grow/shrink in place).
	Logger *log.Logger

	checked bool
}

func (o *Options) check() error {
	if o.checked {
		return nil
	}

	if o.Config == (tlsf.Config{}) {
		o.Config = tlsf.DefaultConfig()
	}
	if o.Source == nil {
		o.Source = HeapPoolSource{}
	}

	o.checked = true
	return nil
}

// Heap is a mutex-guarded tlsf.Engine fronted by a malloc/free style API,
// the "Big Kernel Lock" pattern dbm.DB uses over lldb.Allocator.
type Heap struct {
	bkl    sync.Mutex
	engine *tlsf.Engine
	opts   Options
	pools  [][]byte
}

// New returns an empty Heap with no pools. Grow must be called at least
// once (directly or via EnsureCapacity) before Malloc can succeed.
func New(opts Options) (*Heap, error) {
	if err := opts.check(); err != nil {
		return nil, err
	}

	e, err := tlsf.New(opts.Config)
	if err != nil {
		return nil, err
	}

	h := &Heap{engine: e, opts: opts}
	e.Trace = h.logEvent
	return h, nil
}

func (h *Heap) logEvent(ev tlsf.Event) {
	if h.opts.Logger == nil {
		return
	}
	h.opts.Logger.Printf("tlsf: %s size=%d ok=%v addr=%#x", ev.Op, ev.Size, ev.Ok, ev.Addr)
}

// Grow acquires a new pool of size bytes from the configured PoolSource and
// inserts it into the heap, growing its total capacity.
func (h *Heap) Grow(size int64) error {
	buf, err := h.opts.Source.Acquire(size)
	if err != nil {
		return fmt.Errorf("tlsfmalloc: acquire pool: %w", err)
	}

	h.bkl.Lock()
	defer h.bkl.Unlock()

	if err := h.engine.InsertPool(buf); err != nil {
		h.opts.Source.Release(buf)
		return err
	}

	h.pools = append(h.pools, buf)
	return nil
}

// EnsureCapacity grows the heap by at least size bytes if a single
// best-effort Malloc-sized Allocate probe of that size currently fails.
// It's a convenience for callers that don't want to size pools up front.
func (h *Heap) EnsureCapacity(size int64) error {
	h.bkl.Lock()
	p, ok := h.engine.Allocate(size, 0)
	if ok {
		h.engine.Deallocate(p)
	}
	h.bkl.Unlock()

	if ok {
		return nil
	}

	return h.Grow(size + size/4 + minGrowth)
}

const minGrowth = 1 << 16

// Malloc returns size bytes with default alignment, or nil if the heap has
// no room (callers wanting automatic growth should call EnsureCapacity
// first).
func (h *Heap) Malloc(size int64) unsafe.Pointer {
	h.bkl.Lock()
	defer h.bkl.Unlock()

	p, ok := h.engine.Allocate(size, 0)
	if !ok {
		return nil
	}
	return p
}

// MallocAligned is Malloc with an explicit alignment, which must be a
// power of two.
func (h *Heap) MallocAligned(size, align int64) unsafe.Pointer {
	h.bkl.Lock()
	defer h.bkl.Unlock()

	p, ok := h.engine.Allocate(size, align)
	if !ok {
		return nil
	}
	return p
}

// Free releases the block at ptr, which must have come from this Heap and
// not have been freed already.
func (h *Heap) Free(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}

	h.bkl.Lock()
	defer h.bkl.Unlock()
	h.engine.Deallocate(ptr)
}

// Realloc resizes the block at ptr to newSize, growing or shrinking it in
// place when possible and falling back to allocate-copy-free otherwise. ptr
// may be nil, in which case Realloc behaves like Malloc.
func (h *Heap) Realloc(ptr unsafe.Pointer, newSize int64) unsafe.Pointer {
	if ptr == nil {
		return h.Malloc(newSize)
	}

	h.bkl.Lock()
	cur := h.engine.SizeOfAllocation(ptr)

	if newSize <= cur {
		h.engine.ShrinkInPlace(ptr, newSize)
		h.bkl.Unlock()
		return ptr
	}

	if h.engine.GrowInPlace(ptr, newSize) {
		h.bkl.Unlock()
		return ptr
	}

	np, ok := h.engine.Allocate(newSize, 0)
	h.bkl.Unlock()
	if !ok {
		return nil
	}

	copyBytes(np, ptr, cur)
	h.Free(ptr)
	return np
}

func copyBytes(dst, src unsafe.Pointer, n int64) {
	d := unsafe.Slice((*byte)(dst), n)
	s := unsafe.Slice((*byte)(src), n)
	copy(d, s)
}

// Stats runs a structural Verify pass and returns its AllocStats. Intended
// for diagnostics and tests, not the hot path.
func (h *Heap) Stats() (*tlsf.AllocStats, error) {
	h.bkl.Lock()
	defer h.bkl.Unlock()

	return h.engine.Verify(func(error) bool { return true })
}

// Close releases every pool back to the configured PoolSource. The Heap
// must not be used afterwards.
func (h *Heap) Close() error {
	h.bkl.Lock()
	defer h.bkl.Unlock()

	var firstErr error
	for _, buf := range h.pools {
		if err := h.opts.Source.Release(buf); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	h.pools = nil
	return firstErr
}
