// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tlsf

import (
	"flag"
	"math/rand"
	"sort"
	"testing"
	"unsafe"

	"github.com/cznic/sortutil"
)

var (
	rndPoolSize = flag.Int("poolsize", 1<<20, "random Engine test pool size")
	rndN        = flag.Int("n", 2000, "random Engine test operation count")
	rndMaxAlloc = flag.Int("maxalloc", 4096, "random Engine test max single allocation size")
)

// paranoidEngine wraps an *Engine and calls Verify after every mutating
// call, failing the test immediately with the accumulated errors --
// the in-memory analogue of lldb's pAllocator, which re-verifies the
// Allocator after every Alloc/Free/Realloc during its randomized tests.
type paranoidEngine struct {
	*Engine
	t *testing.T
}

func (p *paranoidEngine) check(op string) {
	p.t.Helper()
	var errs []error
	_, err := p.Engine.Verify(func(e error) bool {
		errs = append(errs, e)
		return len(errs) < 10
	})
	if err != nil {
		p.t.Fatalf("Verify after %s found %d invariant violations, first: %v", op, len(errs), errs[0])
	}
}

func (p *paranoidEngine) Allocate(size, align int64) (unsafe.Pointer, bool) {
	ptr, ok := p.Engine.Allocate(size, align)
	p.check("Allocate")
	return ptr, ok
}

func (p *paranoidEngine) Deallocate(ptr unsafe.Pointer) {
	p.Engine.Deallocate(ptr)
	p.check("Deallocate")
}

func TestRandomAllocDeallocSequence(t *testing.T) {
	e, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	buf := make([]byte, *rndPoolSize)
	if err := e.InsertPool(buf); err != nil {
		t.Fatalf("InsertPool: %v", err)
	}
	p := &paranoidEngine{Engine: e, t: t}

	rng := rand.New(rand.NewSource(1))
	live := make([]unsafe.Pointer, 0, *rndN)

	for i := 0; i < *rndN; i++ {
		if len(live) > 0 && (rng.Intn(3) == 0 || !hasRoom(e)) {
			idx := rng.Intn(len(live))
			p.Deallocate(live[idx])
			live[idx] = live[len(live)-1]
			live = live[:len(live)-1]
			continue
		}

		size := int64(rng.Intn(*rndMaxAlloc) + 1)
		ptr, ok := p.Allocate(size, 0)
		if !ok {
			continue
		}
		if sz := e.SizeOfAllocation(ptr); sz < size {
			t.Fatalf("SizeOfAllocation(%v) = %d, want >= %d", ptr, sz, size)
		}
		live = append(live, ptr)
	}

	for _, ptr := range live {
		p.Deallocate(ptr)
	}

	var sizes sortutil.Int64Slice
	e.IterBlocks(func(b BlockInfo) bool {
		sizes = append(sizes, b.Size)
		return true
	})
	sort.Sort(sizes)
	if len(sizes) != 1 {
		t.Fatalf("after freeing everything: %d blocks remain, want 1 fully-coalesced block", len(sizes))
	}
}

// hasRoom is a cheap heuristic the fuzzer uses to bias towards freeing once
// the pool looks close to full, avoiding long Allocate-fails-every-time
// tails that would otherwise dominate the iteration budget.
func hasRoom(e *Engine) bool {
	var free int64
	e.IterBlocks(func(b BlockInfo) bool {
		if b.State == BlockFree {
			free += b.Size
		}
		return true
	})
	return free > int64(*rndMaxAlloc)*2
}

func TestRandomWithAlignment(t *testing.T) {
	e, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	buf := make([]byte, *rndPoolSize)
	if err := e.InsertPool(buf); err != nil {
		t.Fatalf("InsertPool: %v", err)
	}
	p := &paranoidEngine{Engine: e, t: t}

	rng := rand.New(rand.NewSource(2))
	aligns := []int64{granularity, 32, 64, 128, 256, 512}
	live := make([]unsafe.Pointer, 0, 256)

	for i := 0; i < *rndN/4; i++ {
		if len(live) > 0 && rng.Intn(2) == 0 {
			idx := rng.Intn(len(live))
			p.Deallocate(live[idx])
			live[idx] = live[len(live)-1]
			live = live[:len(live)-1]
			continue
		}

		align := aligns[rng.Intn(len(aligns))]
		size := int64(rng.Intn(512) + 1)
		ptr, ok := p.Allocate(size, align)
		if !ok {
			continue
		}
		if uintptr(ptr)%uintptr(align) != 0 {
			t.Fatalf("Allocate(%d, align=%d): address %p misaligned", size, align, ptr)
		}
		live = append(live, ptr)
	}

	for _, ptr := range live {
		p.Deallocate(ptr)
	}
}
