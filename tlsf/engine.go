// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Allocator engine (component E): the top-level operations spec §4.E
// describes -- allocate, deallocate, grow_in_place, shrink_in_place --
// built on components A-D. The split/coalesce plumbing is grounded on
// lldb/falloc.go's Alloc/Free/Realloc, generalized from Filer-offset atoms
// to in-memory block addresses.

package tlsf

import (
	"unsafe"

	"github.com/cznic/tlsfcore/tlsf/tlsferr"
)

// Engine is one TLSF heap: a bitmap directory, a free list matrix, and the
// pools that have been inserted into it. The zero value is not usable; use
// New.
type Engine struct {
	cfg    Config
	bitmap *bitmapDirectory
	matrix [][]uintptr // matrix[fl][sl] is the head of that free list, or 0
	pools  []*poolState

	// Trace, if non-nil, is invoked once per mutating operation. See
	// trace.go.
	Trace func(Event)
}

// New validates cfg and returns an empty Engine with no pools inserted.
func New(cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:    cfg,
		bitmap: newBitmapDirectory(cfg.FLLen),
		matrix: make([][]uintptr, cfg.FLLen),
	}
	for fl := range e.matrix {
		e.matrix[fl] = make([]uintptr, cfg.SLLen)
	}
	return e, nil
}

// BlockState reports whether a block is in use, for IterBlocks.
type BlockState int

const (
	BlockFree BlockState = iota
	BlockUsed
)

// BlockInfo describes one physical block, for IterBlocks.
type BlockInfo struct {
	Addr  unsafe.Pointer // payload address
	Size  int64          // payload capacity
	State BlockState
}

// Allocate implements spec §4.E allocate: find or carve a free block of at
// least size bytes whose payload address satisfies align (must be a power
// of two; 0 or granularity means "no extra alignment"), mark it used, and
// return its payload address. ok is false if no pool has room.
func (e *Engine) Allocate(size, align int64) (unsafe.Pointer, bool) {
	if size <= 0 {
		size = 1
	}
	if align <= 0 {
		align = granularity
	}
	if align&(align-1) != 0 {
		panic(&tlsferr.ErrINVAL{Msg: "align must be a power of two", Arg: align})
	}

	payload := roundUp(size, granularity)
	// Free list classes are keyed by total block size, header included.
	search := payload + headerSize

	// If the caller wants stricter-than-granularity alignment, the block
	// we find may have to be front-split so its payload starts on the
	// alignment boundary. Reserve enough extra room for that split to
	// leave a valid (>= minBlockSize) remainder block in the worst case.
	// This is deliberately generous rather than tight: the tightest
	// possible bound depends on how far the found block's payload address
	// happens to already be from an alignment boundary, which isn't known
	// until after find-suitable runs. Reserving align+minBlockSize up
	// front keeps the search and the split logic independent of each
	// other at the cost of occasionally searching a size class higher
	// than strictly necessary.
	if align > granularity {
		search += align + minBlockSize
	}

	addr, ok := e.findSuitable(search)
	if !ok {
		e.trace(Event{Op: OpAllocate, Size: size, Ok: false})
		return nil, false
	}

	fl, sl := e.cfg.mapFloor(blockSize(addr))
	e.freeListRemove(addr, fl, sl)

	if align > granularity {
		addr = e.alignFrontSplit(addr, uintptr(align))
	}

	e.tailSplit(addr, payload)
	e.markUsed(addr)

	e.trace(Event{Op: OpAllocate, Size: size, Ok: true, Addr: addr})
	return payloadAddr(addr), true
}

// alignFrontSplit ensures addr's payload address is a multiple of align,
// front-splitting off a new free block if addr itself doesn't already
// qualify. Returns the (possibly new) address of the block to use.
func (e *Engine) alignFrontSplit(addr uintptr, align uintptr) uintptr {
	want := alignUpUintptr(uintptr(payloadAddr(addr)), align)
	if want == uintptr(payloadAddr(addr)) {
		return addr
	}

	newAddr := want - uintptr(headerSize)
	front := int64(newAddr - addr)

	// A front remainder smaller than minBlockSize can't stand on its own as
	// a free block (spec §4.E step 5: split only if the front slack is >=
	// the minimum block size). Advance to the next alignment boundary
	// instead; align > granularity here, so align >= minBlockSize and one
	// advance always clears it.
	if front > 0 && front < minBlockSize {
		want += uintptr(align)
		newAddr = want - uintptr(headerSize)
		front = int64(newAddr - addr)
	}

	total := blockSize(addr)
	prev := blockPrevPhys(addr)
	last := blockLast(addr)

	setBlockHeader(addr, front, false, false)
	setBlockPrevPhys(addr, prev)

	setBlockHeader(newAddr, total-front, false, last)
	setBlockPrevPhys(newAddr, addr)

	if !last {
		setBlockPrevPhys(nextPhysAddr(newAddr), newAddr)
	}

	fl, sl := e.cfg.mapFloor(front)
	e.freeListInsert(addr, fl, sl)

	return newAddr
}

// tailSplit carves a trailing free block off addr if what remains after
// payload bytes is large enough to stand on its own.
func (e *Engine) tailSplit(addr uintptr, payload int64) {
	total := blockSize(addr)
	remainder := total - headerSize - payload

	if remainder < minBlockSize {
		return
	}

	used := headerSize + payload
	tailAddr := addr + uintptr(used)
	last := blockLast(addr)

	setBlockHeader(addr, used, false, last)
	setBlockHeader(tailAddr, remainder, false, last)
	setBlockPrevPhys(tailAddr, addr)

	if !last {
		setBlockPrevPhys(nextPhysAddr(tailAddr), tailAddr)
	}

	fl, sl := e.cfg.mapFloor(remainder)
	e.freeListInsert(tailAddr, fl, sl)
}

func (e *Engine) markUsed(addr uintptr) {
	setBlockHeader(addr, blockSize(addr), true, blockLast(addr))
	if !blockLast(addr) {
		setBlockPrevPhys(nextPhysAddr(addr), addr)
	}
}

// Deallocate implements spec §4.E deallocate: mark the block at ptr free
// and coalesce it with any free physical neighbor, then file the result
// into the matching free list.
func (e *Engine) Deallocate(ptr unsafe.Pointer) {
	addr := addrOfPayload(ptr)
	if !blockUsed(addr) {
		panic(&tlsferr.ErrInvariant{Kind: "double-free", Detail: "block already free", Off: int64(addr)})
	}

	size := blockSize(addr)
	addr = e.coalesce(addr)

	fl, sl := e.cfg.mapFloor(blockSize(addr))
	e.freeListInsert(addr, fl, sl)

	e.trace(Event{Op: OpDeallocate, Size: size, Ok: true, Addr: addr})
}

// coalesce merges addr with its free physical predecessor and/or successor,
// removing each from its free list before merging, and returns the
// (possibly moved) merged block's address. The returned block is free but
// not yet filed into any free list.
func (e *Engine) coalesce(addr uintptr) uintptr {
	setBlockHeader(addr, blockSize(addr), false, blockLast(addr))

	if !blockLast(addr) {
		next := nextPhysAddr(addr)
		if !blockUsed(next) {
			fl, sl := e.cfg.mapFloor(blockSize(next))
			e.freeListRemove(next, fl, sl)

			last := blockLast(next)
			setBlockHeader(addr, blockSize(addr)+blockSize(next), false, last)
			if !last {
				setBlockPrevPhys(nextPhysAddr(addr), addr)
			}
		}
	}

	if prev := blockPrevPhys(addr); prev != 0 && !blockUsed(prev) {
		fl, sl := e.cfg.mapFloor(blockSize(prev))
		e.freeListRemove(prev, fl, sl)

		last := blockLast(addr)
		setBlockHeader(prev, blockSize(prev)+blockSize(addr), false, last)
		if !last {
			setBlockPrevPhys(nextPhysAddr(prev), prev)
		}
		addr = prev
	}

	return addr
}

// SizeOfAllocation returns the usable payload size of the block at ptr.
func (e *Engine) SizeOfAllocation(ptr unsafe.Pointer) int64 {
	addr := addrOfPayload(ptr)
	return blockSize(addr) - headerSize
}

// GrowInPlace implements spec §4.E grow_in_place: extend the block at ptr
// to cover newSize bytes by absorbing its free physical successor, without
// moving the payload. ok is false if the successor is used, is the
// sentinel, or isn't big enough.
func (e *Engine) GrowInPlace(ptr unsafe.Pointer, newSize int64) bool {
	addr := addrOfPayload(ptr)
	cur := blockSize(addr) - headerSize
	if newSize <= cur {
		return true
	}

	if blockLast(addr) {
		e.trace(Event{Op: OpGrow, Size: newSize, Ok: false, Addr: addr})
		return false
	}

	next := nextPhysAddr(addr)
	if blockUsed(next) {
		e.trace(Event{Op: OpGrow, Size: newSize, Ok: false, Addr: addr})
		return false
	}

	payload := roundUp(newSize, granularity)
	available := blockSize(addr) + blockSize(next) - headerSize
	if payload > available {
		e.trace(Event{Op: OpGrow, Size: newSize, Ok: false, Addr: addr})
		return false
	}

	fl, sl := e.cfg.mapFloor(blockSize(next))
	e.freeListRemove(next, fl, sl)

	last := blockLast(next)
	setBlockHeader(addr, blockSize(addr)+blockSize(next), true, last)
	if !last {
		setBlockPrevPhys(nextPhysAddr(addr), addr)
	}

	e.tailSplit(addr, payload)
	e.markUsed(addr)

	e.trace(Event{Op: OpGrow, Size: newSize, Ok: true, Addr: addr})
	return true
}

// ShrinkInPlace implements spec §4.E shrink_in_place: reduce the block at
// ptr to newSize bytes, releasing the freed tail (coalesced with a free
// successor if any) back to the free lists. newSize must be <= the
// block's current payload size.
func (e *Engine) ShrinkInPlace(ptr unsafe.Pointer, newSize int64) {
	addr := addrOfPayload(ptr)
	payload := roundUp(newSize, granularity)

	e.tailSplit(addr, payload)
	e.markUsed(addr)

	if !blockLast(addr) {
		next := nextPhysAddr(addr)
		if !blockUsed(next) {
			// next is already filed in the free list matrix -- either
			// tailSplit just inserted it, or it was a pre-existing free
			// neighbor -- so it must come back out before coalesce, which
			// only unlinks next's *other* neighbor, not next itself.
			fl, sl := e.cfg.mapFloor(blockSize(next))
			e.freeListRemove(next, fl, sl)

			merged := e.coalesce(next)
			fl, sl = e.cfg.mapFloor(blockSize(merged))
			e.freeListInsert(merged, fl, sl)
		}
	}

	e.trace(Event{Op: OpShrink, Size: newSize, Ok: true, Addr: addr})
}

// IterBlocks walks every physical block in every inserted pool, in an
// unspecified order across pools, calling fn once per block until fn
// returns false. Pool sentinels are not reported.
func (e *Engine) IterBlocks(fn func(BlockInfo) bool) {
	for _, p := range e.pools {
		addr := p.start
		for {
			info := BlockInfo{
				Addr: payloadAddr(addr),
				Size: blockSize(addr) - headerSize,
			}
			if blockUsed(addr) {
				info.State = BlockUsed
			} else {
				info.State = BlockFree
			}

			if blockLast(addr) {
				break
			}
			if !fn(info) {
				return
			}
			addr = nextPhysAddr(addr)
		}
	}
}
