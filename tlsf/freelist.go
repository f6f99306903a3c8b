// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Free list matrix (component D): FLLen x SLLen head pointers into
// doubly-linked lists of free blocks, paired one-to-one with the bitmap
// directory the way lldb/flt.go pairs its FLT slot heads with the
// "lost free block" bitmap used by Allocator.Verify.

package tlsf

// freeListInsert implements spec §4.C Insert: push addr at the head of
// free_lists[fl][sl], LIFO, and set the matching bitmap bits.
func (e *Engine) freeListInsert(addr uintptr, fl, sl int) {
	head := e.matrix[fl][sl]
	setFreeNext(addr, head)
	setFreePrev(addr, 0)
	if head != 0 {
		setFreePrev(head, addr)
	}
	e.matrix[fl][sl] = addr
	e.bitmap.setBit(fl, sl)
}

// freeListRemove implements spec §4.C Remove: splice addr out of its list
// and clear bitmap bits if the list became empty.
func (e *Engine) freeListRemove(addr uintptr, fl, sl int) {
	prev := freePrev(addr)
	next := freeNext(addr)

	if prev != 0 {
		setFreeNext(prev, next)
	} else {
		e.matrix[fl][sl] = next
	}

	if next != 0 {
		setFreePrev(next, prev)
	}

	if e.matrix[fl][sl] == 0 {
		e.bitmap.clearBit(fl, sl)
	}

	setFreeNext(addr, 0)
	setFreePrev(addr, 0)
}

// findSuitable implements spec §4.C Find-suitable end to end: locate the
// smallest free list whose blocks are guaranteed >= minSize and return its
// head, or ok==false if none exists.
func (e *Engine) findSuitable(minSize int64) (addr uintptr, ok bool) {
	fl, sl, ok := e.cfg.mapCeil(minSize)
	if !ok {
		return 0, false
	}

	fl, sl, ok = e.bitmap.findSuitable(fl, sl)
	if !ok {
		return 0, false
	}

	return e.matrix[fl][sl], true
}
