// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Size class index (component B): map a byte size to/from the (fl, sl)
// pair that names its segregated free list. Grounded on the slot-table
// idea in lldb/flt.go (a sorted table of size thresholds mapping a
// request to a bucket) but computed in O(1) via a single count-leading-
// -zeros instead of walking or binary-searching a table, per spec §4.B.

package tlsf

import "math/bits"

// floorLog2 returns floor(log2(n)) for n >= 1.
func floorLog2(n int64) int {
	return bits.Len64(uint64(n)) - 1
}

// mapFloor implements spec §4.B map_floor: the class whose range contains
// size, rounding size down to the class boundary. Used when inserting a
// free block of a known size.
func (c Config) mapFloor(size int64) (fl, sl int) {
	if size < c.smallSize() {
		return 0, int(size / granularity)
	}

	f := floorLog2(size)
	sli := c.sli()
	s := (size >> (uint(f) - sli)) & int64(c.SLLen-1)
	return f - c.smallLog2() + 1, int(s)
}

// mapCeil implements spec §4.B map_ceil: rounds size up so the first block
// drawn from the returned class is guaranteed to satisfy a request for
// size. ok is false if size exceeds what this Config's tables can index.
func (c Config) mapCeil(size int64) (fl, sl int, ok bool) {
	if size > c.MaxSize() {
		return 0, 0, false
	}

	if size < c.smallSize() {
		fl, sl = c.mapFloor(roundUp(size, granularity))
		return fl, sl, true
	}

	f := floorLog2(size)
	sli := c.sli()
	round := (int64(1) << (uint(f) - sli)) - 1
	adjusted := size + round
	if adjusted < size {
		return 0, 0, false
	}

	// adjusted is only an intermediate value used to re-derive (fl, sl);
	// it can legitimately exceed MaxSize() (the round-up carries into the
	// next doubling range) while still landing on a valid, in-range
	// class -- so the only real bound to check is fl itself.
	fl, sl = c.mapFloor(adjusted)
	if fl >= c.FLLen {
		return 0, 0, false
	}

	return fl, sl, true
}
