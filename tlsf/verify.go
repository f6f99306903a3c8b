// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Structural verification, grounded on lldb.Allocator.Verify's phased
// approach (walk physical order, cross-check the free lists, tally stats)
// but simplified: no on-disk "lost free block" bitmap is needed because
// every free block here is already reachable from pools[i].start by
// physical-order iteration, so an in-memory marker set is all we need.

package tlsf

import "github.com/cznic/tlsfcore/tlsf/tlsferr"

// AllocStats summarizes one Verify pass.
type AllocStats struct {
	TotalBytes int64
	UsedBytes  int64
	FreeBytes  int64
	UsedBlocks int
	FreeBlocks int
}

// Verify walks every pool's blocks in physical order and cross-checks them
// against the free list matrix, invoking log for every invariant violation
// found. If log returns false, Verify stops early; otherwise it keeps
// scanning to the end. Either way it returns the first error seen (if
// any), along with the stats gathered up to where scanning stopped.
func (e *Engine) Verify(log func(error) bool) (*AllocStats, error) {
	stats := &AllocStats{}
	listed := make(map[uintptr]bool)
	for fl := range e.matrix {
		for sl := range e.matrix[fl] {
			for addr := e.matrix[fl][sl]; addr != 0; addr = freeNext(addr) {
				listed[addr] = true
			}
		}
	}

	var firstErr error
	report := func(kind, detail string, off int64) bool {
		err := &tlsferr.ErrInvariant{Kind: kind, Detail: detail, Off: off}
		if firstErr == nil {
			firstErr = err
		}
		return log(err)
	}

	for _, p := range e.pools {
		stats.TotalBytes += p.size

		addr := p.start
		var prev uintptr
		for {
			size := blockSize(addr)
			used := blockUsed(addr)
			last := blockLast(addr)

			if size < minBlockSize {
				if !report("block-too-small", "block smaller than the minimum", int64(addr-p.start)) {
					return stats, firstErr
				}
			}

			if size%granularity != 0 {
				if !report("misaligned-size", "block size not a multiple of granularity", int64(addr-p.start)) {
					return stats, firstErr
				}
			}

			if prev != 0 && blockPrevPhys(addr) != prev {
				if !report("bad-prev-phys", "prevPhys does not match the actual predecessor", int64(addr-p.start)) {
					return stats, firstErr
				}
			}

			if last {
				break
			}

			if used {
				stats.UsedBlocks++
				stats.UsedBytes += size - headerSize
				if listed[addr] {
					if !report("used-block-listed", "used block found in a free list", int64(addr-p.start)) {
						return stats, firstErr
					}
				}
			} else {
				stats.FreeBlocks++
				stats.FreeBytes += size - headerSize
				if !listed[addr] {
					if !report("free-block-unlisted", "free block missing from its free list", int64(addr-p.start)) {
						return stats, firstErr
					}
				}

				fl, sl := e.cfg.mapFloor(size)
				if fl >= e.cfg.FLLen || (e.bitmap.sl[fl]>>uint(sl))&1 == 0 {
					if !report("bitmap-mismatch", "free block's size class bit is not set", int64(addr-p.start)) {
						return stats, firstErr
					}
				}

				if !blockUsed(nextPhysAddr(addr)) {
					if !report("uncoalesced", "adjacent free blocks were not merged", int64(addr-p.start)) {
						return stats, firstErr
					}
				}
			}

			prev = addr
			addr = nextPhysAddr(addr)
		}
	}

	return stats, firstErr
}
