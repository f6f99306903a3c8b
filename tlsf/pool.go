// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tlsf

import (
	"fmt"
	"unsafe"

	"github.com/cznic/mathutil"
	"github.com/cznic/tlsfcore/tlsf/tlsferr"
)

// poolState tracks one caller-supplied pool. Engine retains buf itself
// (not just its base address) so the backing array stays reachable for as
// long as the Engine is -- the pool persists for the Engine's lifetime
// (spec §3 Lifecycle), mirroring how lldb.MemFiler owns its backing pages
// rather than an address into them.
type poolState struct {
	buf   []byte  // keeps the backing array alive
	start uintptr // header address of the pool's first real block
	size  int64   // usable bytes from start through (not including) the sentinel's end
}

// InsertPool carves buf into one large free block followed by a sentinel,
// per spec §4.E insert_pool. buf must not be touched by the caller again
// once InsertPool succeeds.
func (e *Engine) InsertPool(buf []byte) error {
	if len(buf) == 0 {
		return &tlsferr.ErrTooSmall{Have: 0, Need: minBlockSize + minBlockSize}
	}

	base := uintptr(unsafe.Pointer(&buf[0]))
	start := alignUpUintptr(base, uintptr(granularity))
	end := alignDownUintptr(base+uintptr(len(buf)), uintptr(granularity))

	if end <= start || int64(end-start) < minBlockSize+minBlockSize {
		have := mathutil.MaxInt64(0, int64(end-start))
		return &tlsferr.ErrTooSmall{Have: have, Need: minBlockSize + minBlockSize}
	}

	region := int64(end - start)
	freeSize := region - minBlockSize
	if fl, _, ok := e.cfg.mapCeil(freeSize); !ok || fl >= e.cfg.FLLen {
		return &tlsferr.ErrINVAL{
			Msg: fmt.Sprintf("pool of %d usable bytes exceeds this Config's MaxSize (%d)", freeSize, e.cfg.MaxSize()),
			Arg: freeSize,
		}
	}

	freeAddr := start
	sentinelAddr := start + uintptr(freeSize)

	setBlockHeader(freeAddr, freeSize, false, false)
	setBlockPrevPhys(freeAddr, 0)

	setBlockHeader(sentinelAddr, minBlockSize, true, true)
	setBlockPrevPhys(sentinelAddr, freeAddr)

	e.pools = append(e.pools, &poolState{buf: buf, start: start, size: region})

	fl, sl := e.cfg.mapFloor(freeSize)
	e.freeListInsert(freeAddr, fl, sl)

	e.trace(Event{Op: OpInsertPool, Size: region, Ok: true, Addr: freeAddr})
	return nil
}
