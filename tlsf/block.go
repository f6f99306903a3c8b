// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// In-band block header encoding (component A). Blocks are identified by
// the address of their header, addressed here as a uintptr the way
// lldb/falloc.go addresses blocks by atom handle -- except the handle is a
// real address into a caller-owned []byte rather than an offset into a
// Filer, since the core works directly against in-memory pools.
//
// This is the confined unsafe core the design notes call for: every other
// file operates only through the accessors below.

package tlsf

import "unsafe"

const (
	wordSize = int64(unsafe.Sizeof(uintptr(0)))

	// granularity (G): minimum alignment and size quantum. Two words is
	// enough to hold size+flags and prevPhys, and also enough to hold
	// the free-list link pair, so G == 2*wordSize on every supported
	// platform.
	granularity = 2 * wordSize

	// headerSize is the space every block -- free or used -- spends on
	// size/flags and the physical-previous link.
	headerSize = 2 * wordSize

	// minBlockSize is headerSize plus room for the free-list links
	// (spec §4.A: "4 words, rounded up to G").
	minBlockSize = headerSize + 2*wordSize
)

const (
	flagUsed byte = 1 << 0
	flagLast byte = 1 << 1
	flagMask      = int64(granularity - 1)
)

func loadWord(addr uintptr, off int64) uint64 {
	return *(*uint64)(unsafe.Pointer(addr + uintptr(off)))
}

func storeWord(addr uintptr, off int64, v uint64) {
	*(*uint64)(unsafe.Pointer(addr + uintptr(off))) = v
}

// blockSize returns the total size of the block (header included).
func blockSize(addr uintptr) int64 {
	return int64(loadWord(addr, 0)) &^ flagMask
}

func blockUsed(addr uintptr) bool {
	return loadWord(addr, 0)&uint64(flagUsed) != 0
}

func blockLast(addr uintptr) bool {
	return loadWord(addr, 0)&uint64(flagLast) != 0
}

// setBlockHeader writes size (which must already be a multiple of
// granularity) together with the used/last flags.
func setBlockHeader(addr uintptr, size int64, used, last bool) {
	v := uint64(size)
	if used {
		v |= uint64(flagUsed)
	}
	if last {
		v |= uint64(flagLast)
	}
	storeWord(addr, 0, v)
}

func blockPrevPhys(addr uintptr) uintptr {
	return uintptr(loadWord(addr, wordSize))
}

func setBlockPrevPhys(addr, prev uintptr) {
	storeWord(addr, wordSize, uint64(prev))
}

// nextPhysAddr is the header address of the block immediately following
// addr in the same pool. Valid to call on any block except one whose
// LAST_IN_POOL flag is set (the sentinel has no successor).
func nextPhysAddr(addr uintptr) uintptr {
	return addr + uintptr(blockSize(addr))
}

func freeNext(addr uintptr) uintptr {
	return uintptr(loadWord(addr, 2*wordSize))
}

func setFreeNext(addr, v uintptr) {
	storeWord(addr, 2*wordSize, uint64(v))
}

func freePrev(addr uintptr) uintptr {
	return uintptr(loadWord(addr, 3*wordSize))
}

func setFreePrev(addr, v uintptr) {
	storeWord(addr, 3*wordSize, uint64(v))
}

func payloadAddr(addr uintptr) unsafe.Pointer {
	return unsafe.Pointer(addr + uintptr(headerSize))
}

func addrOfPayload(p unsafe.Pointer) uintptr {
	return uintptr(p) - uintptr(headerSize)
}

// roundUp rounds n up to the next multiple of g (g a power of two).
func roundUp(n, g int64) int64 {
	return (n + g - 1) &^ (g - 1)
}

func alignUpUintptr(p, align uintptr) uintptr {
	return (p + align - 1) &^ (align - 1)
}

func alignDownUintptr(p, align uintptr) uintptr {
	return p &^ (align - 1)
}
