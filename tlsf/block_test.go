// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tlsf

import "testing"

func TestBlockHeaderRoundTrip(t *testing.T) {
	buf := make([]byte, 4*granularity)
	addr := alignUpUintptr(bufAddr(buf), uintptr(granularity))

	setBlockHeader(addr, 3*granularity, true, false)
	setBlockPrevPhys(addr, 0x1234)

	if g, e := blockSize(addr), 3*granularity; g != e {
		t.Fatalf("blockSize: got %d, want %d", g, e)
	}
	if !blockUsed(addr) {
		t.Fatal("blockUsed: got false, want true")
	}
	if blockLast(addr) {
		t.Fatal("blockLast: got true, want false")
	}
	if g, e := blockPrevPhys(addr), uintptr(0x1234); g != e {
		t.Fatalf("blockPrevPhys: got %#x, want %#x", g, e)
	}

	setBlockHeader(addr, 3*granularity, false, true)
	if blockUsed(addr) {
		t.Fatal("blockUsed: got true, want false")
	}
	if !blockLast(addr) {
		t.Fatal("blockLast: got false, want true")
	}
}

func TestFreeListLinks(t *testing.T) {
	buf := make([]byte, 4*granularity)
	addr := alignUpUintptr(bufAddr(buf), uintptr(granularity))

	setFreeNext(addr, 0xabc)
	setFreePrev(addr, 0xdef)
	if g, e := freeNext(addr), uintptr(0xabc); g != e {
		t.Fatalf("freeNext: got %#x, want %#x", g, e)
	}
	if g, e := freePrev(addr), uintptr(0xdef); g != e {
		t.Fatalf("freePrev: got %#x, want %#x", g, e)
	}
}

func TestRoundUp(t *testing.T) {
	cases := []struct{ n, g, want int64 }{
		{0, 16, 0},
		{1, 16, 16},
		{16, 16, 16},
		{17, 16, 32},
	}
	for _, c := range cases {
		if g := roundUp(c.n, c.g); g != c.want {
			t.Errorf("roundUp(%d, %d): got %d, want %d", c.n, c.g, g, c.want)
		}
	}
}

func TestAlignUpDown(t *testing.T) {
	if g, e := alignUpUintptr(5, 16), uintptr(16); g != e {
		t.Errorf("alignUpUintptr: got %d, want %d", g, e)
	}
	if g, e := alignDownUintptr(31, 16), uintptr(16); g != e {
		t.Errorf("alignDownUintptr: got %d, want %d", g, e)
	}
}
