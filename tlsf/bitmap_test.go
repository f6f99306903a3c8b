// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tlsf

import "testing"

func TestBitmapSetClearFind(t *testing.T) {
	d := newBitmapDirectory(8)

	if _, _, ok := d.findSuitable(0, 0); ok {
		t.Fatal("findSuitable on empty directory: ok = true")
	}

	d.setBit(3, 5)
	d.setBit(3, 2)
	d.setBit(6, 0)

	fl, sl, ok := d.findSuitable(3, 0)
	if !ok || fl != 3 || sl != 2 {
		t.Fatalf("findSuitable(3, 0): got (%d, %d, %v), want (3, 2, true)", fl, sl, ok)
	}

	fl, sl, ok = d.findSuitable(3, 3)
	if !ok || fl != 3 || sl != 5 {
		t.Fatalf("findSuitable(3, 3): got (%d, %d, %v), want (3, 5, true)", fl, sl, ok)
	}

	fl, sl, ok = d.findSuitable(4, 0)
	if !ok || fl != 6 || sl != 0 {
		t.Fatalf("findSuitable(4, 0): got (%d, %d, %v), want (6, 0, true)", fl, sl, ok)
	}

	d.clearBit(3, 2)
	fl, sl, ok = d.findSuitable(3, 0)
	if !ok || fl != 3 || sl != 5 {
		t.Fatalf("after clearBit(3,2): findSuitable(3,0) got (%d, %d, %v), want (3, 5, true)", fl, sl, ok)
	}

	d.clearBit(3, 5)
	fl, sl, ok = d.findSuitable(3, 0)
	if !ok || fl != 6 || sl != 0 {
		t.Fatalf("after clearing all of row 3: findSuitable(3, 0) got (%d, %d, %v), want (6, 0, true)", fl, sl, ok)
	}
	if d.fl&(1<<3) != 0 {
		t.Fatal("fl bit 3 still set after its row emptied")
	}

	fl, sl, ok = d.findSuitable(0, 0)
	if !ok || fl != 6 || sl != 0 {
		t.Fatalf("findSuitable(0, 0): got (%d, %d, %v), want (6, 0, true)", fl, sl, ok)
	}
}

func TestBitmapTopBitEdge(t *testing.T) {
	d := newBitmapDirectory(64)
	d.setBit(63, 63)

	fl, sl, ok := d.findSuitable(63, 63)
	if !ok || fl != 63 || sl != 63 {
		t.Fatalf("findSuitable(63, 63): got (%d, %d, %v), want (63, 63, true)", fl, sl, ok)
	}

	if _, _, ok := d.findSuitable(63, 0); !ok {
		t.Fatal("findSuitable(63, 0): ok = false, want true (bit 63 of row 63 is set)")
	}
}
