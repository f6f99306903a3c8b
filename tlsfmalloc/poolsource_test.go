// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tlsfmalloc

import "testing"

func TestMappedPoolSourceAcquireRelease(t *testing.T) {
	src := NewMappedPoolSource(t.TempDir())

	buf, err := src.Acquire(1 << 16)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if len(buf) != 1<<16 {
		t.Fatalf("Acquire: len = %d, want %d", len(buf), 1<<16)
	}

	buf[0] = 0x42
	buf[len(buf)-1] = 0x24
	if buf[0] != 0x42 || buf[len(buf)-1] != 0x24 {
		t.Fatal("mapped buffer did not retain writes")
	}

	if err := src.Release(buf); err != nil {
		t.Fatalf("Release: %v", err)
	}
}

func TestMappedPoolSourceReleaseUnknownBuffer(t *testing.T) {
	src := NewMappedPoolSource(t.TempDir())
	if err := src.Release(make([]byte, 16)); err == nil {
		t.Fatal("Release of a buffer never Acquired: err = nil")
	}
}

func TestHeapWithMappedPoolSource(t *testing.T) {
	src := NewMappedPoolSource(t.TempDir())
	h, err := New(Options{Source: src})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := h.Grow(1 << 16); err != nil {
		t.Fatalf("Grow: %v", err)
	}

	p := h.Malloc(256)
	if p == nil {
		t.Fatal("Malloc: nil")
	}
	h.Free(p)

	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
