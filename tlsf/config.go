// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tlsf

import "github.com/cznic/tlsfcore/tlsf/tlsferr"

// Limits on the compile-time parameters described in spec §6. The core
// fixes the bitmap word type to uint64 (Go has no const generics to
// monomorphize FLLen/SLLen/word-width the way a C++ or Rust TLSF would),
// so FLLen and SLLen are validated once, at New, and used to size the
// Engine's tables instead.
const (
	MinFLLen = 1
	MaxFLLen = 64

	MinSLLen = 4
	MaxSLLen = 64
)

// Config holds the TLSF compile-time parameters (spec §6): the number of
// first-level classes and the number of second-level subclasses per
// first-level class.
type Config struct {
	FLLen int
	SLLen int
}

// DefaultConfig returns a Config suitable for general purpose, in-process
// heaps: FLLen=32 (room for blocks well beyond any realistic single pool),
// SLLen=16 (four bits of subclass resolution).
func DefaultConfig() Config {
	return Config{FLLen: 32, SLLen: 16}
}

func (c Config) validate() error {
	if c.FLLen < MinFLLen || c.FLLen > MaxFLLen {
		return &tlsferr.ErrConfig{Msg: "FLLen out of range"}
	}

	if c.SLLen < MinSLLen || c.SLLen > MaxSLLen {
		return &tlsferr.ErrConfig{Msg: "SLLen out of range"}
	}

	if c.SLLen&(c.SLLen-1) != 0 {
		return &tlsferr.ErrConfig{Msg: "SLLen must be a power of two"}
	}

	return nil
}

// sli is log2(SLLen), the shift used to carve sl out of size's bits.
func (c Config) sli() uint {
	return uint(floorLog2(int64(c.SLLen)))
}

// smallSize is the boundary below which sizes fall into the linear fl==0
// region instead of the log2-doubling regions.
func (c Config) smallSize() int64 {
	return int64(c.SLLen) * granularity
}

func (c Config) smallLog2() int {
	return floorLog2(c.smallSize())
}

// MaxSize returns the largest block size this Config's tables can index.
//
// This is NOT 2^(smallLog2+FLLen-1) - 1 (the naive top of the fl==FLLen-1
// range): map_ceil's round-up-to-the-sl-granularity step can carry a size
// near that boundary into the next, out-of-range fl. The true maximum is
// the floor size of the last (fl, sl) class, (FLLen-1, SLLen-1) -- the one
// size in that class whose own round-up is a no-op.
func (c Config) MaxSize() int64 {
	if c.FLLen == 1 {
		return c.smallSize() - granularity
	}

	f := c.smallLog2() + c.FLLen - 2
	return (int64(1) << uint(f)) + int64(c.SLLen-1)<<(uint(f)-c.sli())
}
