// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package tlsferr defines the structured error types reported at the tlsf
// core's boundary. It follows the same "named error struct per failure
// kind" convention lldb uses (ErrINVAL, ErrILSEQ, ErrPERM) rather than
// sentinel values or ad hoc fmt.Errorf strings.
package tlsferr

import "fmt"

// ErrINVAL reports an invalid argument passed to a core operation, e.g. a
// misaligned or non-power-of-two alignment request.
type ErrINVAL struct {
	Msg string
	Arg interface{}
}

func (e *ErrINVAL) Error() string {
	return fmt.Sprintf("tlsf: invalid argument: %s (%v)", e.Msg, e.Arg)
}

// ErrTooSmall reports that a pool offered to InsertPool cannot hold even the
// minimum block plus a sentinel once aligned to the engine's granularity.
type ErrTooSmall struct {
	Have int64 // aligned usable bytes found in the pool
	Need int64 // minimum bytes required
}

func (e *ErrTooSmall) Error() string {
	return fmt.Sprintf("tlsf: pool too small: have %d bytes after alignment, need at least %d", e.Have, e.Need)
}

// ErrConfig reports an invalid Config (FLLen/SLLen out of bounds or SLLen
// not a power of two).
type ErrConfig struct {
	Msg string
}

func (e *ErrConfig) Error() string { return "tlsf: invalid config: " + e.Msg }

// ErrInvariant reports a structural invariant violation found by
// Engine.Verify. It is never returned from the hot allocate/deallocate path;
// the only other use is as the panic value of Engine.Deallocate on a double
// free.
type ErrInvariant struct {
	Kind   string // which of the §8 invariants was violated
	Detail string
	Off    int64 // from Verify: byte offset of the block within its pool; from Deallocate: the block's header address
}

func (e *ErrInvariant) Error() string {
	return fmt.Sprintf("tlsf: invariant violation [%s] at offset %#x: %s", e.Kind, e.Off, e.Detail)
}
