// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*

Package tlsf implements the bookkeeping core of a Two-Level Segregated Fit
(TLSF) real-time memory allocator: O(1) worst-case allocate, deallocate,
grow-in-place and shrink-in-place against one or more caller-supplied,
contiguous memory pools.

Terms

A pool is a contiguous []byte handed to InsertPool. The Engine carves it
into a chain of physically adjacent blocks and never touches any other
memory. A block is a contiguous sub-range of a pool, identified by the
address of its header; the Engine treats block identity as "arena +
offset" (the header address), not as a value with separate ownership.

Block header layout

Every block starts with a two-word in-band header:

	word 0: size (low 4 bits reused as flags: bit0 USED, bit1 LAST_IN_POOL)
	word 1: prevPhys (header address of the preceding physical block, 0 if none)

For a free block, the two words immediately following the header hold
nextFree/prevFree; for a used block that same range is the start of the
user's payload. This is why the minimum block size is four words: header
(2) plus free-list links (2).

Size classes

Blocks are indexed by a first-level class fl and a second-level subclass
sl. Sizes below SLLen*granularity fall into a linear "small" region
(fl == 0); sizes at or above that boundary use fl = floor(log2(size)),
normalized so fl == 1 begins where the small region ends, with sl
subdividing each power-of-two range into SLLen linear parts. See
sizeclass.go.

Concurrency

Engine performs no synchronization; every mutating operation requires the
caller to hold exclusive access, and iteration requires at least shared
exclusion against mutators. A thread-safe façade lives in the separate
tlsfmalloc package.

*/
package tlsf
