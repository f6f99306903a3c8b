// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command tlsfverify drives a tlsf heap through a randomized
// allocate/free/realloc workload and reports AllocStats plus any structural
// invariant violation, the way lldb/lab/1 drives an Allocator to compare
// FLT implementations.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"
	"unsafe"

	"github.com/cznic/tlsfcore/tlsf"
	"github.com/cznic/tlsfcore/tlsfmalloc"
)

var (
	poolSize = flag.Int64("pool", 1<<24, "pool size in bytes")
	n        = flag.Int("n", 200000, "number of operations to perform")
	maxAlloc = flag.Int64("maxalloc", 1<<16, "maximum single allocation size")
	seed     = flag.Int64("seed", 1, "PRNG seed")
	verbose  = flag.Bool("v", false, "log every heap operation")
)

func main() {
	flag.Parse()
	log.SetFlags(log.Lshortfile)

	opts := tlsfmalloc.Options{Config: tlsf.DefaultConfig()}
	if *verbose {
		opts.Logger = log.New(os.Stdout, "", log.Ltime)
	}

	h, err := tlsfmalloc.New(opts)
	if err != nil {
		log.Fatal(err)
	}

	if err := h.Grow(*poolSize); err != nil {
		log.Fatal(err)
	}

	rng := rand.New(rand.NewSource(*seed))
	live := make([]unsafe.Pointer, 0, 1024)

	t0 := time.Now()
	var allocs, frees, reallocs, fails int

	for i := 0; i < *n; i++ {
		switch {
		case len(live) > 0 && rng.Intn(4) == 0:
			idx := rng.Intn(len(live))
			h.Free(live[idx])
			live[idx] = live[len(live)-1]
			live = live[:len(live)-1]
			frees++

		case len(live) > 0 && rng.Intn(4) == 0:
			idx := rng.Intn(len(live))
			size := rng.Int63n(*maxAlloc) + 1
			p := h.Realloc(live[idx], size)
			if p == nil {
				fails++
				continue
			}
			live[idx] = p
			reallocs++

		default:
			size := rng.Int63n(*maxAlloc) + 1
			p := h.Malloc(size)
			if p == nil {
				fails++
				continue
			}
			live = append(live, p)
			allocs++
		}
	}

	stats, verr := h.Stats()
	d := time.Since(t0)

	fmt.Printf("ops: %d allocs, %d frees, %d reallocs, %d failed allocations, in %s\n",
		allocs, frees, reallocs, fails, d)
	fmt.Printf("stats: %+v\n", stats)

	if verr != nil {
		log.Fatalf("structural verification failed: %v", verr)
	}
}
