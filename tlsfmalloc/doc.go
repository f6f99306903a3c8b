// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package tlsfmalloc wraps tlsf.Engine into a malloc/free style facade: a
// mutex-guarded heap that acquires pool memory from a PoolSource and logs
// every operation through a *log.Logger, the way dbm.DB wraps lldb.Allocator
// with a "Big Kernel Lock" and a Filer underneath.
package tlsfmalloc
