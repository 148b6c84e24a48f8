// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package anyness provides a type-erased container family — Block, Many,
// Map, Set, Pair, Own, and Ref — backed by a hierarchical, segregated-fit
// pool allocator instead of the Go heap.
//
// # Allocator
//
// Every container is ultimately backed by an internal/alloc.Allocator, a
// chain of Pools routed by size or by type, each Pool bump-allocating
// headers and halving its free-list threshold as it fills:
//
//	a := anyness.NewAllocator(alloc.Options{})
//	many := anyness.NewTMany[int](a)
//
// Containers built without an explicit Allocator share one lazily-created
// process-wide DefaultAllocator.
//
// # Intent
//
// Every constructor and assignment that moves data between containers
// takes an Intent — Copy, Refer, Move, Clone, Disown, or Abandon — the
// value-category tag that decides whether source and destination end up
// sharing memory, and whether the source is reset afterward:
//
//	dst.PushBack(src, anyness.Move) // src is left empty
//	dst.PushBack(src, anyness.Copy) // src is untouched, elements copied into dst
//
// # Backend Region Cache
//
// Pools obtain their backing memory from a process-wide cache of
// cache-line-aligned regions, one lock-free MPMC ring per size tier
// (backend_cache.go), the one part of this
// package safe to touch from multiple goroutines at once; every other
// container is single-goroutine-owned.
//
// # Vectored I/O
//
// Many[byte] bridges directly to vectored I/O without copying:
//
//	iovecs := buffers.AsIOVec()
//	addr, n := anyness.IoVecAddrLen(iovecs)
//
// # Dependencies
//
// anyness depends on:
//   - iox: semantic error types (ErrWouldBlock)
//   - spin: spin-wait primitives for the backend region cache's lock-free ring
package anyness
