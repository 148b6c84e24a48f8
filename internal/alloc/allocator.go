// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package alloc

import (
	"math/bits"
	"unsafe"

	"github.com/ravensilver/anyness/internal/membuf"
)

// DefaultPoolSize is the backend region size a fresh pool is created with
// when the requested allocation does not itself demand more.
const DefaultPoolSize uintptr = 1 << 20

// Alignment is the minimum alignment every pool's backend region is
// acquired at.
const Alignment uintptr = unsafe.Sizeof(uintptr(0))

const sizeChainBuckets = 64

// AcquireBackendHook, when non-nil, is consulted before a fresh OS-backed
// region is carved via membuf.Aligned. It lets the parent anyness package
// wire in its process-wide backend region cache (backend_cache.go) without
// this package importing anyness (which would cycle). Returning nil means
// "no cached region available"; Allocator falls back to a fresh
// membuf.Aligned allocation.
var AcquireBackendHook func(size uintptr) []byte

// ReleaseBackendHook, when non-nil, is offered a pool's backend region
// just before CollectGarbage would otherwise drop it on the floor for the
// Go GC to reclaim. Returning leaves the region to normal GC.
var ReleaseBackendHook func(size uintptr, region []byte)

// Statistics are optional bookkeeping counters, gated at runtime by
// Options.MemoryStatistics rather than a build-time flag, since Go has no
// preprocessor to gate the bookkeeping at compile time.
type Statistics struct {
	Pools           int
	Entries         int
	BytesFrontend   uintptr
	BytesBackend    uintptr
}

// Options exposes the allocator's feature toggles as runtime fields.
type Options struct {
	// MemoryStatistics enables Statistics bookkeeping on every Allocate.
	MemoryStatistics bool
}

// Allocator routes allocation requests to one of three pool chains by
// hint, lazily creating pools and reclaiming empty ones. A single
// Allocator instance is not safe for concurrent use; callers sharing one
// across goroutines must synchronize externally.
type Allocator struct {
	opts Options

	defaultChain *Pool
	sizeChain    [sizeChainBuckets]*Pool

	instantiatedTypes map[*Hint]struct{}
	lastFoundPool     *Pool

	stats Statistics
}

// New creates an empty Allocator.
func New(opts Options) *Allocator {
	return &Allocator{
		opts:              opts,
		instantiatedTypes: make(map[*Hint]struct{}),
	}
}

// Stats returns a snapshot of the bookkeeping counters. Always zero unless
// Options.MemoryStatistics was set: the counting itself has a cost (one
// extra branch and a few extra additions per Allocate), so callers that
// don't want it don't pay for it.
func (al *Allocator) Stats() Statistics { return al.stats }

func (al *Allocator) recordAllocate(newPool bool, size, poolSize uintptr) {
	if !al.opts.MemoryStatistics {
		return
	}
	al.stats.Entries++
	al.stats.BytesFrontend += size
	if newPool {
		al.stats.Pools++
		al.stats.BytesBackend += poolSize
	}
}

// sizeBucket returns floor(log2(size)), clamped to a valid sizeChain index.
func sizeBucket(size uintptr) int {
	if size == 0 {
		return 0
	}
	bucket := bits.Len(uint(size)) - 1
	if bucket >= sizeChainBuckets {
		bucket = sizeChainBuckets - 1
	}
	return bucket
}

func (al *Allocator) chainFor(hint *Hint) **Pool {
	if hint == nil {
		return &al.defaultChain
	}
	switch hint.Tactic {
	case Size:
		return &al.sizeChain[sizeBucket(hint.Size)]
	case Type:
		return &hint.Pool
	default:
		return &al.defaultChain
	}
}

// Allocate satisfies a request of size bytes, routed by hint. Returns nil
// only on true out-of-memory (the backend region itself could not be
// acquired); every other path always succeeds by creating a new pool.
func (al *Allocator) Allocate(hint *Hint, size uintptr) *Allocation {
	head := *al.chainFor(hint)
	for pool := head; pool != nil; pool = pool.Next {
		if a := pool.Allocate(size); a != nil {
			al.recordAllocate(false, size, 0)
			return a
		}
	}

	poolSize := DefaultPoolSize
	if want := membuf.NextPow2(size * 2); want > poolSize {
		poolSize = want
	}
	pool := al.allocatePool(poolSize, hint)
	if pool == nil {
		return nil
	}

	a := pool.Allocate(size)

	chainPtr := al.chainFor(hint)
	pool.Next = *chainPtr
	*chainPtr = pool
	if hint != nil && hint.Tactic == Type {
		al.instantiatedTypes[hint] = struct{}{}
	}

	al.recordAllocate(true, size, poolSize)
	return a
}

// allocatePool creates a new pool sized to at least size, acquiring its
// backend region from AcquireBackendHook first when set.
func (al *Allocator) allocatePool(size uintptr, hint *Hint) *Pool {
	var meta *Hint
	if hint != nil && hint.Tactic == Type {
		meta = hint
	}
	if AcquireBackendHook != nil {
		if region := AcquireBackendHook(size); region != nil {
			return newPoolFromBackend(region, meta)
		}
	}
	return NewPool(size, Alignment, meta)
}

// Reallocate grows or shrinks prev to size, in place when possible;
// otherwise it allocates a fresh entry via the same routing hint prev's
// pool was created under. The caller is responsible for copying data and
// releasing prev when a new allocation is returned.
func (al *Allocator) Reallocate(size uintptr, prev *Allocation) *Allocation {
	if prev.pool().Reallocate(prev, size) {
		return prev
	}
	return al.Allocate(prev.pool().Meta, size)
}

// Deallocate returns a to its owning pool. It never frees the pool itself,
// even if the pool becomes empty; use CollectGarbage for that.
func (al *Allocator) Deallocate(a *Allocation) {
	a.pool().Deallocate(a)
}

// Find returns the Allocation whose live region contains ptr, or nil. It
// checks the one-slot lastFoundPool cache first, then walks chains in
// hint-priority order.
func (al *Allocator) Find(hint *Hint, ptr unsafe.Pointer) *Allocation {
	if al.lastFoundPool != nil {
		if a := al.lastFoundPool.Find(ptr); a != nil {
			return a
		}
	}
	for _, pool := range al.searchOrder(hint) {
		if a := pool.Find(ptr); a != nil {
			al.lastFoundPool = pool
			return a
		}
	}
	return nil
}

// CheckAuthority reports whether ptr originated from managed memory under
// this allocator, without requiring the allocation to still be live.
func (al *Allocator) CheckAuthority(hint *Hint, ptr unsafe.Pointer) bool {
	for _, pool := range al.searchOrder(hint) {
		if pool.Contains(ptr) {
			return true
		}
	}
	return false
}

// searchOrder returns every pool across every chain, in the hint-sensitive
// priority order Find/CheckAuthority want: the hinted chain first, then
// default, then every type chain, then the remaining size buckets.
func (al *Allocator) searchOrder(hint *Hint) []*Pool {
	var order []*Pool
	add := func(head *Pool) {
		for p := head; p != nil; p = p.Next {
			order = append(order, p)
		}
	}

	switch {
	case hint != nil && hint.Tactic == Size:
		bucket := sizeBucket(hint.Size)
		add(al.sizeChain[bucket])
		add(al.defaultChain)
		for t := range al.instantiatedTypes {
			add(t.Pool)
		}
		for i, chain := range al.sizeChain {
			if i == bucket {
				continue
			}
			add(chain)
		}
	case hint != nil && hint.Tactic == Type:
		add(hint.Pool)
		add(al.defaultChain)
		for t := range al.instantiatedTypes {
			if t == hint {
				continue
			}
			add(t.Pool)
		}
		for _, chain := range al.sizeChain {
			add(chain)
		}
	default:
		add(al.defaultChain)
		for t := range al.instantiatedTypes {
			add(t.Pool)
		}
		for _, chain := range al.sizeChain {
			add(chain)
		}
	}
	return order
}

// CollectGarbage frees every pool, across every chain, whose frontend is
// empty. Backend regions are offered to ReleaseBackendHook (the
// process-wide backend cache) before being dropped for the Go GC.
func (al *Allocator) CollectGarbage() {
	al.defaultChain = collectChain(al.defaultChain)
	for i := range al.sizeChain {
		al.sizeChain[i] = collectChain(al.sizeChain[i])
	}
	for hint := range al.instantiatedTypes {
		hint.Pool = collectChain(hint.Pool)
		if hint.Pool == nil {
			delete(al.instantiatedTypes, hint)
		}
	}
	al.lastFoundPool = nil
}

func collectChain(head *Pool) *Pool {
	var kept *Pool
	var tail *Pool
	for p := head; p != nil; {
		next := p.Next
		if p.IsInUse() {
			p.Next = nil
			if kept == nil {
				kept = p
				tail = p
			} else {
				tail.Next = p
				tail = p
			}
		} else if ReleaseBackendHook != nil {
			ReleaseBackendHook(p.backendBytes, p.backend)
		}
		p = next
	}
	return kept
}

// newPoolFromBackend builds a Pool over an already-acquired backend
// region (recycled from the shared backend cache), skipping a fresh
// membuf.Aligned call.
func newPoolFromBackend(region []byte, meta *Hint) *Pool {
	backendBytes := uintptr(len(region))
	p := &Pool{
		backend:      region,
		backendBytes: backendBytes,
		threshold:    backendBytes / 2,
		thresholdMin: MinThreshold,
		bounds:       []uintptr{0},
		Meta:         meta,
	}
	if p.threshold < p.thresholdMin {
		p.threshold = p.thresholdMin
	}
	return p
}
