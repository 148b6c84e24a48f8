// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package alloc

import (
	"sort"
	"unsafe"

	"github.com/ravensilver/anyness/internal/membuf"
)

// MinThreshold is the floor a Pool's per-slot band can halve down to. Once
// the bump threshold reaches this value, every further bumped slot in the
// pool reserves exactly this many bytes, turning the geometric halving
// into a flat run of minimally-sized slots until the backend is exhausted.
const MinThreshold uintptr = 16

// Pool is a fixed-region suballocator. It carves a single power-of-two
// backend region into a decreasing sequence of size-classed "bands": the
// first bumped slot reserves half the backend, the second a quarter, and
// from then on the band halves again each time the slot index reaches a
// power of two (slots 2-3 an eighth each, slots 4-7 a sixteenth each, ...)
// down to MinThreshold, after which every remaining slot reserves
// MinThreshold bytes — a buddy-like segregated layout over a
// plain Go byte slice rather than raw malloc'd memory.
//
// Pool never relocates a live Allocation: the bump cursor only advances,
// and freed slots are recycled through an intrusive singly-linked list
// (Allocation.owner doubles as the link when references == 0).
type Pool struct {
	backend       []byte
	backendBytes  uintptr
	frontendBytes uintptr

	threshold    uintptr
	thresholdMin uintptr

	entries    uint32
	nextOffset uintptr
	bounds     []uintptr    // bounds[i] = start offset of slot i; len == entries+1
	headers    []*Allocation // headers[i] = header for slot i

	lastFreed *Allocation

	// Next chains this pool to the next pool in the same routing chain.
	Next *Pool
	// Meta is the type hint this pool was created for, when created via
	// the Type tactic; nil otherwise.
	Meta *Hint
}

// NewPool allocates a fresh pool backed by a region of exactly
// backendBytes aligned to align; backendBytes must already be a power of
// two.
func NewPool(backendBytes uintptr, align uintptr, meta *Hint) *Pool {
	backend := membuf.Aligned(int(backendBytes), align)
	p := &Pool{
		backend:      backend,
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

// CanContain reports whether a fresh allocation of size could be satisfied
// either by the free list head or a bumped slot, without actually
// allocating.
func (p *Pool) CanContain(size uintptr) bool {
	if p.lastFreed != nil && p.lastFreed.canGrowTo(size) {
		return true
	}
	band := p.nextBand()
	return size <= band && p.nextOffset+band <= p.backendBytes
}

// nextBand returns the band size the next bumped slot would reserve,
// without mutating pool state.
func (p *Pool) nextBand() uintptr {
	band := p.threshold
	if isPow2Boundary(p.entries) && band > p.thresholdMin {
		band /= 2
	}
	if band < p.thresholdMin {
		band = p.thresholdMin
	}
	return band
}

func isPow2Boundary(n uint32) bool {
	return n != 0 && n&(n-1) == 0
}

// Allocate dispenses a slot of size bytes, or returns nil if this pool
// cannot satisfy the request (the caller should try the next pool in the
// chain, or create a new pool).
func (p *Pool) Allocate(size uintptr) *Allocation {
	if p.lastFreed != nil && p.lastFreed.canGrowTo(size) {
		a := p.lastFreed
		p.lastFreed = a.nextFree()
		a.reuse(p, size)
		p.frontendBytes += size
		return a
	}

	band := p.threshold
	if isPow2Boundary(p.entries) && band > p.thresholdMin {
		band /= 2
	}
	if band < p.thresholdMin {
		band = p.thresholdMin
	}
	if size > band || p.nextOffset+band > p.backendBytes {
		return nil
	}

	slotBytes := p.backend[p.nextOffset : p.nextOffset+band : p.nextOffset+band]
	a := newAllocation(p, slotBytes, int(size))
	p.headers = append(p.headers, a)
	p.nextOffset += band
	p.bounds = append(p.bounds, p.nextOffset)
	p.entries++
	p.threshold = band
	p.frontendBytes += size
	return a
}

// Reallocate grows or shrinks a in place, returning true on success. It
// fails (false) when newSize no longer fits the slot's reserved band; the
// caller must then copy into a fresh allocation elsewhere.
func (p *Pool) Reallocate(a *Allocation, newSize uintptr) bool {
	if !a.canGrowTo(newSize) {
		return false
	}
	p.frontendBytes = p.frontendBytes - a.AllocatedBytes() + newSize
	a.resize(newSize)
	return true
}

// Deallocate marks a as free and links it onto the pool's free list.
func (p *Pool) Deallocate(a *Allocation) {
	p.frontendBytes -= a.AllocatedBytes()
	a.used = 0
	a.references = 0
	a.setNextFree(p.lastFreed)
	p.lastFreed = a
}

// Contains reports whether ptr lies within this pool's backend region.
func (p *Pool) Contains(ptr unsafe.Pointer) bool {
	if len(p.backend) == 0 {
		return false
	}
	begin := uintptr(unsafe.Pointer(unsafe.SliceData(p.backend)))
	return uintptr(ptr) >= begin && uintptr(ptr) < begin+p.backendBytes
}

// Find returns the live Allocation whose used region contains ptr, or nil.
// It performs a binary search over the pool's monotonically increasing
// slot-offset table, giving O(log entries) lookups without needing a
// pointer-tagged size-class tree.
func (p *Pool) Find(ptr unsafe.Pointer) *Allocation {
	if !p.Contains(ptr) {
		return nil
	}
	begin := uintptr(unsafe.Pointer(unsafe.SliceData(p.backend)))
	offset := uintptr(ptr) - begin

	i := sort.Search(len(p.bounds)-1, func(i int) bool {
		return p.bounds[i+1] > offset
	})
	if i >= len(p.headers) {
		return nil
	}
	h := p.headers[i]
	if h.references == 0 {
		return nil
	}
	if !h.Contains(ptr) {
		return nil
	}
	return h
}

// IsInUse reports whether the pool still holds any live bytes.
func (p *Pool) IsInUse() bool { return p.frontendBytes != 0 }

// BackendBytes returns the size of the OS-backed region.
func (p *Pool) BackendBytes() uintptr { return p.backendBytes }

// FrontendBytes returns the sum of AllocatedBytes over all live entries.
func (p *Pool) FrontendBytes() uintptr { return p.frontendBytes }

// Entries returns the number of slots ever bumped into existence.
func (p *Pool) Entries() uint32 { return p.entries }
