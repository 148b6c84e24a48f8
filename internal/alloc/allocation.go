// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package alloc

import "unsafe"

// Allocation is a single ref-counted chunk of user bytes. The header is
// kept out-of-line from the user bytes (each Allocation is its own heap
// object, addressed via a pointer held in the owning Pool's entry table)
// rather than prefixed into the backend region, since Go's GC forbids
// arbitrary pointer arithmetic into a byte slice's interior. The header
// itself never moves once created: only the Pool's index-to-header table
// may grow.
type Allocation struct {
	// band is the full region reserved for this slot when the Pool bumped
	// it into existence: a geometrically-sized, never-changing capacity
	// ceiling. Grow/shrink-in-place (Pool.Reallocate) can only ever move
	// the used prefix of band, never extend past it.
	band []byte
	// used is the live, user-visible length within band.
	used int
	// references is the strong reference count. 1 means sole owner, 0
	// means freed (and owner then points at the next free entry).
	references uint32
	// owner is a tagged union: when references > 0 it is the owning *Pool;
	// when references == 0 it is the next link in the pool's free list.
	owner unsafe.Pointer
}

// newAllocation creates a header for a slot whose full reserved capacity
// is band, initially exposing used bytes of it to the caller.
func newAllocation(pool *Pool, band []byte, used int) *Allocation {
	return &Allocation{
		band:       band,
		used:       used,
		references: 1,
		owner:      unsafe.Pointer(pool),
	}
}

// Uses returns the current reference count.
func (a *Allocation) Uses() uint32 { return a.references }

// Keep bumps the reference count by one.
func (a *Allocation) Keep() { a.references++ }

// KeepN bumps the reference count by n.
func (a *Allocation) KeepN(n uint32) { a.references += n }

// Free decrements the reference count and returns the new value. The
// header remains live (still indexable) until its owning Pool is told to
// Deallocate it; reaching zero here is only a signal, not an action.
func (a *Allocation) Free() uint32 {
	a.references--
	return a.references
}

// AllocatedBytes returns the capacity of the user region currently exposed
// (the used prefix of the reserved band, not the band's own ceiling).
func (a *Allocation) AllocatedBytes() uintptr { return uintptr(a.used) }

// BandBytes returns the full reserved ceiling for this slot: the maximum
// size Reallocate can grow to in place.
func (a *Allocation) BandBytes() uintptr { return uintptr(len(a.band)) }

// BlockStart returns the first byte of the user region.
func (a *Allocation) BlockStart() unsafe.Pointer {
	return unsafe.Pointer(unsafe.SliceData(a.band))
}

// BlockEnd returns one past the last used byte of the user region.
func (a *Allocation) BlockEnd() unsafe.Pointer {
	return unsafe.Add(a.BlockStart(), a.used)
}

// Bytes returns the used prefix of the allocation as a byte slice.
func (a *Allocation) Bytes() []byte { return a.band[:a.used] }

// Contains reports whether ptr falls within this allocation's used region.
func (a *Allocation) Contains(ptr unsafe.Pointer) bool {
	return uintptr(ptr) >= uintptr(a.BlockStart()) && uintptr(ptr) < uintptr(a.BlockEnd())
}

// pool returns the owning pool. Only valid while references > 0.
func (a *Allocation) pool() *Pool { return (*Pool)(a.owner) }

// setPool sets the owning pool and is used when an allocation is reused
// from the free list.
func (a *Allocation) setPool(p *Pool) { a.owner = unsafe.Pointer(p) }

// nextFree returns the next free-list link. Only valid while references == 0.
func (a *Allocation) nextFree() *Allocation { return (*Allocation)(a.owner) }

// setNextFree links this freed allocation onto the free list.
func (a *Allocation) setNextFree(n *Allocation) { a.owner = unsafe.Pointer(n) }

// canGrowTo reports whether newSize still fits inside this slot's reserved
// band, i.e. whether Reallocate can satisfy it in place.
func (a *Allocation) canGrowTo(newSize uintptr) bool {
	return newSize <= uintptr(len(a.band))
}

// resize adjusts the logical user-visible length in place. The caller
// (Pool.Reallocate) must already have verified newSize fits within band.
func (a *Allocation) resize(newSize uintptr) {
	a.used = int(newSize)
}

// reuse reinitializes a freed header for a new allocation of size, taken
// from the free list. The band stays fixed; only used and references
// reset.
func (a *Allocation) reuse(pool *Pool, size uintptr) {
	a.used = int(size)
	a.references = 1
	a.owner = unsafe.Pointer(pool)
}
