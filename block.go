// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package anyness

import (
	"unsafe"

	"github.com/ravensilver/anyness/internal/alloc"
)

// State is the bitset of flags a Block carries alongside its element type.
type State uint16

const (
	// StateDefault is the zero state: mutable, dense, untyped-until-first-use.
	StateDefault State = 0
	// StateMissing marks a Block standing in for an absent value.
	StateMissing State = 1 << iota
	// StateCompressed marks element bytes as compressed; not interpreted
	// by this core (an external collaborator's concern), only preserved.
	StateCompressed
	// StateEncrypted marks element bytes as encrypted; likewise preserved
	// only, not interpreted.
	StateEncrypted
	// StateOr marks a Block as a disjunction for higher layers.
	StateOr
	// StateFuture marks a Block's content as not yet resolved.
	StateFuture
	// StateStatic marks a Block as a non-owning view: entry is always nil.
	StateStatic
	// StateConstant marks a Block as immutable: every mutation fails with
	// ErrImmutable.
	StateConstant
	// StateTyped marks a Block's element type as locked for its lifetime
	// (set once the first element is inserted, or explicitly constrained).
	StateTyped
)

func (s State) Has(flag State) bool { return s&flag != 0 }
func (s State) with(flag State) State { return s | flag }
func (s State) without(flag State) State { return s &^ flag }

// Block is the single, type-erased container descriptor every other
// container in this package (Many, Map, Set, Pair) is built from. It owns
// at most one internal/alloc.Allocation at a time, tracks a live element
// count versus reserved capacity, and dispatches element lifetime
// operations through its DMeta rather than compile-time type information.
type Block struct {
	raw      unsafe.Pointer
	count    int
	reserved int
	typ      *DMeta
	state    State
	entry    *alloc.Allocation

	allocator *alloc.Allocator
}

// NewBlock returns an empty, untyped Block using allocator for any future
// growth. A nil allocator is valid and lazily resolved to the package's
// DefaultAllocator on first use.
func NewBlock(allocator *alloc.Allocator) *Block {
	return &Block{allocator: allocator}
}

func (b *Block) alloc() *alloc.Allocator {
	if b.allocator == nil {
		b.allocator = DefaultAllocator()
	}
	return b.allocator
}

// Count returns the number of live elements.
func (b *Block) Count() int { return b.count }

// Reserved returns the current capacity.
func (b *Block) Reserved() int { return b.reserved }

// IsEmpty reports whether Count() == 0.
func (b *Block) IsEmpty() bool { return b.count == 0 }

// Type returns the element type token, or nil if the Block is untyped
// (only possible while Count() == 0).
func (b *Block) Type() *DMeta { return b.typ }

// State returns the current state flags.
func (b *Block) State() State { return b.state }

// IsConstant reports whether mutation is disallowed.
func (b *Block) IsConstant() bool { return b.state.Has(StateConstant) }

// IsTypeConstrained reports whether the element type is locked.
func (b *Block) IsTypeConstrained() bool { return b.state.Has(StateTyped) }

// Entry returns the backing allocation, or nil for a non-owning/static
// Block.
func (b *Block) Entry() *alloc.Allocation { return b.entry }

// elemSize returns the byte size of one element, or 0 if untyped.
func (b *Block) elemSize() uintptr {
	if b.typ == nil {
		return 0
	}
	return b.typ.Size
}

// rawAt returns a pointer to the i'th element's storage, without bounds
// checking.
func (b *Block) rawAt(i int) unsafe.Pointer {
	return unsafe.Add(b.raw, uintptr(i)*b.elemSize())
}

// RawAt returns a pointer to the i'th element's storage, or an Access
// error if i is out of [0, Count()).
func (b *Block) RawAt(i int) (unsafe.Pointer, error) {
	if i < 0 || i >= b.count {
		return nil, newError(KindAccess, "Block.RawAt", "index out of range")
	}
	return b.rawAt(i), nil
}

// ElementAt returns a non-owning, one-element view Block over the i'th
// element. The returned Block shares the same backing allocation (its
// reference count is bumped) and must be Reset when no longer needed.
func (b *Block) ElementAt(i int) (*Block, error) {
	if i < 0 || i >= b.count {
		return nil, newError(KindAccess, "Block.ElementAt", "index out of range")
	}
	if b.entry != nil {
		b.entry.Keep()
	}
	return &Block{
		raw:       b.rawAt(i),
		count:     1,
		reserved:  1,
		typ:       b.typ,
		state:     b.state.with(StateTyped),
		entry:     b.entry,
		allocator: b.allocator,
	}, nil
}

// Clone returns an independent deep copy of b: a freshly allocated Block
// whose elements are built via the element type's CloneConstruct (or its
// CopyConstruct where CloneConstruct is nil), sharing
// no allocation with b. Neither b's nor the clone's reference count is
// affected by the copy itself.
func (b *Block) Clone() (*Block, error) {
	dst := NewBlock(b.allocator)
	if b.typ == nil || b.count == 0 {
		return dst, nil
	}
	if !b.typ.Supports(Clone) {
		return nil, newError(KindConstruct, "Block.Clone", "type does not support Clone")
	}
	if err := dst.InsertAt(0, b, Clone); err != nil {
		return nil, err
	}
	return dst, nil
}

// ensureMutable returns ErrImmutable if the Block is constant.
func (b *Block) ensureMutable(op string) error {
	if b.state.Has(StateConstant) {
		return newError(KindDestruct, op, "mutation on constant block")
	}
	return nil
}

// ensureTypeCompatible returns ErrTypeMismatch if t differs from the
// Block's locked type while type-constrained, or from its current type
// while already Typed (non-Deep containers refuse silent retyping; see
// Many.SmartPush for the one place retyping is allowed by deepening).
func (b *Block) ensureTypeCompatible(op string, t *DMeta) error {
	if b.typ == nil || b.count == 0 && !b.state.Has(StateTyped) {
		return nil
	}
	if b.typ != t {
		return newError(KindMutate, op, "incompatible element type")
	}
	return nil
}

// Reserve grows the Block's capacity to at least n elements. Reserving to
// a capacity <= Reserved() is a no-op; Reserve never shrinks below Count().
// An untyped Block (no element inserted yet) only records the request:
// there is no element size yet to size a backing allocation with, so the
// actual allocation is deferred to the first InsertAt, which must honor
// this recorded capacity rather than re-checking it against Reserved().
func (b *Block) Reserve(n int) error {
	if err := b.ensureMutable("Block.Reserve"); err != nil {
		return err
	}
	if b.typ == nil {
		if n > b.reserved {
			b.reserved = n
		}
		return nil
	}
	if n <= b.reserved && b.entry != nil {
		return nil
	}
	if n < b.reserved {
		n = b.reserved
	}
	newSize := uintptr(n) * b.elemSize()
	if b.entry == nil {
		a := b.alloc().Allocate(b.typ.Hint(), newSize)
		if a == nil {
			return newError(KindAllocate, "Block.Reserve", "out of memory")
		}
		if b.count > 0 {
			copyRange(b.typ, unsafe.Pointer(unsafe.SliceData(a.Bytes())), b.raw, b.count)
		}
		b.entry = a
		b.raw = unsafe.Pointer(unsafe.SliceData(a.Bytes()))
		b.reserved = n
		return nil
	}
	if grown := b.alloc().Reallocate(newSize, b.entry); grown != nil {
		if grown != b.entry {
			copyRange(b.typ, unsafe.Pointer(unsafe.SliceData(grown.Bytes())), b.raw, b.count)
			b.alloc().Deallocate(b.entry)
			b.entry = grown
			b.raw = unsafe.Pointer(unsafe.SliceData(grown.Bytes()))
		}
		b.reserved = n
		return nil
	}
	return newError(KindAllocate, "Block.Reserve", "out of memory")
}

// ShrinkToFit releases any reserved-but-unused capacity back to the
// allocator when doing so is possible in place; it is always safe to call
// and never changes Count().
func (b *Block) ShrinkToFit() error {
	if b.entry == nil || b.count == b.reserved {
		return nil
	}
	newSize := uintptr(b.count) * b.elemSize()
	if b.alloc().Reallocate(newSize, b.entry) != nil {
		b.reserved = b.count
	}
	return nil
}

// Clear destroys every live element but keeps the backing memory.
func (b *Block) Clear() error {
	if err := b.ensureMutable("Block.Clear"); err != nil {
		return err
	}
	if b.typ != nil {
		destroyRange(b.typ, b.raw, b.count)
	}
	b.count = 0
	return nil
}

// Reset drops this Block's reference to its allocation (freeing it if this
// was the last owner) and returns the Block to the Untyped state.
func (b *Block) Reset() error {
	if err := b.Free(); err != nil {
		return err
	}
	b.raw = nil
	b.count = 0
	b.reserved = 0
	b.typ = nil
	b.state = StateDefault
	b.entry = nil
	return nil
}

// Free releases this Block's share of its allocation. If this was the last
// owner (the reference count reaches zero), it destroys every live element
// and asks the Allocator to deallocate the entry; otherwise the elements
// are left untouched, since a sibling Block (from ElementAt or Ref.Share)
// still reads the same backing memory. Unlike Reset, Free leaves
// count/reserved/typ/state alone; it only releases memory.
func (b *Block) Free() error {
	if b.entry == nil {
		return nil
	}
	if b.entry.Free() != 0 {
		return nil
	}
	if b.typ != nil && !b.state.Has(StateStatic) {
		destroyRange(b.typ, b.raw, b.count)
	}
	b.alloc().Deallocate(b.entry)
	return nil
}
