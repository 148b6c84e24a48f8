// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package anyness

import (
	"unsafe"

	"github.com/ravensilver/anyness/internal/alloc"
)

func init() {
	deepElementType = func(t *DMeta) bool {
		return t != nil && t.Name == manyElementTypeName
	}
}

// manyElementTypeName marks a DMeta as describing a Many element, so
// ForEachDeep recognizes Block-of-Block nesting without importing Many
// (which itself depends on Block).
const manyElementTypeName = "anyness.Many"

var manyDMeta = &DMeta{
	Name:          manyElementTypeName,
	Size:          unsafe.Sizeof(Many{}),
	Align:         unsafe.Alignof(Many{}),
	PoolTactic:    DefaultTactic,
	IsNullifiable: false,
	supportsClone: true,
	CopyConstruct: func(dst, src unsafe.Pointer) {
		(*Many)(dst).assignFrom((*Many)(src), Copy)
	},
	MoveConstruct: func(dst, src unsafe.Pointer) {
		(*Many)(dst).assignFrom((*Many)(src), Move)
	},
	CloneConstruct: func(dst, src unsafe.Pointer) {
		(*Many)(dst).assignFrom((*Many)(src), Clone)
	},
	Destroy: func(obj unsafe.Pointer) {
		_ = (*Many)(obj).Free()
	},
	Equal: func(a, b unsafe.Pointer) bool {
		return (*Many)(a).Equal(&(*Many)(b).Block)
	},
	Hash: func(a unsafe.Pointer) uint64 {
		return (*Many)(a).Hash()
	},
}

// Many is the type-erased sequential container: a Block with "Deep"
// semantics layered on top — an element may itself be a Many, and
// SmartPush transparently deepens a flat container into a container of
// containers when it's pushed a value of a different type than it
// currently holds.
type Many struct {
	Block
	deep bool
}

// NewMany returns an empty, untyped Many using allocator for any future
// growth. A nil allocator resolves to DefaultAllocator lazily.
func NewMany(allocator *alloc.Allocator) *Many {
	return &Many{Block: *NewBlock(allocator)}
}

// IsDeep reports whether this Many's element type is itself Many (i.e. it
// holds containers rather than scalar/struct values).
func (m *Many) IsDeep() bool { return m.deep }

// assignFrom constructs m as a copy/move/etc. of src. Unlike every other
// element type's CopyConstruct/MoveConstruct, a Many doesn't route through
// Block.InsertAt here: InsertAt's job is copying n individual elements of a
// uniform small type into (possibly freshly allocated) storage, which is
// the wrong shape for "adopt another Many's entire allocation" — it would
// either silently reallocate and byte-copy the nested buffer on every Move
// (leaking the original entry, since nothing would ever deallocate it) or
// bump a reference count nothing ends up holding. A Many is transferred by
// copying its plumbing fields directly instead.
func (m *Many) assignFrom(src *Many, intent Intent) {
	switch {
	case intent == Clone:
		*m = Many{Block: *NewBlock(src.allocator), deep: src.deep}
		if src.typ != nil && src.count > 0 {
			_ = m.Block.InsertAt(0, &src.Block, Clone)
		}
	case intent == Disown:
		*m = Many{Block: Block{
			raw: src.raw, count: src.count, reserved: src.reserved,
			typ: src.typ, state: src.state.with(StateStatic), allocator: src.allocator,
		}, deep: src.deep}
	case intent.ResetsSource():
		*m = Many{Block: Block{
			raw: src.raw, count: src.count, reserved: src.reserved,
			typ: src.typ, state: src.state, entry: src.entry, allocator: src.allocator,
		}, deep: src.deep}
		*src = Many{}
	case intent.SharesMemory():
		*m = Many{Block: Block{
			raw: src.raw, count: src.count, reserved: src.reserved,
			typ: src.typ, state: src.state, entry: src.entry, allocator: src.allocator,
		}, deep: src.deep}
		if src.entry != nil {
			src.entry.Keep()
		}
	}
}

// Clone returns an independent deep copy of m: a freshly allocated Many
// sharing no allocation with m, recursing into fresh copies of any nested
// Many elements when m IsDeep. Neither m's nor the clone's reference
// count changes.
func (m *Many) Clone() (*Many, error) {
	dst := NewMany(m.allocator)
	if m.typ == nil || m.count == 0 {
		dst.deep = m.deep
		return dst, nil
	}
	if !m.typ.Supports(Clone) {
		return nil, newError(KindConstruct, "Many.Clone", "element type does not support Clone")
	}
	if err := dst.Block.InsertAt(0, &m.Block, Clone); err != nil {
		return nil, err
	}
	dst.deep = m.deep
	return dst, nil
}

// SmartPush appends value to m, retaining m's current element type when
// compatible. When value's type differs from m's current (non-empty,
// locked) element type and m is not already Deep, SmartPush deepens m in
// place: m's existing elements are wrapped into a single nested Many, and
// the new value, wrapped in a nested Many of its own, becomes the second
// element of the now-Deep Many. Passing
// retain=true instead forces a deepen even on an empty/compatible m, an
// explicit escape hatch for callers that want to keep container nesting
// regardless of type compatibility.
func (m *Many) SmartPush(where int, value *Block, intent Intent, retain bool) error {
	if !retain && (m.deep || m.typ == nil || m.typ == value.typ) {
		return m.Block.InsertAt(where, value, intent)
	}

	inner := &Many{Block: m.Block, deep: m.deep}
	*m = Many{Block: *NewBlock(m.allocator), deep: true}

	innerBlock := &Block{
		raw: unsafe.Pointer(inner), count: 1, reserved: 1,
		typ: manyDMeta, state: StateTyped,
	}
	if err := m.Block.InsertAt(0, innerBlock, Move); err != nil {
		return err
	}
	nested := &Many{Block: *NewBlock(m.allocator)}
	if err := nested.Block.InsertAt(0, value, intent); err != nil {
		return err
	}
	nestedBlock := &Block{
		raw: unsafe.Pointer(nested), count: 1, reserved: 1,
		typ: manyDMeta, state: StateTyped,
	}
	return m.Block.InsertAt(m.Count(), nestedBlock, Move)
}

// PushMany appends nested as one element and marks m Deep, the direct way
// to build a container of containers (e.g. a sequence of byte buffers for
// AsIOVec/AsNetBuffers) without relying on SmartPush's automatic
// type-mismatch deepening. nested is consumed according to intent, same as
// any other element.
func (m *Many) PushMany(where int, nested *Many, intent Intent) error {
	if m.typ != nil && m.typ != manyDMeta {
		return newError(KindMutate, "Many.PushMany", "container already holds a non-Many element type")
	}
	src := &Block{raw: unsafe.Pointer(nested), count: 1, reserved: 1, typ: manyDMeta, state: StateTyped}
	if err := m.Block.InsertAt(where, src, intent); err != nil {
		return err
	}
	m.deep = true
	return nil
}

// Concat appends every element of other to m, preserving other (a Copy
// intent insert), and propagates other's StateOr flag onto m: concatenating
// a disjunctive container with anything makes the result disjunctive too.
func (m *Many) Concat(other *Many) error {
	if err := m.Block.InsertAt(m.Count(), &other.Block, Copy); err != nil {
		return err
	}
	if other.State().Has(StateOr) {
		m.state = m.state.with(StateOr)
	}
	return nil
}

// AsIOVec returns an IoVec describing every element of m as one scatter/
// gather entry, valid only when m is Deep and each nested Many holds bytes
// (a container of byte buffers) — i.e. called on the outer Many, not a
// leaf buffer. Only the Deep flag is checked.
func (m *Many) AsIOVec() ([]IoVec, error) {
	blocks, err := m.byteBuffers()
	if err != nil {
		return nil, err
	}
	return IoVecFromBytesSlice(blocks), nil
}

// AsNetBuffers is AsIOVec's net.Buffers-flavored twin, for handing a Many
// of byte buffers directly to (*net.TCPConn).Write(net.Buffers) style
// vectored writes.
func (m *Many) AsNetBuffers() (Buffers, error) {
	blocks, err := m.byteBuffers()
	if err != nil {
		return nil, err
	}
	return Buffers(blocks), nil
}

func (m *Many) byteBuffers() ([][]byte, error) {
	if !m.deep {
		return nil, newError(KindConvert, "Many.AsIOVec", "not a deep container of buffers")
	}
	out := make([][]byte, 0, m.Count())
	for i := 0; i < m.Count(); i++ {
		inner := (*Many)(m.rawAt(i))
		if inner.typ == nil {
			continue
		}
		out = append(out, unsafe.Slice((*byte)(inner.raw), inner.count))
	}
	return out, nil
}

// TMany is the statically-typed view over Many: every element is known at
// compile time to be a T, so Push/At/ForEach avoid the DMeta indirection on
// the caller's side (Block beneath still dispatches through DMeta, same as
// every other container — TMany's value is ergonomics and compile-time
// type safety, not a different runtime representation).
type TMany[T any] struct {
	Many
}

// NewTMany returns an empty TMany[T] using allocator for any future growth.
func NewTMany[T any](allocator *alloc.Allocator) *TMany[T] {
	return &TMany[T]{Many: *NewMany(allocator)}
}

// At returns the i'th element by value.
func (t *TMany[T]) At(i int) (T, error) {
	var zero T
	ptr, err := t.RawAt(i)
	if err != nil {
		return zero, err
	}
	return *(*T)(ptr), nil
}

// Push appends value, typing the container on first use.
func (t *TMany[T]) Push(value T, intent Intent) error {
	if t.typ == nil {
		t.typ = TypeMeta[T]()
	}
	src := &Block{
		raw: unsafe.Pointer(&value), count: 1, reserved: 1,
		typ: t.typ, state: StateTyped,
	}
	return t.Block.InsertAt(t.Count(), src, intent)
}

// Set overwrites the i'th element in place (destroying the previous value).
func (t *TMany[T]) Set(i int, value T) error {
	ptr, err := t.RawAt(i)
	if err != nil {
		return err
	}
	if t.typ != nil {
		destroyRange(t.typ, ptr, 1)
	}
	*(*T)(ptr) = value
	return nil
}

// Clone returns an independent deep copy of t, sharing no allocation with
// the original.
func (t *TMany[T]) Clone() (*TMany[T], error) {
	cloned, err := t.Many.Clone()
	if err != nil {
		return nil, err
	}
	return &TMany[T]{Many: *cloned}, nil
}

// ForEachTyped visits every live element as a T.
func (t *TMany[T]) ForEachTyped(visit func(v T) LoopControl) {
	t.ForEach(func(ptr unsafe.Pointer) LoopControl {
		return visit(*(*T)(ptr))
	})
}
