// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package anyness

import "unsafe"

// copyRange shallow-copies n elements of type t from src to dst using the
// type's CopyConstruct, one element at a time. POD types could memmove in
// bulk, but the uniform per-element dispatch keeps this correct for every
// DMeta regardless of IsPOD, matching the untyped Block's promise that it
// never special-cases types it doesn't have to.
func copyRange(t *DMeta, dst, src unsafe.Pointer, n int) {
	size := t.Size
	for i := 0; i < n; i++ {
		t.CopyConstruct(unsafe.Add(dst, uintptr(i)*size), unsafe.Add(src, uintptr(i)*size))
	}
}

// cloneRange deep-copies n elements via the type's CloneConstruct when it
// has one (a container-of-containers type recursing into fresh nested
// allocations), falling back to CopyConstruct for every ordinary value
// type, where the two are equivalent.
func cloneRange(t *DMeta, dst, src unsafe.Pointer, n int) {
	construct := t.CopyConstruct
	if t.CloneConstruct != nil {
		construct = t.CloneConstruct
	}
	size := t.Size
	for i := 0; i < n; i++ {
		construct(unsafe.Add(dst, uintptr(i)*size), unsafe.Add(src, uintptr(i)*size))
	}
}

func moveRange(t *DMeta, dst, src unsafe.Pointer, n int) {
	size := t.Size
	for i := 0; i < n; i++ {
		t.MoveConstruct(unsafe.Add(dst, uintptr(i)*size), unsafe.Add(src, uintptr(i)*size))
	}
}

func destroyRange(t *DMeta, p unsafe.Pointer, n int) {
	if t.IsNullifiable && n > 0 {
		// Nullifiable types are equivalent to zero bytes once destroyed;
		// zero the whole run in one pass instead of n dispatches.
		b := unsafe.Slice((*byte)(p), uintptr(n)*t.Size)
		clear(b)
		return
	}
	size := t.Size
	for i := 0; i < n; i++ {
		t.Destroy(unsafe.Add(p, uintptr(i)*size))
	}
}

func equalRange(t *DMeta, a, b unsafe.Pointer, n int) bool {
	size := t.Size
	for i := 0; i < n; i++ {
		if !t.Equal(unsafe.Add(a, uintptr(i)*size), unsafe.Add(b, uintptr(i)*size)) {
			return false
		}
	}
	return true
}

func hashRange(t *DMeta, p unsafe.Pointer, n int) uint64 {
	size := t.Size
	var h uint64 = 1469598103934665603 // FNV offset basis, combined below
	for i := 0; i < n; i++ {
		h ^= t.Hash(unsafe.Add(p, uintptr(i)*size))
		h *= 1099511628211 // FNV prime
	}
	return h
}

// InsertAt inserts the elements described by src (itself an untyped,
// single- or multi-element Block) at index, consuming src according to
// intent. All elements from index onward are shifted right. Capacity
// grows to at least NextPow2(Count()+src.Count()) when needed.
func (b *Block) InsertAt(index int, src *Block, intent Intent) error {
	if err := b.ensureMutable("Block.InsertAt"); err != nil {
		return err
	}
	if index < 0 || index > b.count {
		return newError(KindAccess, "Block.InsertAt", "index out of range")
	}
	if src.count == 0 {
		return nil
	}
	if err := b.ensureTypeCompatible("Block.InsertAt", src.typ); err != nil {
		return err
	}
	if intent == Clone && !src.typ.Supports(Clone) {
		return newError(KindConstruct, "Block.InsertAt", "type does not support Clone")
	}

	if b.typ == nil {
		b.typ = src.typ
	}
	n := src.count
	needed := b.count + n
	if b.entry == nil || needed > b.reserved {
		if err := b.Reserve(nextPow2Int(needed)); err != nil {
			return err
		}
	}

	if index < b.count {
		dst := b.rawAt(index + n)
		source := b.rawAt(index)
		moveBackward(b.typ, dst, source, b.count-index)
	}

	dst := b.rawAt(index)
	switch {
	case intent == Clone:
		cloneRange(b.typ, dst, src.raw, n)
	case intent.ResetsSource():
		moveRange(b.typ, dst, src.raw, n)
		if !intent.SkipsCleanup() {
			destroyRange(src.typ, src.raw, n)
		}
		src.count = 0
	case intent == Copy, intent == Refer, intent == Disown:
		// dst is b's own storage, not an alias of src.entry: element-level
		// sharing (e.g. a nested Many bumping its own entry) is each
		// element type's CopyConstruct's job, not InsertAt's. b never
		// adopts src's entry here, so there is nothing of src's to Keep.
		copyRange(b.typ, dst, src.raw, n)
	default:
		return newError(KindConstruct, "Block.InsertAt", "unsupported intent")
	}

	b.count += n
	b.state = b.state.with(StateTyped)
	return nil
}

// moveBackward relocates n elements starting at src to dst, where dst is
// known to be to the right of src (used to open a gap for InsertAt); it
// walks from the tail so overlapping ranges never clobber unread source
// elements.
func moveBackward(t *DMeta, dst, src unsafe.Pointer, n int) {
	size := t.Size
	for i := n - 1; i >= 0; i-- {
		t.MoveConstruct(unsafe.Add(dst, uintptr(i)*size), unsafe.Add(src, uintptr(i)*size))
	}
}

// PushBack appends one element.
func (b *Block) PushBack(src *Block, intent Intent) error {
	return b.InsertAt(b.count, src, intent)
}

// PushFront prepends one element.
func (b *Block) PushFront(src *Block, intent Intent) error {
	return b.InsertAt(0, src, intent)
}

// RemoveAt destroys n elements starting at index and shifts the tail left.
func (b *Block) RemoveAt(index, n int) error {
	if err := b.ensureMutable("Block.RemoveAt"); err != nil {
		return err
	}
	if index < 0 || n < 0 || index+n > b.count {
		return newError(KindAccess, "Block.RemoveAt", "index out of range")
	}
	if n == 0 {
		return nil
	}
	destroyRange(b.typ, b.rawAt(index), n)
	tailCount := b.count - index - n
	if tailCount > 0 {
		moveRange(b.typ, b.rawAt(index), b.rawAt(index+n), tailCount)
	}
	b.count -= n
	return nil
}

// RemoveValue removes the first element equal to the one held by needle
// (a one-element Block), if any, reporting whether a match was removed.
func (b *Block) RemoveValue(needle *Block) (bool, error) {
	idx := b.FindForward(needle)
	if idx < 0 {
		return false, nil
	}
	return true, b.RemoveAt(idx, 1)
}

// FindForward returns the index of the first element equal to needle's
// single element, or -1.
func (b *Block) FindForward(needle *Block) int {
	if b.typ == nil || needle.typ != b.typ || needle.count == 0 {
		return -1
	}
	for i := 0; i < b.count; i++ {
		if b.typ.Equal(b.rawAt(i), needle.raw) {
			return i
		}
	}
	return -1
}

// FindReverse returns the index of the last element equal to needle's
// single element, or -1.
func (b *Block) FindReverse(needle *Block) int {
	if b.typ == nil || needle.typ != b.typ || needle.count == 0 {
		return -1
	}
	for i := b.count - 1; i >= 0; i-- {
		if b.typ.Equal(b.rawAt(i), needle.raw) {
			return i
		}
	}
	return -1
}

// Equal reports whether b and other hold the same element type, the same
// count, and compare element-wise equal.
func (b *Block) Equal(other *Block) bool {
	if b.count != other.count {
		return false
	}
	if b.count == 0 {
		return true
	}
	if b.typ != other.typ {
		return false
	}
	return equalRange(b.typ, b.raw, other.raw, b.count)
}

// Hash combines every live element's hash. It is recomputed on every call;
// Block itself does not cache it, though higher layers built on it may.
func (b *Block) Hash() uint64 {
	if b.count == 0 || b.typ == nil {
		return 0
	}
	return hashRange(b.typ, b.raw, b.count)
}

func nextPow2Int(n int) int {
	if n <= 1 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	n++
	return n
}
