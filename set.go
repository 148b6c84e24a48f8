// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package anyness

import (
	"unsafe"

	"github.com/ravensilver/anyness/internal/alloc"
)

// Set is a Map with no value half — the same Robin Hood table, membership
// only.
type Set struct {
	m *Map
}

func newSet(allocator *alloc.Allocator, elemTyp *DMeta, ordered bool) *Set {
	return &Set{m: newMap(allocator, elemTyp, nil, false, ordered)}
}

// Count returns the number of stored elements.
func (s *Set) Count() int { return s.m.Count() }

// IsEmpty reports whether Count() == 0.
func (s *Set) IsEmpty() bool { return s.m.IsEmpty() }

// Insert adds value (consumed per intent), reporting whether it was new.
func (s *Set) Insert(value *Block, intent Intent) (bool, error) {
	return s.m.Insert(value, nil, intent)
}

// Has reports whether a value equal to the one at valuePtr is present.
func (s *Set) Has(valuePtr unsafe.Pointer) bool { return s.m.Has(valuePtr) }

// Remove deletes a value equal to the one at valuePtr, reporting whether
// it was present.
func (s *Set) Remove(valuePtr unsafe.Pointer) bool { return s.m.Remove(valuePtr) }

// ForEach visits every live element in iteration order, stopping early if
// visit returns Break.
func (s *Set) ForEach(visit func(valuePtr unsafe.Pointer) LoopControl) {
	s.m.ForEach(func(keyPtr, _ unsafe.Pointer) LoopControl { return visit(keyPtr) })
}

// Clear destroys every element but keeps the backing storage.
func (s *Set) Clear() { s.m.Clear() }

// Free releases every element and the table's backing storage.
func (s *Set) Free() error { return s.m.Free() }

// TSet is the statically-typed view over Set.
type TSet[T comparable] struct {
	s *Set
}

// NewTSet returns an empty TSet[T] using allocator for any future growth.
func NewTSet[T comparable](allocator *alloc.Allocator) *TSet[T] {
	return &TSet[T]{s: newSet(allocator, TypeMetaComparable[T](), false)}
}

// NewTOrderedSet is NewTSet with real insertion-order iteration.
func NewTOrderedSet[T comparable](allocator *alloc.Allocator) *TSet[T] {
	return &TSet[T]{s: newSet(allocator, TypeMetaComparable[T](), true)}
}

// Count returns the number of stored elements.
func (t *TSet[T]) Count() int { return t.s.Count() }

// IsEmpty reports whether Count() == 0.
func (t *TSet[T]) IsEmpty() bool { return t.s.IsEmpty() }

// Add inserts value, reporting whether it was new.
func (t *TSet[T]) Add(value T) bool {
	src := &Block{raw: unsafe.Pointer(&value), count: 1, reserved: 1, typ: TypeMetaComparable[T]()}
	added, _ := t.s.Insert(src, Move)
	return added
}

// Has reports whether value is present.
func (t *TSet[T]) Has(value T) bool { return t.s.Has(unsafe.Pointer(&value)) }

// Delete removes value, reporting whether it was present.
func (t *TSet[T]) Delete(value T) bool { return t.s.Remove(unsafe.Pointer(&value)) }

// ForEach visits every element in iteration order, stopping early if visit
// returns Break.
func (t *TSet[T]) ForEach(visit func(value T) LoopControl) {
	t.s.ForEach(func(ptr unsafe.Pointer) LoopControl {
		return visit(*(*T)(ptr))
	})
}

// Clear destroys every element but keeps the backing storage.
func (t *TSet[T]) Clear() { t.s.Clear() }

// Free releases every element and the table's backing storage.
func (t *TSet[T]) Free() error { return t.s.Free() }
