// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package anyness

// Own is the lightest-weight wrapper in the family: a single value held by
// the Go runtime's own value semantics, with no allocator involvement and
// no reference counting. It exists so APIs that accept "any owned T" have
// one uniform spelling regardless of whether T also happens to satisfy
// Ref's or TMany's constraints, and so call sites can express intent
// (Move vs Copy) even for values that don't otherwise need a container.
type Own[T any] struct {
	value T
	moved bool
}

// NewOwn wraps value. It takes no Intent: value arrives as a Go value copy,
// so there is no caller-side copy to clear; moving out of an existing
// *Own[T] is what Take does.
func NewOwn[T any](value T) Own[T] {
	return Own[T]{value: value}
}

// Take moves src's value out, leaving src in its zero state. Taking from
// an already-moved-from Own panics: use-after-move is a programmer error,
// not a recoverable one.
func Take[T any](src *Own[T]) T {
	if src.moved {
		panic("anyness: Own already moved from")
	}
	v := src.value
	var zero T
	src.value = zero
	src.moved = true
	return v
}

// Get returns the held value without consuming it.
func (o *Own[T]) Get() T { return o.value }

// Set overwrites the held value, un-marking any previous move.
func (o *Own[T]) Set(value T) {
	o.value = value
	o.moved = false
}

// IsMoved reports whether Take has already consumed this Own.
func (o *Own[T]) IsMoved() bool { return o.moved }
