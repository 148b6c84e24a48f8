// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package anyness

import (
	"unsafe"

	"github.com/ravensilver/anyness/internal/alloc"
)

// Ref is a single allocator-backed, reference-counted value, the typed
// equivalent of a one-element Block. Share returns another Ref pointing at
// the same allocation with the reference count bumped (Refer semantics);
// Drop releases this Ref's share, freeing the value once the last share is
// dropped.
type Ref[T any] struct {
	Block
}

// NewRef constructs a Ref holding value, consumed according to intent.
func NewRef[T any](allocator *alloc.Allocator, value T, intent Intent) (*Ref[T], error) {
	r := &Ref[T]{Block: *NewBlock(allocator)}
	r.typ = TypeMeta[T]()
	src := &Block{raw: unsafe.Pointer(&value), count: 1, reserved: 1, typ: r.typ, state: StateTyped}
	if err := r.Block.InsertAt(0, src, intent); err != nil {
		return nil, err
	}
	return r, nil
}

// NewRefFunc constructs a Ref from newFunc's result, a convenience for
// callers that want to build T in place rather than pass an already-built
// value, since Go generics cannot forward an arbitrary constructor
// argument list.
func NewRefFunc[T any](allocator *alloc.Allocator, newFunc func() T) (*Ref[T], error) {
	return NewRef[T](allocator, newFunc(), Move)
}

// Get returns the held value by copy.
func (r *Ref[T]) Get() (T, error) {
	var zero T
	ptr, err := r.RawAt(0)
	if err != nil {
		return zero, err
	}
	return *(*T)(ptr), nil
}

// Set overwrites the held value, destroying the previous one first. It
// fails with ErrImmutable on a Ref produced by AsConst.
func (r *Ref[T]) Set(value T) error {
	if err := r.ensureMutable("Ref.Set"); err != nil {
		return err
	}
	ptr, err := r.RawAt(0)
	if err != nil {
		return err
	}
	if r.typ != nil {
		destroyRange(r.typ, ptr, 1)
	}
	*(*T)(ptr) = value
	return nil
}

// Share returns a new Ref pointing at the same allocation, with the
// reference count bumped — the Refer intent, made explicit as its own
// method since Ref has no second container to InsertAt into.
func (r *Ref[T]) Share() *Ref[T] {
	if r.entry != nil {
		r.entry.Keep()
	}
	return &Ref[T]{Block: Block{
		raw: r.raw, count: r.count, reserved: r.reserved,
		typ: r.typ, state: r.state, entry: r.entry, allocator: r.allocator,
	}}
}

// AsConst returns a shared, read-only view: mutation through Set fails
// with ErrImmutable, but Get and Share still work.
func (r *Ref[T]) AsConst() *Ref[T] {
	c := r.Share()
	c.state = c.state.with(StateConstant)
	return c
}

// Drop releases this Ref's share of the allocation, freeing the value if
// this was the last owner.
func (r *Ref[T]) Drop() error {
	return r.Free()
}
