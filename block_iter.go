// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package anyness

import "unsafe"

// LoopControl is the value a visitor passed to ForEach/ForEachReverse/
// ForEachDeep returns to steer iteration.
type LoopControl uint8

const (
	// Continue moves on to the next element.
	Continue LoopControl = iota
	// Break stops iteration immediately.
	Break
	// Repeat re-visits the same element again (the visitor is responsible
	// for making eventual progress; typically paired with a mutation that
	// changes what "the same index" now holds).
	Repeat
	// Discard deletes the current element (mutating iteration only) and
	// moves on.
	Discard
	// NextLoop ends the iteration the same way Break does; ForEach reports
	// nothing back, so the caller cannot tell the two apart.
	NextLoop
)

// Visitor inspects or mutates the element at ptr and returns a
// LoopControl directing the iteration.
type Visitor func(ptr unsafe.Pointer) LoopControl

// ForEach visits every live element from front to back once per visitor:
// the first visitor makes a full pass, then the second, and so on. Every
// visitor sees every element; there is no dispatch on element type. A
// Break or NextLoop from any visitor ends the whole call, skipping the
// remaining visitors.
func (b *Block) ForEach(visitors ...Visitor) {
	if b.typ == nil {
		return
	}
	for _, visit := range visitors {
		i := 0
		for i < b.count {
			switch visit(b.rawAt(i)) {
			case Break:
				return
			case Repeat:
				continue
			case Discard:
				_ = b.RemoveAt(i, 1)
				continue
			case NextLoop:
				return
			default: // Continue
				i++
			}
		}
	}
}

// ForEachReverse is ForEach, walking from back to front.
func (b *Block) ForEachReverse(visitors ...Visitor) {
	if b.typ == nil {
		return
	}
	for _, visit := range visitors {
		i := b.count - 1
		for i >= 0 {
			switch visit(b.rawAt(i)) {
			case Break:
				return
			case Repeat:
				continue
			case Discard:
				_ = b.RemoveAt(i, 1)
				i--
			case NextLoop:
				return
			default:
				i--
			}
		}
	}
}

// deepElementType is set by many.go once the Many/TMany wrapper types exist,
// so block_iter.go can recognize a Block-of-Blocks element without this
// file needing to import a generic Many[T] (which would be circular: many
// .go depends on Block, not the reverse).
var deepElementType func(t *DMeta) bool

// ForEachDeep visits every live element, recursing into elements whose
// type is itself a nested Block-typed container (a "Deep" container, see
// Many.SmartPush). Non-deep elements are visited directly.
func (b *Block) ForEachDeep(visit Visitor) {
	if b.typ == nil {
		return
	}
	if deepElementType != nil && deepElementType(b.typ) {
		for i := 0; i < b.count; i++ {
			nested := (*Block)(b.rawAt(i))
			nested.ForEachDeep(visit)
		}
		return
	}
	b.ForEach(visit)
}
