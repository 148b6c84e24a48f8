// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package anyness

// Intent is the value-category tag every container's constructor and
// assignment operator accepts uniformly. It determines whether memory is
// shared (ref-count bump), deep-copied, moved, or transferred without
// cleanup.
type Intent uint8

const (
	// Copy shares memory with the source and bumps its reference count.
	// The source is left untouched.
	Copy Intent = iota + 1
	// Refer is a synonym of Copy, used at call sites constructing Own/Ref
	// pointers where "referring" reads more naturally than "copying".
	Refer
	// Move hands over ownership; the source is reset to its zero value.
	Move
	// Clone deep-copies into a freshly allocated region; neither side's
	// reference count changes and the source is untouched.
	Clone
	// Disown takes a shallow, non-owning view: no reference is taken and
	// no cleanup is performed when the resulting container is dropped.
	Disown
	// Abandon moves but skips the source's cleanup step; the source may be
	// left in a partially-valid state and must not be used afterwards.
	Abandon
)

func (i Intent) String() string {
	switch i {
	case Copy:
		return "copy"
	case Refer:
		return "refer"
	case Move:
		return "move"
	case Clone:
		return "clone"
	case Disown:
		return "disown"
	case Abandon:
		return "abandon"
	default:
		return "unknown"
	}
}

// SharesMemory reports whether the intent results in two containers backed
// by the same allocation (Copy/Refer), as opposed to an independent or
// transferred one.
func (i Intent) SharesMemory() bool {
	return i == Copy || i == Refer
}

// ResetsSource reports whether applying the intent must reset the source
// container to its zero value once the operation completes.
func (i Intent) ResetsSource() bool {
	return i == Move || i == Abandon
}

// SkipsCleanup reports whether dropping the source after the intent is
// applied must skip the normal destructor/deallocate path (Abandon only;
// Disown never owned anything to begin with).
func (i Intent) SkipsCleanup() bool {
	return i == Abandon
}
