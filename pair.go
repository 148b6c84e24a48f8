// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package anyness

// Pair is the type-erased key/value tuple: two one-element Blocks glued
// together and freed as a unit. Constructing
// one consumes both key and value according to intent, same as any other
// container in this package.
type Pair struct {
	Key   Block
	Value Block
}

// NewPair builds a Pair from key and value, each consumed according to
// intent. A nil value is valid (a Set's "pair" has no value half).
func NewPair(key, value *Block, intent Intent) (*Pair, error) {
	p := &Pair{}
	if key != nil {
		if err := p.Key.InsertAt(0, key, intent); err != nil {
			return nil, err
		}
	}
	if value != nil {
		if err := p.Value.InsertAt(0, value, intent); err != nil {
			_ = p.Key.Free()
			return nil, err
		}
	}
	return p, nil
}

// Free releases both halves of the pair.
func (p *Pair) Free() error {
	if err := p.Key.Free(); err != nil {
		return err
	}
	return p.Value.Free()
}

// TPair is the typed counterpart to Pair. Unlike every other typed wrapper
// in this package, TPair never owns an allocation of its own: it is always
// a view — either over a pair of plain Go values (NewTPair) or, in the mode
// TMap.ForEach uses, directly over a hash
// table's key/value slots, so mutating Value() through the pair mutates the
// table in place with no copy.
type TPair[K, V any] struct {
	keyPtr   *K
	valuePtr *V
}

// NewTPair builds a standalone TPair over copies of key and value.
func NewTPair[K, V any](key K, value V) TPair[K, V] {
	return TPair[K, V]{keyPtr: &key, valuePtr: &value}
}

// viewTPair builds a TPair pointing directly at existing storage — the mode
// used by TMap.ForEach, where keyPtr/valuePtr alias the table's own
// backing slots.
func viewTPair[K, V any](keyPtr *K, valuePtr *V) TPair[K, V] {
	return TPair[K, V]{keyPtr: keyPtr, valuePtr: valuePtr}
}

// Key returns the pair's key.
func (p TPair[K, V]) Key() K { return *p.keyPtr }

// Value returns the pair's value.
func (p TPair[K, V]) Value() V { return *p.valuePtr }

// SetValue overwrites the value. On a view TPair handed out by
// TMap.ForEach this writes through to the table itself.
func (p TPair[K, V]) SetValue(value V) { *p.valuePtr = value }
