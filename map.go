// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package anyness

import (
	"sort"
	"unsafe"

	"github.com/ravensilver/anyness/internal/alloc"
)

// minimalMapAllocation is the smallest capacity a non-empty Map/Set table
// is ever given (the MinimalAllocation floor), so a
// freshly-inserted-into table doesn't rehash on its second or third entry.
const minimalMapAllocation = 8

// mapLoadFactorNum/Den express the 0.875 rehash threshold as an integer
// comparison ((count+1)*8 > reserved*7, checked before each insert) so no
// float64 ever enters the hot path.
const (
	mapLoadFactorNum = 7
	mapLoadFactorDen = 8
)

// Map is the type-erased Robin Hood hash table backing both TMap and Set (a
// Set is a Map with hasValues false). Keys live in a Block sized to
// capacity; info holds one uint16 probe distance per slot (0 means empty,
// d+1 means occupied at displacement d from its home slot), with one extra
// sentinel entry past the last real slot that is never written, so a linear
// scan that overruns the table for any reason reads a guaranteed 0 instead
// of wrapping into unrelated memory. Values, when present, live in a
// second, parallel Block. seq/nextSeq record insertion order for the
// Ordered variant only; the plain variant leaves them unused.
type Map struct {
	keys   Block
	values Block
	info   []uint16
	seq    []uint64

	count    int
	reserved int
	nextSeq  uint64

	hasValues bool
	ordered   bool

	allocator *alloc.Allocator
}

func newMap(allocator *alloc.Allocator, keyTyp, valTyp *DMeta, hasValues, ordered bool) *Map {
	m := &Map{allocator: allocator, hasValues: hasValues, ordered: ordered}
	m.keys.allocator = allocator
	m.keys.typ = keyTyp
	if hasValues {
		m.values.allocator = allocator
		m.values.typ = valTyp
	}
	return m
}

// Count returns the number of live key/value pairs.
func (m *Map) Count() int { return m.count }

// IsEmpty reports whether Count() == 0.
func (m *Map) IsEmpty() bool { return m.count == 0 }

// Reserved returns the table's current slot capacity.
func (m *Map) Reserved() int { return m.reserved }

func (m *Map) alloc() *alloc.Allocator {
	if m.allocator == nil {
		m.allocator = DefaultAllocator()
	}
	return m.allocator
}

func (m *Map) mask() int { return m.reserved - 1 }

func (m *Map) keyAt(i int) unsafe.Pointer {
	return unsafe.Add(m.keys.raw, uintptr(i)*m.keys.typ.Size)
}

func (m *Map) valAt(i int) unsafe.Pointer {
	return unsafe.Add(m.values.raw, uintptr(i)*m.values.typ.Size)
}

func (m *Map) ensureCapacity() error {
	if m.reserved == 0 {
		return m.rehash(minimalMapAllocation)
	}
	if (m.count+1)*mapLoadFactorDen > m.reserved*mapLoadFactorNum {
		return m.rehash(m.reserved * 2)
	}
	return nil
}

// rehash allocates a fresh table of newReserved slots and reinserts every
// live entry into it, then releases the old storage. It never reuses the
// old Block's backing allocation in place: Block.Reserve would otherwise
// decide on its own whether growth happens in place or via a fresh
// Allocate+copy-old-count-elements, and this table's occupancy (driven by
// info, not Block.count) is invisible to that decision.
func (m *Map) rehash(newReserved int) error {
	oldReserved := m.reserved
	oldInfo := m.info
	oldSeq := m.seq
	oldKeys := m.keys
	oldValues := m.values

	newKeys := Block{allocator: m.keys.allocator, typ: m.keys.typ}
	if err := newKeys.Reserve(newReserved); err != nil {
		return err
	}
	var newValues Block
	if m.hasValues {
		newValues = Block{allocator: m.values.allocator, typ: m.values.typ}
		if err := newValues.Reserve(newReserved); err != nil {
			_ = newKeys.Free()
			return err
		}
	}

	m.keys = newKeys
	m.values = newValues
	m.info = make([]uint16, newReserved+1)
	if m.ordered {
		m.seq = make([]uint64, newReserved+1)
	} else {
		m.seq = nil
	}
	m.reserved = newReserved
	m.count = 0

	for i := 0; i < oldReserved; i++ {
		if oldInfo[i] == 0 {
			continue
		}
		keyPtr := unsafe.Add(oldKeys.raw, uintptr(i)*oldKeys.typ.Size)
		var valPtr unsafe.Pointer
		if m.hasValues {
			valPtr = unsafe.Add(oldValues.raw, uintptr(i)*oldValues.typ.Size)
		}
		seq := uint64(0)
		if m.ordered && oldSeq != nil {
			seq = oldSeq[i]
		}
		if _, err := m.insertSlot(keyPtr, valPtr, seq); err != nil {
			return err
		}
	}

	// oldKeys/oldValues still have count == 0 (occupancy was never tracked
	// through Block.count), so Free()'s own destroyRange is a no-op here —
	// every live element was already moved out by insertSlot above.
	_ = oldKeys.Free()
	if m.hasValues {
		_ = oldValues.Free()
	}
	return nil
}

// swapSlot exchanges the resident key/value at slot i with the incoming
// one described by keyPtr/valPtr, leaving the former resident's bytes in
// keyPtr/valPtr so the caller can continue probing with it (the core of
// Robin Hood insertion: "steal from the rich, give to the poor").
func (m *Map) swapSlot(i int, keyPtr, valPtr unsafe.Pointer) {
	tmpKey := make([]byte, m.keys.typ.Size)
	tmpKeyPtr := unsafe.Pointer(unsafe.SliceData(tmpKey))
	m.keys.typ.MoveConstruct(tmpKeyPtr, m.keyAt(i))
	m.keys.typ.MoveConstruct(m.keyAt(i), keyPtr)
	m.keys.typ.MoveConstruct(keyPtr, tmpKeyPtr)

	if m.hasValues && valPtr != nil {
		tmpVal := make([]byte, m.values.typ.Size)
		tmpValPtr := unsafe.Pointer(unsafe.SliceData(tmpVal))
		m.values.typ.MoveConstruct(tmpValPtr, m.valAt(i))
		m.values.typ.MoveConstruct(m.valAt(i), valPtr)
		m.values.typ.MoveConstruct(valPtr, tmpValPtr)
	}
}

// maxProbeDist is the largest probe distance an info slot can record; 0 is
// reserved to mean "empty", so a distance that would reach 1<<16 can never
// be written without wrapping back to 0 and corrupting the table (a live
// slot misread as empty). insertSlot rehashes to a larger table instead of
// letting dist reach it.
const maxProbeDist = 1<<16 - 1

// insertSlot places the entry described by keyPtr/valPtr (already owned,
// moved out of by this call) into the table using Robin Hood probing with
// the "steal from the rich" displacement rule. seq is the insertion
// sequence number recorded for the Ordered variant's iteration order (its
// value is ignored when m.ordered is false). Reports whether this added a
// new key (false means an existing key's value was overwritten instead).
func (m *Map) insertSlot(keyPtr, valPtr unsafe.Pointer, seq uint64) (bool, error) {
	for {
		mask := m.mask()
		i := int(m.keys.typ.Hash(keyPtr)) & mask
		dist := uint16(1)
		overflowed := false

		for {
			switch {
			case m.info[i] == 0:
				m.keys.typ.MoveConstruct(m.keyAt(i), keyPtr)
				if m.hasValues && valPtr != nil {
					m.values.typ.MoveConstruct(m.valAt(i), valPtr)
				}
				m.info[i] = dist
				if m.ordered {
					m.seq[i] = seq
				}
				m.count++
				return true, nil
			case m.keys.typ.Equal(m.keyAt(i), keyPtr):
				destroyRange(m.keys.typ, keyPtr, 1)
				if m.hasValues && valPtr != nil {
					destroyRange(m.values.typ, m.valAt(i), 1)
					m.values.typ.MoveConstruct(m.valAt(i), valPtr)
				}
				return false, nil
			case dist > m.info[i]:
				residentDist := m.info[i]
				var residentSeq uint64
				if m.ordered {
					residentSeq = m.seq[i]
					m.seq[i] = seq
				}
				m.swapSlot(i, keyPtr, valPtr)
				m.info[i] = dist
				dist = residentDist + 1
				seq = residentSeq
			default:
				dist++
			}
			if dist == maxProbeDist {
				// Whatever entry keyPtr/valPtr now holds (original or one
				// displaced along the way) hasn't been written anywhere
				// yet; rehashing and retrying from scratch against the
				// larger table is safe.
				overflowed = true
				break
			}
			i = (i + 1) & mask
		}
		if !overflowed {
			continue
		}
		if err := m.rehash(m.reserved * 2); err != nil {
			return false, err
		}
	}
}

// find returns the slot holding a key equal to the one at keyPtr, using the
// standard Robin Hood early-exit: once the current probe distance exceeds
// the resident's stored distance, no later slot can hold the key either.
func (m *Map) find(keyPtr unsafe.Pointer) (int, bool) {
	if m.reserved == 0 {
		return 0, false
	}
	mask := m.mask()
	i := int(m.keys.typ.Hash(keyPtr)) & mask
	dist := uint16(1)
	for {
		if m.info[i] == 0 || dist > m.info[i] {
			return 0, false
		}
		if m.keys.typ.Equal(m.keyAt(i), keyPtr) {
			return i, true
		}
		dist++
		i = (i + 1) & mask
	}
}

// Insert inserts key/value (each consumed per intent), growing the table
// first if the load factor would exceed 0.875. Reports whether this added
// a new key.
func (m *Map) Insert(key, value *Block, intent Intent) (bool, error) {
	if m.keys.typ == nil {
		m.keys.typ = key.typ
	}
	if key.typ != m.keys.typ {
		return false, newError(KindMutate, "Map.Insert", "incompatible key type")
	}
	if m.hasValues && value != nil {
		if m.values.typ == nil {
			m.values.typ = value.typ
		} else if value.typ != m.values.typ {
			return false, newError(KindMutate, "Map.Insert", "incompatible value type")
		}
	}
	if intent == Clone && !key.typ.Supports(Clone) {
		return false, newError(KindConstruct, "Map.Insert", "key type does not support Clone")
	}
	if err := m.ensureCapacity(); err != nil {
		return false, err
	}

	keyBuf := make([]byte, m.keys.typ.Size)
	keyPtr := unsafe.Pointer(unsafe.SliceData(keyBuf))
	if err := m.materialize(m.keys.typ, keyPtr, key, intent); err != nil {
		return false, err
	}

	var valPtr unsafe.Pointer
	if m.hasValues && value != nil {
		valBuf := make([]byte, m.values.typ.Size)
		valPtr = unsafe.Pointer(unsafe.SliceData(valBuf))
		if err := m.materialize(m.values.typ, valPtr, value, intent); err != nil {
			return false, err
		}
	}

	seq := m.nextSeq
	m.nextSeq++
	return m.insertSlot(keyPtr, valPtr, seq)
}

func (m *Map) materialize(typ *DMeta, dst unsafe.Pointer, src *Block, intent Intent) error {
	switch intent {
	case Copy, Refer, Disown:
		// dst is the map's own key/value slot storage, not an alias of
		// src.entry, so there is nothing of src's for the map to Keep:
		// element-level sharing is CopyConstruct's job, same as Block.InsertAt.
		typ.CopyConstruct(dst, src.raw)
	case Clone:
		cloneRange(typ, dst, src.raw, 1)
	case Move, Abandon:
		typ.MoveConstruct(dst, src.raw)
		if intent == Move {
			destroyRange(typ, src.raw, 1)
		}
		src.count = 0
	default:
		return newError(KindConstruct, "Map.Insert", "unsupported intent")
	}
	return nil
}

// At returns a pointer to the value stored for a key equal to the one at
// keyPtr, or an Access error if absent.
func (m *Map) At(keyPtr unsafe.Pointer) (unsafe.Pointer, error) {
	i, ok := m.find(keyPtr)
	if !ok {
		return nil, newError(KindAccess, "Map.At", "key not found")
	}
	if !m.hasValues {
		return nil, newError(KindAccess, "Map.At", "no value half (Set)")
	}
	return m.valAt(i), nil
}

// Has reports whether a key equal to the one at keyPtr is present.
func (m *Map) Has(keyPtr unsafe.Pointer) bool {
	_, ok := m.find(keyPtr)
	return ok
}

// Remove deletes the key equal to the one at keyPtr, using backward-shift
// deletion (no tombstones): every following entry in the same probe
// sequence slides back one slot until a slot already at its own home
// position (or empty) is reached. Reports whether a key was removed.
func (m *Map) Remove(keyPtr unsafe.Pointer) bool {
	i, ok := m.find(keyPtr)
	if !ok {
		return false
	}
	m.removeSlot(i)
	return true
}

// removeSlot destroys the entry at slot i and backward-shifts every
// following entry in its probe sequence, the same deletion path Remove and
// ForEach's Discard control both drive.
func (m *Map) removeSlot(i int) {
	destroyRange(m.keys.typ, m.keyAt(i), 1)
	if m.hasValues {
		destroyRange(m.values.typ, m.valAt(i), 1)
	}
	mask := m.mask()
	for {
		next := (i + 1) & mask
		if m.info[next] <= 1 {
			m.info[i] = 0
			if m.ordered {
				m.seq[i] = 0
			}
			break
		}
		m.keys.typ.MoveConstruct(m.keyAt(i), m.keyAt(next))
		if m.hasValues {
			m.values.typ.MoveConstruct(m.valAt(i), m.valAt(next))
		}
		m.info[i] = m.info[next] - 1
		if m.ordered {
			m.seq[i] = m.seq[next]
		}
		i = next
	}
	m.count--
}

// ForEach visits every live slot's key pointer (and value pointer, nil for
// a Set) in iteration order: insertion order for an Ordered table, raw
// slot order otherwise. Discard removes the current entry via the same
// backward-shift Remove uses; because that shift can relocate a
// not-yet-visited entry into an already-visited slot, a visitor that
// Discards should not assume every live entry is still seen exactly once
// in the same pass (the snapshotted index list does not track the shift).
func (m *Map) ForEach(visit func(keyPtr, valPtr unsafe.Pointer) LoopControl) {
	indices := m.liveIndices()
	for _, i := range indices {
		if m.info[i] == 0 {
			continue // already shifted away by an earlier Discard this pass
		}
		var valPtr unsafe.Pointer
		if m.hasValues {
			valPtr = m.valAt(i)
		}
		switch visit(m.keyAt(i), valPtr) {
		case Break:
			return
		case Discard:
			m.removeSlot(i)
		}
	}
}

func (m *Map) liveIndices() []int {
	out := make([]int, 0, m.count)
	for i := 0; i < m.reserved; i++ {
		if m.info[i] != 0 {
			out = append(out, i)
		}
	}
	if m.ordered {
		sort.Slice(out, func(a, b int) bool { return m.seq[out[a]] < m.seq[out[b]] })
	}
	return out
}

// Clear destroys every live entry but keeps the backing storage.
func (m *Map) Clear() {
	for i := 0; i < m.reserved; i++ {
		if m.info[i] == 0 {
			continue
		}
		destroyRange(m.keys.typ, m.keyAt(i), 1)
		if m.hasValues {
			destroyRange(m.values.typ, m.valAt(i), 1)
		}
		m.info[i] = 0
	}
	m.count = 0
}

// Free releases every live entry and the table's backing storage.
func (m *Map) Free() error {
	m.Clear()
	if err := m.keys.Free(); err != nil {
		return err
	}
	return m.values.Free()
}

// TMap is the statically-typed view over Map.
type TMap[K comparable, V any] struct {
	m *Map
}

// NewTMap returns an empty TMap[K, V] using allocator for any future growth.
func NewTMap[K comparable, V any](allocator *alloc.Allocator) *TMap[K, V] {
	return &TMap[K, V]{m: newMap(allocator, TypeMetaComparable[K](), TypeMeta[V](), true, false)}
}

// NewTOrderedMap is NewTMap with real insertion-order iteration.
func NewTOrderedMap[K comparable, V any](allocator *alloc.Allocator) *TMap[K, V] {
	return &TMap[K, V]{m: newMap(allocator, TypeMetaComparable[K](), TypeMeta[V](), true, true)}
}

// Count returns the number of stored key/value pairs.
func (t *TMap[K, V]) Count() int { return t.m.Count() }

// IsEmpty reports whether Count() == 0.
func (t *TMap[K, V]) IsEmpty() bool { return t.m.IsEmpty() }

// Set inserts or overwrites the value for key.
func (t *TMap[K, V]) Set(key K, value V) {
	keySrc := &Block{raw: unsafe.Pointer(&key), count: 1, reserved: 1, typ: TypeMetaComparable[K]()}
	valSrc := &Block{raw: unsafe.Pointer(&value), count: 1, reserved: 1, typ: TypeMeta[V]()}
	_, _ = t.m.Insert(keySrc, valSrc, Move)
}

// Get returns the value for key and whether it was present.
func (t *TMap[K, V]) Get(key K) (V, bool) {
	var zero V
	ptr, err := t.m.At(unsafe.Pointer(&key))
	if err != nil {
		return zero, false
	}
	return *(*V)(ptr), true
}

// Has reports whether key is present.
func (t *TMap[K, V]) Has(key K) bool { return t.m.Has(unsafe.Pointer(&key)) }

// Delete removes key, reporting whether it was present.
func (t *TMap[K, V]) Delete(key K) bool { return t.m.Remove(unsafe.Pointer(&key)) }

// ForEach visits every pair in iteration order, stopping early if visit
// returns Break.
func (t *TMap[K, V]) ForEach(visit func(pair TPair[K, V]) LoopControl) {
	t.m.ForEach(func(keyPtr, valPtr unsafe.Pointer) LoopControl {
		return visit(viewTPair((*K)(keyPtr), (*V)(valPtr)))
	})
}

// Clear destroys every entry but keeps the backing storage.
func (t *TMap[K, V]) Clear() { t.m.Clear() }

// Free releases every entry and the table's backing storage.
func (t *TMap[K, V]) Free() error { return t.m.Free() }
