// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package anyness

import (
	"reflect"
	"sync"
	"unsafe"

	"github.com/ravensilver/anyness/internal/alloc"
)

// PoolTactic is the routing policy a DMeta attaches to its type: which of
// the Allocator's pool chains an allocation for that type should use.
type PoolTactic = alloc.Tactic

const (
	// DefaultTactic routes through the allocator's single default chain.
	DefaultTactic = alloc.Default
	// SizeTactic routes through a chain segregated by element size.
	SizeTactic = alloc.Size
	// TypeTactic routes through a chain dedicated to one type.
	TypeTactic = alloc.Type
)

// DMeta is the RTTI-shaped type token every Block, Many, Map, Set, Pair,
// Own and Ref consults to know how to construct, destroy, compare and hash
// its elements. TypeMeta builds one generically from a Go type parameter;
// callers only ever read it afterward.
type DMeta struct {
	Name  string
	Size  uintptr
	Align uintptr

	PoolTactic PoolTactic

	IsPOD         bool
	IsAbstract    bool
	IsNullifiable bool

	CopyConstruct func(dst, src unsafe.Pointer)
	MoveConstruct func(dst, src unsafe.Pointer)
	Destroy       func(obj unsafe.Pointer)
	Equal         func(a, b unsafe.Pointer) bool
	Hash          func(a unsafe.Pointer) uint64

	// CloneConstruct builds an independent deep copy of one element, for
	// types where that differs from CopyConstruct (a type nested inside
	// another container, like Many, shares the source's allocation under
	// Copy but must recurse into a fresh one under Clone). Left nil for
	// every type TypeMeta builds, since a plain value's CopyConstruct
	// already produces an independent copy; cloneRange falls back to
	// CopyConstruct whenever this is nil.
	CloneConstruct func(dst, src unsafe.Pointer)

	BaseList []*DMeta

	// hint is the allocator-facing projection of this DMeta, shared with
	// every Block that carries this type so that Type-tactic pools are
	// found and reused across containers of the same element type.
	hint *alloc.Hint

	// supportsClone gates the Clone capability check at the type-erased
	// Block layer (typed wrappers gate intents at compile time instead, via
	// Go's type system/generic constraints).
	supportsClone bool
}

// Hint returns the allocator-facing routing hint for this type, creating
// it lazily on first use.
func (m *DMeta) Hint() *alloc.Hint {
	if m.hint == nil {
		m.hint = &alloc.Hint{Size: m.Size, Tactic: m.PoolTactic}
	}
	return m.hint
}

// Supports reports whether this type can be constructed under the given
// Intent. Every intent other than Clone is always reported supported.
// Clone is reported supported only for a DMeta whose supportsClone flag is
// set, as TypeMeta, TypeMetaComparable and the package's Many token do; a
// DMeta built by hand outside this package reports false for Clone,
// whatever its IsPOD or CopyConstruct.
func (m *DMeta) Supports(intent Intent) bool {
	switch intent {
	case Clone:
		return m.supportsClone
	default:
		return true
	}
}

// typeMetas and comparableTypeMetas hold the one token TypeMeta and
// TypeMetaComparable respectively build per Go type, keyed by reflect.Type:
// containers compare element types by token identity.
var typeMetas, comparableTypeMetas sync.Map

// TypeMeta returns the DMeta token for Go type T, building it on the first
// call for T and returning that same token on every later call. Size and
// alignment are derived via reflection once; copy/move/destroy are plain
// generic closures, while Equal and Hash go through equalAny/hashAny
// (reflect.DeepEqual and an fnv hash of the %#v formatting).
func TypeMeta[T any]() *DMeta {
	key := reflect.TypeFor[T]()
	if m, ok := typeMetas.Load(key); ok {
		return m.(*DMeta)
	}
	var zero T
	rt := reflect.TypeOf(zero)
	name := "unknown"
	if rt != nil {
		name = rt.String()
	}

	isPOD := isPODType[T]()

	m, _ := typeMetas.LoadOrStore(key, &DMeta{
		Name:          name,
		Size:          unsafe.Sizeof(zero),
		Align:         unsafe.Alignof(zero),
		PoolTactic:    DefaultTactic,
		IsPOD:         isPOD,
		IsNullifiable: isPOD,
		supportsClone: true,
		CopyConstruct: func(dst, src unsafe.Pointer) {
			*(*T)(dst) = *(*T)(src)
		},
		MoveConstruct: func(dst, src unsafe.Pointer) {
			*(*T)(dst) = *(*T)(src)
			var zeroVal T
			*(*T)(src) = zeroVal
		},
		Destroy: func(obj unsafe.Pointer) {
			var zeroVal T
			*(*T)(obj) = zeroVal
		},
		Equal: func(a, b unsafe.Pointer) bool {
			return equalAny((*(*T)(a)), (*(*T)(b)))
		},
		Hash: func(a unsafe.Pointer) uint64 {
			return hashAny(*(*T)(a))
		},
	})
	return m.(*DMeta)
}

// TypeMetaComparable returns the DMeta token for a comparable Go type T,
// built the same way TypeMeta does, but binds Equal/Hash to the native ==
// operator and hash/maphash.Comparable instead of reflect.DeepEqual and an
// fnv-over-%#v fallback. Map and Set key types always use this path. It is
// a token distinct from TypeMeta[T]()'s, likewise built once per T.
func TypeMetaComparable[T comparable]() *DMeta {
	key := reflect.TypeFor[T]()
	if cached, ok := comparableTypeMetas.Load(key); ok {
		return cached.(*DMeta)
	}
	m := new(DMeta)
	*m = *TypeMeta[T]()
	m.Equal = func(a, b unsafe.Pointer) bool {
		return equalComparable(*(*T)(a), *(*T)(b))
	}
	m.Hash = func(a unsafe.Pointer) uint64 {
		return hashComparable(*(*T)(a))
	}
	stored, _ := comparableTypeMetas.LoadOrStore(key, m)
	return stored.(*DMeta)
}

// isPODType is a coarse, reflection-based approximation of "plain old
// data": no pointers, interfaces, slices, maps, channels, or functions
// reachable from T. It is used only to decide the nullifiable/POD fast
// path hints on DMeta; it never gates correctness.
func isPODType[T any]() bool {
	var zero T
	rt := reflect.TypeOf(zero)
	if rt == nil {
		return true
	}
	return podKind(rt, 0)
}

func podKind(rt reflect.Type, depth int) bool {
	if depth > 8 {
		return false
	}
	switch rt.Kind() {
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	case reflect.Array:
		return podKind(rt.Elem(), depth+1)
	case reflect.Struct:
		for i := range rt.NumField() {
			if !podKind(rt.Field(i).Type, depth+1) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
