// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package anyness

import (
	"fmt"
	"hash/fnv"
	"hash/maphash"
	"reflect"
)

var globalHashSeed = maphash.MakeSeed()

// equalAny is the fallback equality predicate bound into a DMeta built by
// TypeMeta[T] for an unconstrained T. It is correct for any T (including
// slices and maps, unlike ==) but slower than the native comparison
// TypeMetaComparable binds for comparable key/element types.
func equalAny(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

// hashAny is the fallback hash function bound into a DMeta built by
// TypeMeta[T] for an unconstrained T.
func hashAny(a any) uint64 {
	h := fnv.New64a()
	_, _ = fmt.Fprintf(h, "%#v", a)
	return h.Sum64()
}

// equalComparable and hashComparable back TypeMetaComparable: they use
// Go's native comparable constraint and hash/maphash.Comparable, the
// fast, allocation-free path the Robin Hood table (Map/Set) relies on for
// its key type.
func equalComparable[T comparable](a, b T) bool {
	return a == b
}

func hashComparable[T comparable](a T) uint64 {
	return maphash.Comparable(globalHashSeed, a)
}
