// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package alloc implements the hierarchical, segregated-fit pool allocator
// that backs every container in the parent anyness package: Allocation
// headers, Pool suballocators, and the Allocator facade that routes
// requests across default/size/type chains.
//
// The package is internal because its address-to-slot arithmetic and free
// list linkage are unsafe implementation details; callers only ever see a
// *Allocation handle and the Hint they supply to steer routing.
package alloc

// Tactic is the routing policy attached to a type: which pool chain an
// Allocator.Allocate call for that type should consult.
type Tactic uint8

const (
	// Default routes to the allocator's single default chain.
	Default Tactic = iota
	// Size routes to a chain segregated by floor(log2(element size)).
	Size
	// Type routes to a chain dedicated to one type, whose head pool is
	// cached in Hint.Pool for O(1) re-entry.
	Type
)

// Hint is the allocator-facing subset of the root package's DMeta type
// token: just enough to route a request and remember which type-chain
// pool currently serves this type. It lives here, rather than in the
// parent package, so that alloc never needs to import anyness (which
// would create an import cycle, since anyness imports alloc).
type Hint struct {
	// Size is the element size in bytes; used by the Size tactic to pick
	// floor(log2(Size)) as the size-chain bucket.
	Size uintptr
	// Tactic selects which chain family to route through.
	Tactic Tactic
	// Pool is the writable head-of-chain slot for the Type tactic. The
	// Allocator patches this in place the first time it creates a pool
	// for this hint.
	Pool *Pool
}
