// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package anyness

import (
	"sync"

	"github.com/ravensilver/anyness/internal/alloc"
)

// Allocator is the public handle to a pool allocator instance. It is a
// thin re-export of internal/alloc.Allocator: the hard address-arithmetic
// engineering lives in internal/alloc, where it can be unit-tested without
// dragging in the whole container surface.
type Allocator = alloc.Allocator

// NewAllocator creates a fresh, empty Allocator. A single Allocator (and
// every Block/Many/Map/Set built from it) is not safe for concurrent use;
// only the shared backend region cache wired in by init() below is.
func NewAllocator(opts alloc.Options) *Allocator {
	return alloc.New(opts)
}

var (
	defaultAllocatorOnce sync.Once
	defaultAllocator     *Allocator
)

// DefaultAllocator returns the process-wide Allocator used by every
// container constructed without an explicit one, created lazily on first
// use and torn down only at process exit.
func DefaultAllocator() *Allocator {
	defaultAllocatorOnce.Do(func() {
		defaultAllocator = NewAllocator(alloc.Options{})
	})
	return defaultAllocator
}

func init() {
	alloc.AcquireBackendHook = globalBackendCache.acquire
	alloc.ReleaseBackendHook = globalBackendCache.release
}
