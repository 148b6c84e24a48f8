// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package alloc

import (
	"testing"
	"unsafe"
)

func TestAllocatorAllocateDefaultChain(t *testing.T) {
	al := New(Options{})
	a := al.Allocate(nil, 32)
	if a == nil {
		t.Fatal("Allocate(nil, 32) = nil, want a live Allocation")
	}
	if got := a.AllocatedBytes(); got != 32 {
		t.Fatalf("AllocatedBytes() = %d, want 32", got)
	}
}

func TestAllocatorAllocateSizeTactic(t *testing.T) {
	al := New(Options{})
	small := &Hint{Size: 8, Tactic: Size}
	large := &Hint{Size: 4096, Tactic: Size}

	a := al.Allocate(small, 8)
	b := al.Allocate(large, 4096)
	if a == nil || b == nil {
		t.Fatal("Allocate failed for a Size-tactic hint")
	}
	if al.Find(small, a.BlockStart()) != a {
		t.Fatal("Find via the small hint's chain did not locate a")
	}
}

func TestAllocatorAllocateTypeTacticCachesPool(t *testing.T) {
	al := New(Options{})
	hint := &Hint{Size: 24, Tactic: Type}

	a := al.Allocate(hint, 24)
	if a == nil {
		t.Fatal("Allocate(Type hint) = nil")
	}
	if hint.Pool == nil {
		t.Fatal("hint.Pool was not patched in after the first allocation under it")
	}

	b := al.Allocate(hint, 24)
	if b == nil {
		t.Fatal("second Allocate under the same Type hint failed")
	}
	if b.pool().Meta != hint {
		t.Fatal("second allocation did not land in a pool routed by the hint's Type chain")
	}
}

func TestAllocatorReallocateGrowsOrMigrates(t *testing.T) {
	al := New(Options{})
	a := al.Allocate(nil, 8)
	band := a.BandBytes()

	grown := al.Reallocate(band, a)
	if grown != a {
		t.Fatal("Reallocate within the band migrated when it should have grown in place")
	}

	migrated := al.Reallocate(band+1, a)
	if migrated == a {
		t.Fatal("Reallocate past the band should return a fresh Allocation")
	}
	if migrated == nil {
		t.Fatal("Reallocate past the band returned nil")
	}
}

func TestAllocatorDeallocateThenFind(t *testing.T) {
	al := New(Options{})
	a := al.Allocate(nil, 16)
	ptr := a.BlockStart()

	if al.Find(nil, ptr) != a {
		t.Fatal("Find before Deallocate did not return a")
	}
	al.Deallocate(a)
	if al.Find(nil, ptr) != nil {
		t.Fatal("Find after Deallocate should return nil")
	}
}

func TestAllocatorCheckAuthority(t *testing.T) {
	al := New(Options{})
	a := al.Allocate(nil, 16)
	if !al.CheckAuthority(nil, a.BlockStart()) {
		t.Fatal("CheckAuthority on managed memory = false, want true")
	}

	var stray byte
	if al.CheckAuthority(nil, unsafe.Pointer(&stray)) {
		t.Fatal("CheckAuthority on unmanaged memory = true, want false")
	}
}

func TestAllocatorCollectGarbageDropsEmptyPools(t *testing.T) {
	al := New(Options{MemoryStatistics: true})
	a := al.Allocate(nil, 16)
	before := al.Stats()
	if before.Pools == 0 {
		t.Fatal("no pool accounted for after Allocate")
	}

	al.Deallocate(a)
	al.CollectGarbage()

	// The freed entry's pool is now empty (IsInUse() false) and should have
	// been dropped from the default chain; a lookup for the old address
	// must no longer succeed even indirectly through the collected chain.
	if al.Find(nil, a.BlockStart()) != nil {
		t.Fatal("Find located an allocation whose pool should have been collected")
	}
	if al.CheckAuthority(nil, a.BlockStart()) {
		t.Fatal("CheckAuthority still claims the collected pool's memory")
	}
}

func TestAllocatorStatsTracksBookkeeping(t *testing.T) {
	al := New(Options{MemoryStatistics: true})
	al.Allocate(nil, 16)
	al.Allocate(nil, 32)

	stats := al.Stats()
	if stats.Entries != 2 {
		t.Fatalf("Stats().Entries = %d, want 2", stats.Entries)
	}
	if stats.BytesFrontend != 48 {
		t.Fatalf("Stats().BytesFrontend = %d, want 48", stats.BytesFrontend)
	}
}
