// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package alloc

import "testing"

func TestPoolAllocateBumpsAndShrinksBand(t *testing.T) {
	p := NewPool(1024, Alignment, nil)

	a := p.Allocate(8)
	if a == nil {
		t.Fatal("Allocate(8) = nil, want a live Allocation")
	}
	if got := a.AllocatedBytes(); got != 8 {
		t.Fatalf("AllocatedBytes() = %d, want 8", got)
	}
	if band := a.BandBytes(); band != 512 {
		t.Fatalf("first bumped slot's band = %d, want 512 (half of backend)", band)
	}

	b := p.Allocate(8)
	if band := b.BandBytes(); band != 256 {
		t.Fatalf("second bumped slot's band = %d, want 256 (halved again)", band)
	}
}

func TestPoolAllocateFailsPastBackend(t *testing.T) {
	p := NewPool(64, Alignment, nil)
	// thresholdMin is 16, backend is 64: slots of 32, 16, 16 exhaust it.
	for i := 0; i < 3; i++ {
		if a := p.Allocate(8); a == nil {
			t.Fatalf("Allocate #%d failed unexpectedly", i)
		}
	}
	if a := p.Allocate(8); a != nil {
		t.Fatal("Allocate past backend capacity succeeded, want nil")
	}
}

func TestPoolDeallocateRecyclesViaFreeList(t *testing.T) {
	p := NewPool(1024, Alignment, nil)
	a := p.Allocate(8)
	band := a.BandBytes()

	p.Deallocate(a)
	if !p.CanContain(8) {
		t.Fatal("CanContain(8) after Deallocate = false, want true (free list head fits)")
	}

	b := p.Allocate(8)
	if b != a {
		t.Fatal("Allocate after Deallocate did not reuse the freed header")
	}
	if b.BandBytes() != band {
		t.Fatalf("reused allocation band = %d, want %d (unchanged)", b.BandBytes(), band)
	}
	if b.Uses() != 1 {
		t.Fatalf("reused allocation references = %d, want 1", b.Uses())
	}
}

func TestPoolReallocateInPlaceWithinBand(t *testing.T) {
	p := NewPool(1024, Alignment, nil)
	a := p.Allocate(8)
	band := a.BandBytes()

	if !p.Reallocate(a, band) {
		t.Fatal("Reallocate to the band ceiling failed, want success")
	}
	if a.AllocatedBytes() != band {
		t.Fatalf("AllocatedBytes() after Reallocate = %d, want %d", a.AllocatedBytes(), band)
	}
	if p.Reallocate(a, band+1) {
		t.Fatal("Reallocate past the band ceiling succeeded, want failure")
	}
}

func TestPoolFindLocatesLiveAllocation(t *testing.T) {
	p := NewPool(1024, Alignment, nil)
	a := p.Allocate(8)
	b := p.Allocate(8)

	if got := p.Find(a.BlockStart()); got != a {
		t.Fatal("Find(a's start) did not return a")
	}
	if got := p.Find(b.BlockStart()); got != b {
		t.Fatal("Find(b's start) did not return b")
	}

	p.Deallocate(a)
	if got := p.Find(a.BlockStart()); got != nil {
		t.Fatal("Find on a freed allocation's address should return nil")
	}
}

func TestPoolContainsRejectsForeignPointer(t *testing.T) {
	p1 := NewPool(64, Alignment, nil)
	p2 := NewPool(64, Alignment, nil)
	a := p1.Allocate(8)

	if !p1.Contains(a.BlockStart()) {
		t.Fatal("Contains on the owning pool = false, want true")
	}
	if p2.Contains(a.BlockStart()) {
		t.Fatal("Contains on a foreign pool = true, want false")
	}
}

func TestPoolIsInUse(t *testing.T) {
	p := NewPool(1024, Alignment, nil)
	if p.IsInUse() {
		t.Fatal("fresh Pool reports IsInUse() = true")
	}
	a := p.Allocate(8)
	if !p.IsInUse() {
		t.Fatal("Pool with a live allocation reports IsInUse() = false")
	}
	p.Deallocate(a)
	if p.IsInUse() {
		t.Fatal("Pool with every allocation freed reports IsInUse() = true")
	}
}
