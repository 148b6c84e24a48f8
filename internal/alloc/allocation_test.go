// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package alloc

import "testing"

func TestAllocationKeepFreeRoundTrip(t *testing.T) {
	p := NewPool(1024, Alignment, nil)
	a := p.Allocate(16)

	if a.Uses() != 1 {
		t.Fatalf("Uses() after Allocate = %d, want 1", a.Uses())
	}
	a.Keep()
	if a.Uses() != 2 {
		t.Fatalf("Uses() after Keep = %d, want 2", a.Uses())
	}
	a.KeepN(3)
	if a.Uses() != 5 {
		t.Fatalf("Uses() after KeepN(3) = %d, want 5", a.Uses())
	}
	for want := uint32(4); want != 0; want-- {
		if got := a.Free(); got != want {
			t.Fatalf("Free() = %d, want %d", got, want)
		}
	}
}

func TestAllocationBytesReflectsUsedPrefix(t *testing.T) {
	p := NewPool(1024, Alignment, nil)
	a := p.Allocate(4)
	if got := len(a.Bytes()); got != 4 {
		t.Fatalf("len(Bytes()) = %d, want 4", got)
	}
	if !p.Reallocate(a, 8) {
		t.Fatal("Reallocate to 8 failed")
	}
	if got := len(a.Bytes()); got != 8 {
		t.Fatalf("len(Bytes()) after grow = %d, want 8", got)
	}
}

func TestAllocationContains(t *testing.T) {
	p := NewPool(1024, Alignment, nil)
	a := p.Allocate(16)

	if !a.Contains(a.BlockStart()) {
		t.Fatal("Contains(BlockStart()) = false, want true")
	}
	end := a.BlockEnd()
	if a.Contains(end) {
		t.Fatal("Contains(BlockEnd()) = true, want false (one past the end)")
	}
}
