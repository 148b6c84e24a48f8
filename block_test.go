// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package anyness

import (
	"testing"
	"unsafe"
)

func oneElementBlock[T any](v T) *Block {
	return &Block{raw: unsafe.Pointer(&v), count: 1, reserved: 1, typ: TypeMeta[T]()}
}

func TestBlockInsertAtGrowsAndShifts(t *testing.T) {
	b := NewBlock(nil)
	if err := b.PushBack(oneElementBlock(1), Copy); err != nil {
		t.Fatalf("PushBack(1): %v", err)
	}
	if err := b.PushBack(oneElementBlock(3), Copy); err != nil {
		t.Fatalf("PushBack(3): %v", err)
	}
	if err := b.InsertAt(1, oneElementBlock(2), Copy); err != nil {
		t.Fatalf("InsertAt(1, 2): %v", err)
	}
	if b.Count() != 3 {
		t.Fatalf("Count() = %d, want 3", b.Count())
	}
	for i, want := range []int{1, 2, 3} {
		ptr, err := b.RawAt(i)
		if err != nil {
			t.Fatalf("RawAt(%d): %v", i, err)
		}
		if got := *(*int)(ptr); got != want {
			t.Fatalf("element[%d] = %d, want %d", i, got, want)
		}
	}
}

func TestBlockRawAtOutOfRange(t *testing.T) {
	b := NewBlock(nil)
	_ = b.PushBack(oneElementBlock("x"), Copy)
	if _, err := b.RawAt(-1); err == nil {
		t.Fatal("RawAt(-1) succeeded, want error")
	}
	if _, err := b.RawAt(1); err == nil {
		t.Fatal("RawAt(1) on a 1-element Block succeeded, want error")
	}
}

func TestBlockInsertAtRejectsTypeMismatch(t *testing.T) {
	b := NewBlock(nil)
	_ = b.PushBack(oneElementBlock(1), Copy)
	if err := b.PushBack(oneElementBlock("x"), Copy); err == nil {
		t.Fatal("PushBack of a different element type succeeded, want error")
	}
}

func TestBlockRemoveAtShiftsTail(t *testing.T) {
	b := NewBlock(nil)
	for _, v := range []int{10, 20, 30, 40} {
		_ = b.PushBack(oneElementBlock(v), Copy)
	}
	if err := b.RemoveAt(1, 2); err != nil {
		t.Fatalf("RemoveAt(1, 2): %v", err)
	}
	if b.Count() != 2 {
		t.Fatalf("Count() after RemoveAt = %d, want 2", b.Count())
	}
	for i, want := range []int{10, 40} {
		ptr, _ := b.RawAt(i)
		if got := *(*int)(ptr); got != want {
			t.Fatalf("element[%d] = %d, want %d", i, got, want)
		}
	}
}

func TestBlockRemoveValue(t *testing.T) {
	b := NewBlock(nil)
	for _, v := range []int{1, 2, 3} {
		_ = b.PushBack(oneElementBlock(v), Copy)
	}
	removed, err := b.RemoveValue(oneElementBlock(2))
	if err != nil {
		t.Fatalf("RemoveValue: %v", err)
	}
	if !removed {
		t.Fatal("RemoveValue(2) = false, want true")
	}
	if b.Count() != 2 {
		t.Fatalf("Count() after RemoveValue = %d, want 2", b.Count())
	}
	removed, err = b.RemoveValue(oneElementBlock(99))
	if err != nil {
		t.Fatalf("RemoveValue(99): %v", err)
	}
	if removed {
		t.Fatal("RemoveValue(99) = true, want false (not present)")
	}
}

func TestBlockFindForwardAndReverse(t *testing.T) {
	b := NewBlock(nil)
	for _, v := range []int{5, 7, 5, 9} {
		_ = b.PushBack(oneElementBlock(v), Copy)
	}
	if got := b.FindForward(oneElementBlock(5)); got != 0 {
		t.Fatalf("FindForward(5) = %d, want 0", got)
	}
	if got := b.FindReverse(oneElementBlock(5)); got != 2 {
		t.Fatalf("FindReverse(5) = %d, want 2", got)
	}
	if got := b.FindForward(oneElementBlock(100)); got != -1 {
		t.Fatalf("FindForward(100) = %d, want -1", got)
	}
}

func TestBlockEqualAndHash(t *testing.T) {
	a := NewBlock(nil)
	b := NewBlock(nil)
	for _, v := range []int{1, 2, 3} {
		_ = a.PushBack(oneElementBlock(v), Copy)
		_ = b.PushBack(oneElementBlock(v), Copy)
	}
	if !a.Equal(b) {
		t.Fatal("Equal() = false for two Blocks with the same elements")
	}
	if a.Hash() != b.Hash() {
		t.Fatal("Hash() differs for two Blocks with the same elements")
	}
	_ = b.PushBack(oneElementBlock(4), Copy)
	if a.Equal(b) {
		t.Fatal("Equal() = true for Blocks of different length")
	}
}

func TestBlockClearDestroysButKeepsCapacity(t *testing.T) {
	b := NewBlock(nil)
	for _, v := range []int{1, 2, 3} {
		_ = b.PushBack(oneElementBlock(v), Copy)
	}
	reserved := b.Reserved()
	if err := b.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if b.Count() != 0 {
		t.Fatalf("Count() after Clear = %d, want 0", b.Count())
	}
	if b.Reserved() != reserved {
		t.Fatalf("Reserved() after Clear = %d, want %d (unchanged)", b.Reserved(), reserved)
	}
}

func TestBlockResetReturnsToUntyped(t *testing.T) {
	b := NewBlock(nil)
	_ = b.PushBack(oneElementBlock(1), Copy)
	if err := b.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if b.Count() != 0 || b.Reserved() != 0 || b.Type() != nil {
		t.Fatalf("Block after Reset = {count:%d reserved:%d typ:%v}, want all zero", b.Count(), b.Reserved(), b.Type())
	}
}

func TestBlockEnsureMutableRejectsConstant(t *testing.T) {
	b := NewBlock(nil)
	_ = b.PushBack(oneElementBlock(1), Copy)
	b.state = b.state.with(StateConstant)
	if err := b.Clear(); err == nil {
		t.Fatal("Clear on a constant Block succeeded, want ErrImmutable")
	}
	if err := b.Reserve(100); err == nil {
		t.Fatal("Reserve on a constant Block succeeded, want ErrImmutable")
	}
}

func TestBlockElementAtBumpsRefcount(t *testing.T) {
	b := NewBlock(nil)
	_ = b.PushBack(oneElementBlock(7), Copy)

	view, err := b.ElementAt(0)
	if err != nil {
		t.Fatalf("ElementAt(0): %v", err)
	}
	if got := *(*int)(view.raw); got != 7 {
		t.Fatalf("ElementAt(0) value = %d, want 7", got)
	}
	if b.Entry().Uses() != 2 {
		t.Fatalf("Entry().Uses() after ElementAt = %d, want 2", b.Entry().Uses())
	}
	_ = view.Reset()
}
