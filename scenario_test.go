// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package anyness_test

import (
	"testing"

	"github.com/ravensilver/anyness"
	"github.com/ravensilver/anyness/internal/alloc"
)

// TestScenario1SequentialPushPop builds an int sequence by pushing 1..5,
// pops the front element, and checks the resulting count, elements, and
// that the backing allocation is still solely owned.
func TestScenario1SequentialPushPop(t *testing.T) {
	m := anyness.NewTMany[int](nil)
	for _, v := range []int{1, 2, 3, 4, 5} {
		if err := m.Push(v, anyness.Copy); err != nil {
			t.Fatalf("Push(%d): %v", v, err)
		}
	}

	if err := m.RemoveAt(0, 1); err != nil {
		t.Fatalf("RemoveAt(0, 1): %v", err)
	}
	if m.Count() != 4 {
		t.Fatalf("Count() = %d, want 4", m.Count())
	}
	for i, want := range []int{2, 3, 4, 5} {
		got, err := m.At(i)
		if err != nil {
			t.Fatalf("At(%d): %v", i, err)
		}
		if got != want {
			t.Fatalf("At(%d) = %d, want %d", i, got, want)
		}
	}
	if uses := m.Entry().Uses(); uses != 1 {
		t.Fatalf("Entry().Uses() = %d, want 1", uses)
	}
}

// TestScenario2CloneIsIndependent clones a 3-element sequence and checks
// that neither container's reference count is disturbed by the clone, and
// that mutating one afterward leaves the other untouched.
func TestScenario2CloneIsIndependent(t *testing.T) {
	m := anyness.NewTMany[int](nil)
	for _, v := range []int{1, 2, 3} {
		if err := m.Push(v, anyness.Copy); err != nil {
			t.Fatalf("Push(%d): %v", v, err)
		}
	}
	originalUses := m.Entry().Uses()

	clone, err := m.Clone()
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	if uses := m.Entry().Uses(); uses != originalUses {
		t.Fatalf("original Entry().Uses() after Clone = %d, want %d (unchanged)", uses, originalUses)
	}
	if uses := clone.Entry().Uses(); uses != 1 {
		t.Fatalf("clone Entry().Uses() = %d, want 1", uses)
	}

	if err := clone.Set(0, 99); err != nil {
		t.Fatalf("Set on clone: %v", err)
	}
	got, err := m.At(0)
	if err != nil {
		t.Fatalf("At(0) on original: %v", err)
	}
	if got != 1 {
		t.Fatalf("original[0] = %d after mutating clone, want 1 (unaffected)", got)
	}
	cloneGot, err := clone.At(0)
	if err != nil {
		t.Fatalf("At(0) on clone: %v", err)
	}
	if cloneGot != 99 {
		t.Fatalf("clone[0] = %d, want 99", cloneGot)
	}
}

// TestScenario3HashMapLookup covers a single-pair map: a present key
// resolves, an absent key reports failure, and a plain map and an
// insertion-ordered map built from the same pair agree on content.
func TestScenario3HashMapLookup(t *testing.T) {
	m := anyness.NewTMap[string, int](nil)
	m.Set("five hundred", 555)

	if v, ok := m.Get("five hundred"); !ok || v != 555 {
		t.Fatalf("Get(%q) = (%d, %v), want (555, true)", "five hundred", v, ok)
	}
	if _, ok := m.Get("missing"); ok {
		t.Fatal("Get(\"missing\") reported ok, want absent")
	}

	ordered := anyness.NewTOrderedMap[string, int](nil)
	ordered.Set("five hundred", 555)
	if v, ok := ordered.Get("five hundred"); !ok || v != 555 {
		t.Fatalf("ordered Get(%q) = (%d, %v), want (555, true)", "five hundred", v, ok)
	}
	if m.Count() != ordered.Count() {
		t.Fatalf("Count() = %d, ordered Count() = %d, want equal", m.Count(), ordered.Count())
	}
}

// TestScenario4InsertManyThenRemoveSix inserts ten keys, removes six of
// them by value, and checks that the map still reports exactly the
// remaining four and nothing else.
func TestScenario4InsertManyThenRemoveSix(t *testing.T) {
	all := []string{
		"VulkanLayer", "VulkanRenderer", "VulkanCamera", "Platform", "Vulkan",
		"Window", "VulkanLight", "Monitor", "VulkanRenderable", "Cursor",
	}
	removed := []string{
		"VulkanRenderer", "VulkanCamera", "Vulkan",
		"VulkanRenderable", "VulkanLight", "VulkanLayer",
	}
	remaining := []string{"Platform", "Window", "Monitor", "Cursor"}

	m := anyness.NewTMap[string, int](nil)
	for i, k := range all {
		m.Set(k, i)
	}
	for _, k := range removed {
		if !m.Delete(k) {
			t.Fatalf("Delete(%q) = false, want true", k)
		}
	}

	if m.Count() != len(remaining) {
		t.Fatalf("Count() = %d, want %d", m.Count(), len(remaining))
	}
	for _, k := range remaining {
		if !m.Has(k) {
			t.Fatalf("Has(%q) = false, want true (should still be present)", k)
		}
	}
	for _, k := range removed {
		if m.Has(k) {
			t.Fatalf("Has(%q) = true, want false (was removed)", k)
		}
	}
}

// TestScenario5PoolSurvivesGarbageCollectionWhileLive allocates ten
// integers, shares then drops a copy of each Ref, and checks that
// CollectGarbage leaves every still-live allocation findable.
func TestScenario5PoolSurvivesGarbageCollectionWhileLive(t *testing.T) {
	a := anyness.NewAllocator(alloc.Options{})
	hint := anyness.TypeMeta[int]().Hint()

	refs := make([]*anyness.Ref[int], 10)
	for i := range refs {
		r, err := anyness.NewRef(a, i, anyness.Copy)
		if err != nil {
			t.Fatalf("NewRef(%d): %v", i, err)
		}
		refs[i] = r
	}

	for i, r := range refs {
		share := r.Share()
		if uses := r.Entry().Uses(); uses != 2 {
			t.Fatalf("ref %d Entry().Uses() after Share = %d, want 2", i, uses)
		}
		if err := share.Drop(); err != nil {
			t.Fatalf("Drop share %d: %v", i, err)
		}
		if uses := r.Entry().Uses(); uses != 1 {
			t.Fatalf("ref %d Entry().Uses() after dropping the share = %d, want 1", i, uses)
		}
	}

	a.CollectGarbage()

	for i, r := range refs {
		ptr, err := r.RawAt(0)
		if err != nil {
			t.Fatalf("RawAt(0) on ref %d: %v", i, err)
		}
		if a.Find(hint, ptr) == nil {
			t.Fatalf("ref %d no longer findable after CollectGarbage, want its pool kept (still in use)", i)
		}
	}
}

// TestScenario6RefLifecycleAndTeardown walks a single Ref through share,
// drop, and final teardown, checking that the Allocator can no longer
// resolve its raw pointer once the last owner has dropped it.
func TestScenario6RefLifecycleAndTeardown(t *testing.T) {
	a := anyness.NewAllocator(alloc.Options{})
	hint := anyness.TypeMeta[int]().Hint()

	r, err := anyness.NewRef(a, 42, anyness.Copy)
	if err != nil {
		t.Fatalf("NewRef: %v", err)
	}
	ptr, err := r.RawAt(0)
	if err != nil {
		t.Fatalf("RawAt(0): %v", err)
	}
	if a.Find(hint, ptr) == nil {
		t.Fatal("Find did not resolve the raw pointer right after construction")
	}

	shared := r.Share()
	if uses := r.Entry().Uses(); uses != 2 {
		t.Fatalf("Entry().Uses() after Share = %d, want 2", uses)
	}

	if err := shared.Drop(); err != nil {
		t.Fatalf("Drop shared: %v", err)
	}
	if uses := r.Entry().Uses(); uses != 1 {
		t.Fatalf("Entry().Uses() after dropping the share = %d, want 1", uses)
	}

	if err := r.Drop(); err != nil {
		t.Fatalf("final Drop: %v", err)
	}
	if a.Find(hint, ptr) != nil {
		t.Fatal("Find still resolves the raw pointer after the last Drop, want nil")
	}
}
