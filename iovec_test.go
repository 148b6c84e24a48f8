// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package anyness_test

import (
	"testing"
	"unsafe"

	"github.com/ravensilver/anyness"
)

func TestIoVecFromBytesSlice(t *testing.T) {
	t.Run("empty slice", func(t *testing.T) {
		vec := anyness.IoVecFromBytesSlice(nil)
		if vec != nil {
			t.Error("expected nil for empty input")
		}
	})

	t.Run("single buffer", func(t *testing.T) {
		buf := make([]byte, 128)
		buf[0] = 0xAB
		vec := anyness.IoVecFromBytesSlice([][]byte{buf})
		if len(vec) != 1 {
			t.Errorf("expected len=1, got %d", len(vec))
		}
		if vec[0].Len != 128 {
			t.Errorf("vec[0].Len = %d, want 128", vec[0].Len)
		}
		if *vec[0].Base != 0xAB {
			t.Errorf("vec[0].Base points to %#x, want 0xAB", *vec[0].Base)
		}
	})

	t.Run("multiple buffers", func(t *testing.T) {
		bufs := [][]byte{
			make([]byte, 64),
			make([]byte, 128),
			make([]byte, 256),
		}
		vec := anyness.IoVecFromBytesSlice(bufs)
		if len(vec) != 3 {
			t.Errorf("expected len=3, got %d", len(vec))
		}
		for i, want := range []uint64{64, 128, 256} {
			if vec[i].Len != want {
				t.Errorf("vec[%d].Len = %d, want %d", i, vec[i].Len, want)
			}
		}
	})
}

func TestIoVecAddrLen(t *testing.T) {
	t.Run("empty slice", func(t *testing.T) {
		addr, n := anyness.IoVecAddrLen(nil)
		if addr != 0 || n != 0 {
			t.Errorf("expected (0, 0), got (%d, %d)", addr, n)
		}
	})

	t.Run("non-empty slice", func(t *testing.T) {
		vec := make([]anyness.IoVec, 4)
		addr, n := anyness.IoVecAddrLen(vec)
		if n != 4 {
			t.Errorf("expected n=4, got %d", n)
		}
		expectedAddr := uintptr(unsafe.Pointer(&vec[0]))
		if addr != expectedAddr {
			t.Errorf("expected addr=%d, got %d", expectedAddr, addr)
		}
	})
}

func TestIoVecPointerStability(t *testing.T) {
	bufs := [][]byte{{0x11}, {0x22}, {0x33}, {0x44}}
	vec := anyness.IoVecFromBytesSlice(bufs)

	for i := range vec {
		val := *vec[i].Base
		expected := byte((i + 1) * 0x11)
		if val != expected {
			t.Errorf("vec[%d] points to value 0x%02X, expected 0x%02X", i, val, expected)
		}
	}
}
