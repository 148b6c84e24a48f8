// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package membuf provides page- and cache-line-aligned memory acquisition,
// shared by the public anyness package (vectored I/O helpers) and the
// internal/alloc pool allocator (OS-backend region acquisition). Splitting
// it out of both avoids an import cycle between anyness and internal/alloc.
package membuf

import (
	"unsafe"

	"github.com/ravensilver/anyness/internal"
)

// CacheLineSize is the CPU L1 cache line size for the current architecture.
const CacheLineSize = internal.CacheLineSize

// Aligned returns a byte slice with the specified size and starting address
// aligned to align, which must be a power of two.
//
// The returned slice shares underlying memory with a larger allocation; do
// not assume len(result) == cap(result).
func Aligned(size int, align uintptr) []byte {
	p := make([]byte, uintptr(size)+align-1)
	base := unsafe.Pointer(unsafe.SliceData(p))
	offset := ((uintptr(base)+align-1)/align)*align - uintptr(base)
	return unsafe.Slice((*byte)(unsafe.Add(base, offset)), size)
}

// AlignedBlocks returns n aligned byte slices, each of length blockSize,
// sharing one contiguous underlying allocation separated on align
// boundaries so that adjacent blocks never straddle an alignment line.
//
// Panics if n < 1.
func AlignedBlocks(n int, blockSize int, align uintptr) (blocks [][]byte) {
	if n < 1 {
		panic("bad block num")
	}
	alignedBlockSize := ((uintptr(blockSize) + align - 1) / align) * align
	totalSize := int(alignedBlockSize)*n + int(align) - 1
	p := make([]byte, totalSize)
	base := unsafe.Pointer(unsafe.SliceData(p))
	offset := ((uintptr(base)+align-1)/align)*align - uintptr(base)
	blocks = make([][]byte, n)
	for i := range n {
		blocks[i] = unsafe.Slice((*byte)(unsafe.Add(base, offset+uintptr(i)*alignedBlockSize)), blockSize)
	}
	return
}

// NextPow2 rounds size up to the next power of two. Returns 1 for size <= 1.
func NextPow2(size uintptr) uintptr {
	if size <= 1 {
		return 1
	}
	size--
	size |= size >> 1
	size |= size >> 2
	size |= size >> 4
	size |= size >> 8
	size |= size >> 16
	size |= size >> 32
	size++
	return size
}
