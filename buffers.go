// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package anyness

import "github.com/ravensilver/anyness/internal/membuf"

// AlignedMem returns a byte slice with the specified size and starting
// address aligned to the memory page size.
//
// The returned slice shares underlying memory with a larger allocation; do
// not assume len(result) == cap(result).
func AlignedMem(size int, pageSize uintptr) []byte {
	return membuf.Aligned(size, pageSize)
}

// AlignedMemBlocks returns n page-aligned byte slices, each of length
// pageSize, sharing one contiguous underlying allocation.
func AlignedMemBlocks(n int, pageSize uintptr) [][]byte {
	return membuf.AlignedBlocks(n, int(pageSize), pageSize)
}

// AlignedMemBlock returns a single page-aligned block using the system page
// size.
func AlignedMemBlock() []byte {
	return AlignedMemBlocks(1, PageSize)[0]
}

// CacheLineSize is the CPU L1 cache line size for the current architecture.
const CacheLineSize = membuf.CacheLineSize

// CacheLineAlignedMem returns a byte slice with the specified size and
// starting address aligned to the CPU cache line size, preventing false
// sharing in concurrent data structures.
func CacheLineAlignedMem(size int) []byte {
	return membuf.Aligned(size, CacheLineSize)
}

// CacheLineAlignedMemBlocks returns n cache-line-aligned byte slices, each of
// length blockSize.
func CacheLineAlignedMemBlocks(n int, blockSize int) [][]byte {
	return membuf.AlignedBlocks(n, blockSize, CacheLineSize)
}

// NewBuffers creates a Buffers slice containing n byte slices, each of
// length size. Each inner slice is independently allocated; for contiguous
// memory use AlignedMemBlocks instead.
func NewBuffers(n int, size int) Buffers {
	if n < 1 {
		return Buffers{}
	}
	ret := make(Buffers, n)
	for i := range n {
		if size > 0 {
			ret[i] = make([]byte, size)
		} else {
			ret[i] = []byte{}
		}
	}
	return ret
}
