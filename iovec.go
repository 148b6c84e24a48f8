// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package anyness

import "unsafe"

// IoVec represents a scatter/gather I/O descriptor compatible with the
// standard Linux struct iovec. It is used to pass multiple non-contiguous
// user-space buffers to the kernel in a single vectored I/O system call
// (readv, writev, preadv, pwritev, io_uring operations).
//
// Memory layout matches the C struct iovec exactly:
//
//	struct iovec {
//	    void  *iov_base;  // Starting address
//	    size_t iov_len;   // Number of bytes
//	};
type IoVec struct {
	Base *byte
	Len  uint64
}

// IoVecFromBytesSlice converts a slice of byte slices to an IoVec slice, one
// element per input slice, pointing directly at each slice's memory without
// copying. Many[byte].AsIOVec is built on this for handing a sequential
// container of buffers to vectored I/O directly.
func IoVecFromBytesSlice(iov [][]byte) []IoVec {
	if len(iov) == 0 {
		return nil
	}
	vec := make([]IoVec, len(iov))
	for i := range iov {
		vec[i] = IoVec{Base: unsafe.SliceData(iov[i]), Len: uint64(len(iov[i]))}
	}
	return vec
}

// IoVecAddrLen extracts the raw pointer and length from an IoVec slice for
// direct syscall consumption (readv, writev, io_uring submission). Returns
// (0, 0) for empty or nil slices.
func IoVecAddrLen(vec []IoVec) (addr uintptr, n int) {
	if len(vec) == 0 {
		return 0, 0
	}
	return uintptr(unsafe.Pointer(unsafe.SliceData(vec))), len(vec)
}
