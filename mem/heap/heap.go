// Copyright (c) The vmdump Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package heap provides a bump allocator for the buffers this payload needs
// at crash time: the virtqueue descriptor table and rings, and the request
// header and status buffers. The orchestrator's staging buffer is not
// taken from here; it is allocated by the Go runtime.
//
// Unlike a general-purpose DMA allocator, this one never frees: the payload
// runs once, allocates everything it needs up front, and halts or reboots.
// There is no fragmentation to manage and no free list to maintain.
//
// This package is only meant to be used with `GOOS=tamago GOARCH=amd64` as
// supported by the TamaGo framework for bare metal Go.
package heap

import (
	"fmt"
	"unsafe"

	"vmdump/amd64"
)

// Region is a single contiguous range of physical memory, bump-allocated
// from Start upward. The caller (board bring-up code) must guarantee this
// range is never touched by the Go runtime's own allocator, by defining
// runtime.ramStart/runtime.ramSize to exclude it.
type Region struct {
	start uint
	size  uint
	next  uint
}

var def *Region

// Init carves out a bump-allocated region starting at addr and size bytes
// long, and installs it as the package default.
func Init(addr uint, size uint) {
	def = &Region{
		start: addr,
		size:  size,
		next:  addr,
	}
}

// Default returns the package default region, set up by Init.
func Default() *Region {
	return def
}

// Start returns the region's base physical address.
func (r *Region) Start() uint {
	return r.start
}

// End returns the first physical address past the region.
func (r *Region) End() uint {
	return r.start + r.size
}

// Alloc carves size bytes off the region, aligned to align (a power of two;
// 0 means word alignment), and returns the physical address of the new
// allocation. It panics if the region is exhausted — there is nowhere to
// report an error to a caller still assembling the buffers it needs to even
// report an error.
func (r *Region) Alloc(size uint, align uint) (addr uint) {
	if align == 0 {
		align = 4
	}

	pad := -r.next & (align - 1)
	start := r.next + pad

	if start+size > r.End() {
		panic(fmt.Sprintf("heap: out of memory allocating %d bytes", size))
	}

	r.next = start + size

	return start
}

// Bytes returns a byte slice over size bytes of physical memory starting at
// addr, reached through its straight-mapped virtual address, for reading or
// writing an already-allocated buffer in place.
func Bytes(addr uint, size uint) []byte {
	var ptr unsafe.Pointer
	ptr = unsafe.Add(ptr, amd64.VAddr(addr))
	return unsafe.Slice((*byte)(ptr), size)
}

// AllocBytes allocates size bytes from the region and returns the live
// byte slice backing the allocation, zero-initialized.
func (r *Region) AllocBytes(size uint, align uint) (addr uint, buf []byte) {
	addr = r.Alloc(size, align)
	buf = Bytes(addr, size)

	for i := range buf {
		buf[i] = 0
	}

	return
}
