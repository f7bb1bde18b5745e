// Copyright (c) The vmdump Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build !linkramstart

package amd64

import (
	_ "unsafe"
)

// straightMapBase is the fixed offset the loader maps all physical memory
// at: every physical address appears at paddr|straightMapBase with no page
// table walk required. The loader maps the whole address space this way,
// including the RAM the Go runtime's own allocator manages, so ramStart
// below is given as a straight-mapped address rather than a bare physical
// one: every pointer this payload ever holds, runtime-allocated or not, is
// reachable the same way.
const straightMapBase = 0xffff800000000000

//go:linkname ramStart runtime.ramStart
var ramStart uint64 = uint64(straightMapBase | 0x10000000)

// VAddr returns the straight-mapped virtual address for a physical address.
func VAddr(paddr uint) uint {
	return paddr | straightMapBase
}

// PAddr returns the physical address backing a straight-mapped virtual
// address.
func PAddr(vaddr uint) uint {
	return vaddr &^ straightMapBase
}
