// Copyright (c) The vmdump Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package orchestrate sequences the steps this payload exists to perform:
// find a file's data on disk by reading it through the file system, then
// write a crash dump into the sectors that read just walked, in place of
// the file's own content.
package orchestrate

import (
	"unsafe"

	"vmdump/amd64"
	"vmdump/block"
	"vmdump/console"
	"vmdump/dump"
	"vmdump/ext4"
	"vmdump/fault"
	"vmdump/mem/heap"
)

// stagingSize is the capacity of the buffer passed to fs.Read. Read
// returns every extent run of the file whatever the buffer's size; the
// staged bytes themselves are not used.
const stagingSize = 64 * 1024

// maxPathLen is the largest path this payload accepts, matching the
// caller's promise that path_len never exceeds it.
const maxPathLen = 255

// Run locates path on the file system reachable through dev, then writes
// dump into the disk sectors that lookup reveals, in place of the file's
// own data. It performs no I/O beyond dev and never halts; Entry is the
// raw entry point that drives it and decides what happens on failure.
func Run(dev block.Interface, fsys *ext4.FS, path string, data []byte) error {
	staging := make([]byte, stagingSize)

	_, list, err := fsys.Read(path, staging)

	if err != nil {
		return err
	}

	return dump.Write(dev, list, data)
}

// Entry is the raw ABI entry point: path is path_len non-NUL-terminated
// ASCII bytes at path_ptr, and data is dump_len bytes at dump_ptr. Both
// pointers are kernel-virtual addresses in the straight-mapped region.
//
// It brings up the disk driver and file system reader, runs the dump, and
// either halts on a fatal error or triggers a reboot on success — it never
// returns.
func Entry(pathPtr, pathLen, dumpPtr, dumpLen uintptr) {
	cpu := &amd64.CPU{}
	w := console.Default()

	path, err := readPath(pathPtr, pathLen)

	if err != nil {
		fault.Fatal(w, cpu, err)
	}

	data := unsafe.Slice((*byte)(unsafe.Pointer(dumpPtr)), dumpLen)

	dev, err := block.Open(heap.Default())

	if err != nil {
		fault.Fatal(w, cpu, err)
	}

	fsys, err := ext4.Open(dev)

	if err != nil {
		fault.Fatal(w, cpu, err)
	}

	if err := Run(dev, fsys, path, data); err != nil {
		fault.Fatal(w, cpu, err)
	}

	cpu.Fault()
}

// readPath copies path_len bytes out of the straight-mapped buffer at ptr
// into a fixed-size local and returns it as a string, so nothing past
// Entry ever holds a pointer into caller-owned memory.
func readPath(ptr, length uintptr) (string, error) {
	if length > maxPathLen {
		return "", fault.ErrSanityTrap
	}

	var local [maxPathLen]byte

	src := unsafe.Slice((*byte)(unsafe.Pointer(ptr)), length)
	n := copy(local[:], src)

	return string(local[:n]), nil
}
