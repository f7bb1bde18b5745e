// Copyright (c) The vmdump Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package crashguest provides the hardware initialization, automatically
// on import, for this payload running as a QEMU microvm machine with a
// single x86_64 core. It is the board-level wiring the rest of this
// module needs but never references directly: CPU bring-up, the console,
// and the bump-allocated heap region the virtio-blk driver allocates its
// queue and request buffers from.
//
// This package is only meant to be used with `GOOS=tamago GOARCH=amd64`
// as supported by the TamaGo framework for bare metal Go.
package crashguest

import (
	"runtime"
	_ "unsafe"

	"vmdump/amd64"
	"vmdump/console"
	"vmdump/mem/heap"
	"vmdump/orchestrate"
)

// heapStart sits well above ramStart (0x10000000), the base the Go runtime
// itself manages: the two regions must never overlap.
const (
	heapStart = 0x50000000
	heapSize  = 0x01000000 // 16 MB, enough for the virtqueue and request buffers
)

// CPU is the single processor instance this payload runs on.
var CPU = &amd64.CPU{}

// Init performs the early, post-World-start runtime hand-off this payload
// needs before its entry point runs.
//
//go:linkname Init runtime.hwinit1
func Init() {
	CPU.Init()

	console.Init()

	runtime.Exit = func(_ int32) {
		CPU.Fault()
	}
}

func init() {
	heap.Init(heapStart, heapSize)
}

// Entry is the payload's ABI entry point, called by the hypervisor loader
// with a path into the guest's file system and a region of guest memory
// holding the crash dump to persist.
//
//export vmdumpEntry
func Entry(pathPtr, pathLen, dumpPtr, dumpLen uintptr) {
	orchestrate.Entry(pathPtr, pathLen, dumpPtr, dumpLen)
}
