// Copyright (c) The vmdump Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// stub for pkg.go.dev coverage
//go:build !tamago

// Package doc describes the runtime hooks this payload defines for target
// `GOOS=tamago` as supported by the TamaGo framework for bare metal Go.
//
// These hooks are the contract boundary between the Go runtime and a
// freestanding binary: the runtime calls them instead of making syscalls.
// This package only documents them; the actual definitions live in
// [vmdump/amd64] and [vmdump/board/qemu/crashguest].
//
// This package is only used for documentation purposes; this payload
// defines the described functions and variables directly rather than
// importing them from elsewhere.
package doc

import (
	_ "unsafe"
)

// Hwinit0, linked as [runtime.hwinit0], takes care of the lower level
// initialization triggered before runtime setup (pre World start). This
// payload has nothing to do at this stage: see [vmdump/amd64.Init].
//
//go:linkname Hwinit0 runtime.hwinit0
func Hwinit0()

// Hwinit1, linked as [runtime.hwinit1], takes care of the lower level
// initialization triggered early in runtime setup (post World start): CPU
// and console bring-up. See [vmdump/board/qemu/crashguest.Init].
//
//go:linkname Hwinit1 runtime.hwinit1
func Hwinit1()

// Printk, linked as [runtime.printk], handles character printing to the
// console. See [vmdump/board/qemu/crashguest] (the console.go file, built
// only when the linkprintk build tag is absent).
//
//go:linkname Printk runtime.printk
func Printk(c byte)

// RamStart, linked as [runtime.ramStart], defines the start address of the
// physical memory available to the runtime for allocation. See
// [vmdump/amd64.ramStart].
//
//go:linkname RamStart runtime.ramStart
var RamStart uint

// RamStackOffset, linked as [runtime.ramStackOffset], defines the negative
// offset from the end of available memory reserved for the stack. See
// [vmdump/amd64.ramStackOffset].
//
//go:linkname RamStackOffset runtime.ramStackOffset
var RamStackOffset uint

// Exit describes the optional override of [runtime.Exit] to define a
// runtime termination function. This payload never exits normally — it
// either halts on a fatal error or reboots via a triple fault — so this is
// set, in [vmdump/board/qemu/crashguest.Init], to a function calling
// [vmdump/amd64.CPU.Fault] rather than left at its zero value.
var Exit func(int32)

// Idle describes the optional override of [runtime.Idle] to define a CPU
// idle function, set to the processor halt instruction. See
// [vmdump/amd64.CPU.Init].
var Idle func(until int64)
