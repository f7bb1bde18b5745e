// Copyright (c) The vmdump Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package amd64 provides the single-core AMD64 bring-up this payload needs:
// a halt loop to park the processor once a dump has been written, and a
// triple fault to force a reboot. There is no interrupt handling, no SMP,
// and no timers — this payload runs to completion on one core with
// interrupts masked throughout.
//
// This package is only meant to be used with `GOOS=tamago GOARCH=amd64` as
// supported by the TamaGo framework for bare metal Go.
package amd64

import (
	"math"
	"runtime"
	_ "unsafe"
)

//go:linkname ramStackOffset runtime.ramStackOffset
var ramStackOffset uint64 = 0x100000 // 1 MB

// CPU represents the single processor instance this payload runs on.
type CPU struct{}

// defined in amd64.s
func exit(int32)
func halt()
func fault()

// Fault generates a triple fault, by loading an empty interrupt descriptor
// table and raising a software interrupt. The processor resets.
func (cpu *CPU) Fault() {
	fault()
}

// Init performs the minimal bring-up this payload needs before its entry
// point runs: wiring the runtime's idle loop to the processor halt
// instruction, since there is never another core to hand off to.
func (cpu *CPU) Init() {
	runtime.Exit = exit
	runtime.Idle = func(pollUntil int64) {
		if pollUntil == math.MaxInt64 {
			halt()
		}
	}
}

// Name returns the CPU identifier.
func (cpu *CPU) Name() string {
	return runtime.CPU()
}

// Halt suspends execution, parking the processor. Used once a crash dump
// has been written and there is nothing further to do.
func (cpu *CPU) Halt() {
	halt()
}
