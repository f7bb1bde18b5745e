// Copyright (c) The vmdump Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package fault defines the closed set of errors this payload can raise and
// the single handler that reports and halts on any of them. There is no
// recovery path: a crash-dump payload that cannot read its own target disk
// has nothing sensible left to try.
package fault

import (
	"errors"
	"fmt"
	"io"
)

// Sentinel errors, wrapped with fmt.Errorf("...: %w", ...) wherever a
// caller needs to attach detail (an LBA, a path, a byte count).
var (
	// ErrNotFound is returned when a requested PCI device, partition, or
	// directory entry does not exist.
	ErrNotFound = errors.New("not found")

	// ErrBadFormat is returned when on-disk data fails a structural
	// check: a bad magic number, an unexpected extent depth, a
	// partition table signature mismatch.
	ErrBadFormat = errors.New("bad format")

	// ErrDeviceError is returned when the block device reports or
	// implies a failure: a BAR0 that is not an I/O port window, a
	// rejected feature negotiation, an empty request queue, a request
	// the device marks failed. A request the device never completes is
	// not detected: the completion poll spins until the status changes.
	ErrDeviceError = errors.New("device error")

	// ErrExhaustion names a bounded resource running out. No package in
	// this module returns it: the bump heap and the virtqueue free list
	// panic when exhausted, and the root directory scan budget is
	// reported as ErrNotFound (ext4.ErrDirentScanExhausted).
	ErrExhaustion = errors.New("resource exhausted")

	// ErrSanityTrap is returned when an invariant this payload depends
	// on for memory safety does not hold: a decoded length or offset
	// that would read or write outside a buffer's bounds.
	ErrSanityTrap = errors.New("sanity check failed")
)

// halter is satisfied by amd64.CPU; kept as an interface so Fatal can be
// exercised from a test without actually halting a processor.
type halter interface {
	Halt()
}

// Fatal reports err to w and halts cpu. It never returns.
func Fatal(w io.Writer, cpu halter, err error) {
	fmt.Fprintf(w, "vmdump: fatal: %v\n", err)
	cpu.Halt()

	for {
		// Halt is not expected to return; if it does, spin rather
		// than fall back into caller code with an unreported error.
	}
}
