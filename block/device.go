// Copyright (c) The vmdump Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package block implements a driver for the legacy (port-I/O) transport of
// a virtio-blk device: PCI discovery, device bring-up, and polled sector
// read/write through a single request virtqueue.
package block

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"vmdump/amd64"
	"vmdump/fault"
	"vmdump/mem/heap"
)

const requestQueue = 0

// in-progress is never a valid completion status; the device overwrites it
// once the request finishes.
const statusInProgress = 0xff

// block status values ("5.2.6 Device Operation").
const (
	statusOK     = 0
	statusIOErr  = 1
	statusUnsupp = 2
)

const (
	reqTypeIn  = 0 // device reads from disk, writes into our buffer
	reqTypeOut = 1 // device reads our buffer, writes to disk
)

const reqHeaderSize = 16 // type(4) + reserved(4) + sector(8)

// loadByte re-reads *p from memory on every call; defined in
// fence_amd64.s. It guards the status-buffer poll in submit, a plain
// slice index the compiler would otherwise be free to treat as
// loop-invariant and hoist out, since nothing in its view ever writes to
// it: the device stores the completion status via DMA.
func loadByte(p *byte) byte

// Interface is the minimal surface the rest of this payload needs from a
// block device: reading and writing whole sectors at an LBA. It exists so
// the file-system reader and dump writer can be tested against a fake disk
// instead of a real virtio device.
type Interface interface {
	ReadSectors(lba uint64, buf []byte) error
	WriteSectors(lba uint64, buf []byte) error
}

// Device is a legacy virtio-blk device reached over port I/O.
type Device struct {
	io *legacyIO
	q  *queue

	// DMA-visible scratch buffers for the request header and status byte,
	// allocated once in Open and reused for every request (this payload
	// never has more than one request in flight).
	headerAddr uint
	headerBuf  []byte
	statusAddr uint
	statusBuf  []byte
}

var (
	errNoDevice = fmt.Errorf("%w: no virtio-blk device on PCI bus", fault.ErrNotFound)
	errBadBAR   = fmt.Errorf("%w: BAR0 is not an I/O port window", fault.ErrDeviceError)
)

// Open finds a legacy virtio-blk device on the PCI bus and brings it up:
// reset, ACKNOWLEDGE, DRIVER, feature negotiation (no optional features are
// requested or accepted), queue setup, and DRIVER_OK — exactly the sequence
// "3.1.1 Driver Requirements: Device Initialization" describes.
func Open(region *heap.Region) (*Device, error) {
	io, err := findLegacyBlockDevice()

	if err != nil {
		return nil, err
	}

	io.setStatus(0)
	io.setStatus(statusAcknowledge)
	io.setStatus(statusAcknowledge | statusDriver)

	// this payload requests no optional features; VIRTIO_F_VERSION_1 does
	// not exist on the legacy interface, and no device-specific feature
	// (e.g. VIRTIO_BLK_F_SIZE_MAX) is required to read and write whole
	// sectors
	if _, err := negotiate(io, 0); err != nil {
		return nil, err
	}

	io.selectQueue(requestQueue)
	num := int(io.queueSize())

	if num == 0 {
		return nil, fmt.Errorf("%w: device reports empty request queue", fault.ErrDeviceError)
	}

	_, _, size := queueLayout(num)
	qAddr, qBuf := region.AllocBytes(uint(size), pageSize)
	q := newQueue(num, qAddr, qBuf)

	io.setQueueAddress(uint32(qAddr / pageSize))

	io.setStatus(io.status() | statusDriverOK)

	headerAddr, headerBuf := region.AllocBytes(reqHeaderSize, 0)
	statusAddr, statusBuf := region.AllocBytes(1, 0)

	return &Device{
		io:         io,
		q:          q,
		headerAddr: headerAddr,
		headerBuf:  headerBuf,
		statusAddr: statusAddr,
		statusBuf:  statusBuf,
	}, nil
}

func negotiate(io *legacyIO, want uint32) (uint32, error) {
	have := io.deviceFeatures()
	negotiated := have & want

	if negotiated != want {
		return 0, fmt.Errorf("%w: device does not support requested features", fault.ErrDeviceError)
	}

	io.setDriverFeatures(negotiated)
	io.setStatus(io.status() | statusFeaturesOK)

	if io.status()&statusFeaturesOK == 0 {
		return 0, fmt.Errorf("%w: device rejected feature negotiation", fault.ErrDeviceError)
	}

	return negotiated, nil
}

func (d *Device) submit(reqType uint32, lba uint64, buf []byte, bufWritable bool) error {
	putHeader(d.headerBuf, reqType, lba)
	d.statusBuf[0] = statusInProgress

	bufAddr := physAddr(buf)

	chain := []entry{
		{addr: uint64(d.headerAddr), len: reqHeaderSize, writable: false},
		{addr: uint64(bufAddr), len: uint32(len(buf)), writable: bufWritable},
		{addr: uint64(d.statusAddr), len: 1, writable: true},
	}

	d.q.push(chain)
	d.io.notify(requestQueue)

	for loadByte(&d.statusBuf[0]) == statusInProgress {
		// polled completion: no interrupt is ever enabled
	}

	switch d.statusBuf[0] {
	case statusOK:
		return nil
	case statusIOErr:
		return fmt.Errorf("%w: I/O error at lba %d", fault.ErrDeviceError, lba)
	case statusUnsupp:
		return fmt.Errorf("%w: unsupported request at lba %d", fault.ErrDeviceError, lba)
	default:
		return fmt.Errorf("%w: unexpected status 0x%x at lba %d", fault.ErrDeviceError, d.statusBuf[0], lba)
	}
}

func putHeader(buf []byte, reqType uint32, lba uint64) {
	binary.LittleEndian.PutUint32(buf[0:], reqType)
	binary.LittleEndian.PutUint32(buf[4:], 0)
	binary.LittleEndian.PutUint64(buf[8:], lba)
}

// physAddr returns the physical address backing a straight-mapped Go byte
// slice, so it can be handed to the device as a DMA buffer address. Every
// buffer this payload ever passes to ReadSectors/WriteSectors lives in
// straight-mapped memory: the heap region, buffers the Go runtime
// allocates (its RAM starts at a straight-mapped ramStart, see package
// amd64), or the caller-supplied dump buffer, which the orchestrator
// builds the same way.
func physAddr(buf []byte) uint {
	if len(buf) == 0 {
		return 0
	}

	return amd64.PAddr(uint(uintptr(unsafe.Pointer(&buf[0]))))
}

// ReadSectors reads len(buf)/sectors.Size sectors starting at lba into buf.
func (d *Device) ReadSectors(lba uint64, buf []byte) error {
	return d.submit(reqTypeIn, lba, buf, true)
}

// WriteSectors writes len(buf)/sectors.Size sectors starting at lba from
// buf.
func (d *Device) WriteSectors(lba uint64, buf []byte) error {
	return d.submit(reqTypeOut, lba, buf, false)
}

var _ Interface = (*Device)(nil)
