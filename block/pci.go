// Copyright (c) The vmdump Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package block

import (
	"vmdump/internal/reg"
	"vmdump/soc/intel/pci"
)

// Legacy VirtIO-over-PCI register offsets, relative to BAR0 ("4.1.4 Legacy
// Interfaces: A Note on Feature Bits", plus the legacy register layout
// preceding the modern virtio-pci capability scheme).
const (
	regDeviceFeatures = 0x00
	regDriverFeatures = 0x04
	regQueueAddress   = 0x08
	regQueueSize      = 0x0c
	regQueueSelect    = 0x0e
	regQueueNotify    = 0x10
	regDeviceStatus   = 0x12
	regISRStatus      = 0x13
)

// Device status bits ("2.1 Device Status Field").
const (
	statusAcknowledge = 1 << 0
	statusDriver      = 1 << 1
	statusDriverOK    = 1 << 2
	statusFeaturesOK  = 1 << 3
	statusNeedsReset  = 1 << 6
	statusFailed      = 1 << 7
)

const (
	vendorVirtIO  = 0x1af4
	deviceBlkAttr = 0x1001
)

// legacyIO is the port-I/O window for a legacy virtio-blk device, found at
// BAR0 of the PCI function.
type legacyIO struct {
	base uint16
}

func findLegacyBlockDevice() (*legacyIO, error) {
	for bus := 0; bus < 256; bus++ {
		d := pci.Probe(bus, vendorVirtIO, deviceBlkAttr)

		if d == nil {
			continue
		}

		bar0 := d.BaseAddress(0)

		if bar0&1 != 1 {
			return nil, errBadBAR
		}

		return &legacyIO{base: uint16(bar0 &^ 0b11)}, nil
	}

	return nil, errNoDevice
}

func (io *legacyIO) status() uint8 {
	return reg.In8(io.base + regDeviceStatus)
}

func (io *legacyIO) setStatus(s uint8) {
	reg.Out8(io.base+regDeviceStatus, s)
}

func (io *legacyIO) deviceFeatures() uint32 {
	return reg.In32(io.base + regDeviceFeatures)
}

func (io *legacyIO) setDriverFeatures(f uint32) {
	reg.Out32(io.base+regDriverFeatures, f)
}

func (io *legacyIO) selectQueue(index uint16) {
	reg.Out16(io.base+regQueueSelect, index)
}

func (io *legacyIO) queueSize() uint16 {
	return reg.In16(io.base + regQueueSize)
}

func (io *legacyIO) setQueueAddress(pfn uint32) {
	reg.Out32(io.base+regQueueAddress, pfn)
}

func (io *legacyIO) notify(index uint16) {
	reg.Out16(io.base+regQueueNotify, index)
}
