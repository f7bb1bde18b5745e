// Copyright (c) The vmdump Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package sectors defines the shared disk-address vocabulary between the
// file-system reader and the dump writer: both speak in runs of contiguous
// 512-byte sectors, never in byte offsets.
package sectors

// Size is the fixed sector size this payload assumes for every block
// device it talks to.
const Size = 512

// Run is a contiguous range of sectors on disk, starting at LBA and
// covering Count sectors.
type Run struct {
	LBA   uint64
	Count uint64
}

// Bytes returns the run's length in bytes.
func (r Run) Bytes() uint64 {
	return r.Count * Size
}

// List is an ordered sequence of runs, together describing every sector a
// file occupies on disk, in the order its data should be read or written.
type List []Run

// TotalBytes returns the combined byte length of every run in the list.
func (l List) TotalBytes() uint64 {
	var total uint64

	for _, r := range l {
		total += r.Bytes()
	}

	return total
}
