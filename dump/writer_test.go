// Copyright (c) The vmdump Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package dump

import (
	"bytes"
	"fmt"
	"testing"

	"vmdump/sectors"
)

type fakeDisk struct {
	written map[uint64][]byte
	failLBA uint64
}

func newFakeDisk() *fakeDisk {
	return &fakeDisk{written: make(map[uint64][]byte)}
}

func (d *fakeDisk) WriteSectors(lba uint64, buf []byte) error {
	if lba == d.failLBA {
		return fmt.Errorf("injected failure")
	}

	cp := make([]byte, len(buf))
	copy(cp, buf)
	d.written[lba] = cp

	return nil
}

func fillBytes(n int, from byte) []byte {
	buf := make([]byte, n)

	for i := range buf {
		buf[i] = from + byte(i)
	}

	return buf
}

func TestWriteExactRun(t *testing.T) {
	disk := newFakeDisk()
	list := sectors.List{{LBA: 100, Count: 2}}
	data := fillBytes(2*sectors.Size, 1)

	if err := Write(disk, list, data); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if !bytes.Equal(disk.written[100], data[:sectors.Size]) {
		t.Fatal("lba 100 not written correctly")
	}

	if !bytes.Equal(disk.written[101], data[sectors.Size:]) {
		t.Fatal("lba 101 not written correctly")
	}
}

func TestWriteShortFinalSectorZeroPadded(t *testing.T) {
	disk := newFakeDisk()
	list := sectors.List{{LBA: 200, Count: 2}}
	data := fillBytes(100, 7)

	if err := Write(disk, list, data); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, ok := disk.written[200]

	if !ok {
		t.Fatal("lba 200 not written")
	}

	if len(got) != sectors.Size {
		t.Fatalf("short write length = %d, want %d", len(got), sectors.Size)
	}

	if !bytes.Equal(got[:100], data) {
		t.Fatal("short write data prefix mismatch")
	}

	for _, b := range got[100:] {
		if b != 0 {
			t.Fatal("short write padding is not zero")
		}
	}

	if _, ok := disk.written[201]; ok {
		t.Fatal("lba 201 should not have been written after short write")
	}
}

func TestWriteSpansMultipleRuns(t *testing.T) {
	disk := newFakeDisk()
	list := sectors.List{
		{LBA: 10, Count: 1},
		{LBA: 50, Count: 1},
	}
	data := fillBytes(2*sectors.Size, 3)

	if err := Write(disk, list, data); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if !bytes.Equal(disk.written[10], data[:sectors.Size]) {
		t.Fatal("lba 10 not written correctly")
	}

	if !bytes.Equal(disk.written[50], data[sectors.Size:]) {
		t.Fatal("lba 50 not written correctly")
	}
}

func TestWriteShortRunWritesFullSectorsBeforePadding(t *testing.T) {
	disk := newFakeDisk()
	list := sectors.List{{LBA: 50, Count: 4}}
	data := fillBytes(1500, 11) // 2 full sectors (1024 bytes) + 476-byte remainder

	if err := Write(disk, list, data); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if !bytes.Equal(disk.written[50], data[:sectors.Size]) {
		t.Fatal("lba 50 not written correctly")
	}

	if !bytes.Equal(disk.written[51], data[sectors.Size:2*sectors.Size]) {
		t.Fatal("lba 51 not written correctly")
	}

	got, ok := disk.written[52]

	if !ok {
		t.Fatal("lba 52 not written")
	}

	if len(got) != sectors.Size {
		t.Fatalf("short write length = %d, want %d", len(got), sectors.Size)
	}

	rem := data[2*sectors.Size:]

	if !bytes.Equal(got[:len(rem)], rem) {
		t.Fatal("short write data prefix mismatch")
	}

	for _, b := range got[len(rem):] {
		if b != 0 {
			t.Fatal("short write padding is not zero")
		}
	}

	if _, ok := disk.written[53]; ok {
		t.Fatal("lba 53 should not have been written")
	}
}

func TestWriteShortRunExactSectorMultipleWritesNoRemainder(t *testing.T) {
	disk := newFakeDisk()
	list := sectors.List{{LBA: 50, Count: 4}}
	data := fillBytes(2*sectors.Size, 11) // exactly 2 full sectors, no remainder

	if err := Write(disk, list, data); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if !bytes.Equal(disk.written[50], data[:sectors.Size]) {
		t.Fatal("lba 50 not written correctly")
	}

	if !bytes.Equal(disk.written[51], data[sectors.Size:]) {
		t.Fatal("lba 51 not written correctly")
	}

	if _, ok := disk.written[52]; ok {
		t.Fatal("no remainder sector should have been written")
	}
}

func TestWriteStopsAfterShortRunLeavesLaterRunsUntouched(t *testing.T) {
	disk := newFakeDisk()
	list := sectors.List{
		{LBA: 10, Count: 2},
		{LBA: 50, Count: 1},
	}
	data := fillBytes(sectors.Size+10, 9)

	if err := Write(disk, list, data); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if !bytes.Equal(disk.written[10], data[:sectors.Size]) {
		t.Fatal("lba 10 not written correctly")
	}

	got, ok := disk.written[11]

	if !ok {
		t.Fatal("lba 11 not written")
	}

	if !bytes.Equal(got[:10], data[sectors.Size:]) {
		t.Fatal("lba 11 data prefix mismatch")
	}

	for _, b := range got[10:] {
		if b != 0 {
			t.Fatal("lba 11 padding is not zero")
		}
	}

	if _, ok := disk.written[50]; ok {
		t.Fatal("lba 50 should not have been written")
	}
}

func TestWriteFailurePropagates(t *testing.T) {
	disk := newFakeDisk()
	disk.failLBA = 5
	list := sectors.List{{LBA: 5, Count: 1}}
	data := fillBytes(sectors.Size, 0)

	if err := Write(disk, list, data); err == nil {
		t.Fatal("expected error from failing device")
	}
}
