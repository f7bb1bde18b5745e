// Copyright (c) The vmdump Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package dump writes a memory capture back to the disk sectors an ext4
// file's extents already reserve for it, rather than through the file
// system itself: the capture is sized against the file's existing
// layout and streamed straight to the block device run by run.
package dump

import (
	"fmt"

	"vmdump/fault"
	"vmdump/sectors"
)

// SectorWriter is the sector-addressed storage a write targets. It is
// satisfied by *block.Device, and by any fake used in tests.
type SectorWriter interface {
	WriteSectors(lba uint64, buf []byte) error
}

// Write streams buf to the sector runs in list, in order, stopping as
// soon as buf is exhausted.
//
// Each run is written whole while enough of buf remains to fill it. The
// run that would only be partially filled has its full sectors written
// normally, then its remainder zero-padded into one final short sector;
// this ends the write: runs after it, and any further unwritten sectors
// of that same run, are left untouched.
func Write(w SectorWriter, list sectors.List, buf []byte) error {
	for _, run := range list {
		runBytes := run.Bytes()

		if uint64(len(buf)) < runBytes {
			return writeShort(w, run, buf)
		}

		if err := writeRun(w, run, buf[:runBytes]); err != nil {
			return err
		}

		buf = buf[runBytes:]
	}

	return nil
}

// writeRun writes data, whose length must be an exact multiple of the
// sector size, across run's sectors one at a time.
func writeRun(w SectorWriter, run sectors.Run, data []byte) error {
	for i := uint64(0); i < run.Count; i++ {
		sector := data[i*sectors.Size : (i+1)*sectors.Size]

		if err := w.WriteSectors(run.LBA+i, sector); err != nil {
			return fmt.Errorf("%w: writing lba %d: %v", fault.ErrDeviceError, run.LBA+i, err)
		}
	}

	return nil
}

// writeShort writes every full sector buf covers within run normally,
// then zero-pads whatever remains of buf into one last sector. buf is
// shorter than run.Bytes(), so the full sectors never reach run's final
// LBA; the padded remainder sector may be that final LBA. If buf ends
// exactly on a sector boundary, no remainder sector is written.
func writeShort(w SectorWriter, run sectors.Run, buf []byte) error {
	full := uint64(len(buf)) / sectors.Size

	if full > 0 {
		if err := writeRun(w, sectors.Run{LBA: run.LBA, Count: full}, buf[:full*sectors.Size]); err != nil {
			return err
		}
	}

	rem := buf[full*sectors.Size:]

	if len(rem) == 0 {
		return nil
	}

	tmp := make([]byte, sectors.Size)
	copy(tmp, rem)

	lba := run.LBA + full

	if err := w.WriteSectors(lba, tmp); err != nil {
		return fmt.Errorf("%w: writing short lba %d: %v", fault.ErrDeviceError, lba, err)
	}

	return nil
}
