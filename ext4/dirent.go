// Copyright (c) The vmdump Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package ext4

import (
	"encoding/binary"
	"fmt"

	"vmdump/fault"
)

const direntHeaderSize = 8

// numRootDirentsMax bounds the linear scan of the root directory: a
// directory that still has not yielded the requested name after this many
// entries ends the lookup with ErrDirentScanExhausted rather than being
// scanned without end.
const numRootDirentsMax = 128

// ErrDirentScanExhausted is returned when the root directory scan reaches
// numRootDirentsMax entries without finding the requested name.
var ErrDirentScanExhausted = fmt.Errorf("%w: root directory scan budget exhausted", fault.ErrNotFound)

type dirent struct {
	inode   uint32
	recLen  uint16
	nameLen uint8
	name    string
}

func decodeDirent(buf []byte) (dirent, error) {
	if len(buf) < direntHeaderSize {
		return dirent{}, fmt.Errorf("%w: truncated dirent", fault.ErrBadFormat)
	}

	d := dirent{
		inode:   binary.LittleEndian.Uint32(buf[0:4]),
		recLen:  binary.LittleEndian.Uint16(buf[4:6]),
		nameLen: buf[6],
	}

	if d.recLen < direntHeaderSize || int(d.recLen) > len(buf) {
		return dirent{}, fmt.Errorf("%w: invalid dirent rec_len %d", fault.ErrBadFormat, d.recLen)
	}

	if int(direntHeaderSize+d.nameLen) > len(buf) {
		return dirent{}, fmt.Errorf("%w: dirent name overruns block", fault.ErrBadFormat)
	}

	d.name = string(buf[direntHeaderSize : direntHeaderSize+uint16(d.nameLen)])

	return d, nil
}

// lookupRootEntry scans the root directory's data blocks for name and
// returns its inode number.
func (fs *FS) lookupRootEntry(name string) (uint64, error) {
	root, err := fs.readInode(rootInode)

	if err != nil {
		return 0, err
	}

	runs, err := fs.extentRuns(root)

	if err != nil {
		return 0, err
	}

	blockSize := fs.sb.bytesPerBlockSize()
	sectorsPerBlock := blockSize / 512
	buf := make([]byte, blockSize)

	scanned := 0

	for _, run := range runs {
		blocks := run.Count / sectorsPerBlock

		for b := uint64(0); b < blocks; b++ {
			if err := fs.dev.ReadSectors(run.LBA+b*sectorsPerBlock, buf); err != nil {
				return 0, err
			}

			pos := 0

			for pos+direntHeaderSize <= len(buf) {
				if scanned >= numRootDirentsMax {
					return 0, ErrDirentScanExhausted
				}

				d, err := decodeDirent(buf[pos:])

				if err != nil {
					return 0, err
				}

				scanned++

				if d.inode != 0 && d.name == name {
					return uint64(d.inode), nil
				}

				pos += int(d.recLen)
			}
		}
	}

	return 0, fmt.Errorf("%w: %q not found in root directory", fault.ErrNotFound, name)
}
