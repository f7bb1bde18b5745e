// Copyright (c) The vmdump Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package ext4

import (
	"encoding/binary"
	"fmt"

	"vmdump/fault"
	"vmdump/sectors"
)

const (
	// the superblock always begins 1024 bytes into the partition,
	// regardless of block size
	superblockByteOffset = 1024
	extMagic             = 0xef53
	rootInode            = 2
)

type superblock struct {
	blocksCount        uint32
	blocksPerGroup     uint32
	inodesPerGroup     uint32
	log2BlockSize      uint32
	majorRevisionLevel uint32
	bytesPerInode      uint16
}

func decodeSuperblock(buf []byte) (superblock, error) {
	if len(buf) < 90 {
		return superblock{}, fmt.Errorf("%w: superblock buffer too short", fault.ErrSanityTrap)
	}

	magic := binary.LittleEndian.Uint16(buf[56:58])

	if magic != extMagic {
		return superblock{}, fmt.Errorf("%w: bad ext4 magic 0x%x", fault.ErrBadFormat, magic)
	}

	return superblock{
		blocksCount:        binary.LittleEndian.Uint32(buf[4:8]),
		blocksPerGroup:     binary.LittleEndian.Uint32(buf[32:36]),
		inodesPerGroup:     binary.LittleEndian.Uint32(buf[40:44]),
		log2BlockSize:      binary.LittleEndian.Uint32(buf[24:28]),
		majorRevisionLevel: binary.LittleEndian.Uint32(buf[76:80]),
		bytesPerInode:      binary.LittleEndian.Uint16(buf[88:90]),
	}, nil
}

// bytesPerBlockSize returns the file system's block size in bytes.
func (sb superblock) bytesPerBlockSize() uint64 {
	return 1024 << sb.log2BlockSize
}

// groupsCount returns the number of block groups the file system is
// divided into.
func (sb superblock) groupsCount() uint64 {
	return 1 + uint64(sb.blocksCount-1)/uint64(sb.blocksPerGroup)
}

// inodeSize returns the on-disk size of one inode record. Revision 0 file
// systems fix this at 128 bytes; later revisions record it explicitly.
func (sb superblock) inodeSize() uint64 {
	if sb.majorRevisionLevel < 1 {
		return 128
	}

	return uint64(sb.bytesPerInode)
}

// readSuperblock locates the Linux partition on dev and reads its
// superblock, returning the geometry the rest of the reader needs: the
// partition's starting LBA, the block size in sectors, and per-group inode
// layout.
func readSuperblock(dev BlockReader) (partLBA uint64, sb superblock, err error) {
	partLBA, err = locateLinuxPartition(dev)

	if err != nil {
		return 0, superblock{}, err
	}

	buf := make([]byte, sectors.Size)
	sbLBA := partLBA + superblockByteOffset/sectors.Size

	if err := dev.ReadSectors(sbLBA, buf); err != nil {
		return 0, superblock{}, err
	}

	sb, err = decodeSuperblock(buf)

	return partLBA, sb, err
}
