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

const groupDescSize = 32

const inodeFlagExtents = 0x80000

// iBlockOffset is the byte offset of the union of extent header/entries or
// direct/indirect block pointers within an inode record.
const iBlockOffset = 40

// iBlockSize is ext2/3/4's fixed 15-word block-pointer area; for an
// extents-flagged inode this holds one 12-byte extent header followed by
// up to 4 inline leaf extents.
const iBlockSize = 60

type groupDesc struct {
	inodeTable uint32
}

func decodeGroupDesc(buf []byte) groupDesc {
	return groupDesc{
		inodeTable: binary.LittleEndian.Uint32(buf[8:12]),
	}
}

type inode struct {
	flags  uint32
	iBlock [iBlockSize]byte
}

func decodeInode(buf []byte) inode {
	var in inode

	in.flags = binary.LittleEndian.Uint32(buf[32:36])
	copy(in.iBlock[:], buf[iBlockOffset:iBlockOffset+iBlockSize])

	return in
}

// blockGroupForInode returns the offset, in blocks from the start of the
// partition, of the block-group descriptor table, and the index of the
// descriptor covering inode within it.
//
// The descriptor table always begins the block immediately after the
// superblock: block 1 when the block size is larger than 1 KiB (so the
// superblock occupies the whole of block 0), block 2 when the block size
// is exactly 1 KiB (so the superblock, at byte 1024, starts its own block).
func blockGroupForInode(sb superblock, ino uint64) (descBlock uint64, index uint64) {
	descBlock = 1

	if sb.bytesPerBlockSize() == 1024 {
		descBlock = 2
	}

	index = (ino - 1) / uint64(sb.inodesPerGroup)

	return
}

func (fs *FS) readGroupDesc(ino uint64) (groupDesc, error) {
	descBlock, index := blockGroupForInode(fs.sb, ino)

	buf := make([]byte, fs.sb.bytesPerBlockSize())

	if err := fs.readBlock(descBlock, buf); err != nil {
		return groupDesc{}, err
	}

	off := index * groupDescSize

	if off+groupDescSize > uint64(len(buf)) {
		return groupDesc{}, fmt.Errorf("%w: block group %d out of range", fault.ErrBadFormat, index)
	}

	return decodeGroupDesc(buf[off : off+groupDescSize]), nil
}

func (fs *FS) readInode(ino uint64) (inode, error) {
	if ino < rootInode {
		return inode{}, fmt.Errorf("%w: invalid inode number %d", fault.ErrSanityTrap, ino)
	}

	desc, err := fs.readGroupDesc(ino)

	if err != nil {
		return inode{}, err
	}

	inodesPerBlock := fs.sb.bytesPerBlockSize() / fs.sb.inodeSize()
	indexInGroup := (ino - 1) % uint64(fs.sb.inodesPerGroup)
	blockOffset := indexInGroup / inodesPerBlock
	indexInBlock := indexInGroup % inodesPerBlock

	buf := make([]byte, fs.sb.bytesPerBlockSize())

	if err := fs.readBlock(uint64(desc.inodeTable)+blockOffset, buf); err != nil {
		return inode{}, err
	}

	start := indexInBlock * fs.sb.inodeSize()

	if start+128 > uint64(len(buf)) {
		return inode{}, fmt.Errorf("%w: inode %d out of range", fault.ErrBadFormat, ino)
	}

	return decodeInode(buf[start:]), nil
}
