// Copyright (c) The vmdump Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package block

import (
	"encoding/binary"
)

// Descriptor flags (VIRTIO 1.1, "2.7.5 The Virtqueue Descriptor Table").
const (
	descFNext  = 1
	descFWrite = 2
)

const descSize = 16 // addr(8) + len(4) + flags(2) + next(2)

// mb issues a store-store fence, defined in fence_amd64.s. It guards the
// avail ring index update in push: the device must never observe the new
// index before the ring entry it points at.
func mb()

// pageSize is the legacy queue alignment boundary: the used ring must start
// on a page boundary, and the queue address register holds a page frame
// number rather than a byte address.
const pageSize = 4096

// entry describes one device-readable or device-writable buffer to chain
// into a single request.
type entry struct {
	addr     uint64
	len      uint32
	writable bool
}

// queue is a split virtqueue: a descriptor table, an available ring the
// driver appends to, and a used ring the device appends to. Unlike the
// descriptor-index ring model, the free list threads directly through the
// descriptor table's own `next` field, exactly mirroring the hardware
// layout — there is no separate driver-side bookkeeping array to keep in
// sync with it.
type queue struct {
	num   int
	paddr uint

	desc  []byte
	avail []byte
	used  []byte

	lastUsed     uint16
	freeHead     int
	numFreeDescs int
}

// queueLayout returns the byte offsets and total size of a virtqueue's wire
// image for num descriptors, laid out exactly as virtq_init expects to find
// it: descriptor table, then the available ring, then the used ring
// page-aligned after it.
func queueLayout(num int) (availOff, usedOff, total int) {
	availOff = descSize * num
	availSize := 2 + 2 + 2*num // flags + index + ring
	usedOff = alignUp(availOff+availSize, pageSize)
	usedSize := 2 + 2 + 8*num // flags + index + (id,len) per entry
	total = usedOff + alignUp(usedSize, pageSize)
	return
}

func alignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}

// newQueue initializes a virtqueue of the given descriptor count over buf,
// a wire-format byte slice starting at physical address paddr. buf must be
// at least as large as queueLayout(num) reports.
func newQueue(num int, paddr uint, buf []byte) *queue {
	availOff, usedOff, _ := queueLayout(num)

	q := &queue{
		num:          num,
		paddr:        paddr,
		desc:         buf[:availOff],
		avail:        buf[availOff:usedOff],
		used:         buf[usedOff:],
		freeHead:     0,
		numFreeDescs: num,
	}

	for i := 0; i < num; i++ {
		next := uint16(0)
		if i+1 != num {
			next = uint16(i + 1)
		}

		binary.LittleEndian.PutUint16(q.desc[i*descSize+14:], next)
	}

	return q
}

// PAddr returns the physical address of the descriptor table, the value the
// device's queue address register expects (as a page frame number).
func (q *queue) PAddr() uint {
	return q.paddr
}

func (q *queue) descNext(i int) int {
	return int(binary.LittleEndian.Uint16(q.desc[i*descSize+14:]))
}

func (q *queue) descFlags(i int) uint16 {
	return binary.LittleEndian.Uint16(q.desc[i*descSize+12:])
}

func (q *queue) setDesc(i int, e entry, next int, hasNext bool) {
	off := i * descSize

	binary.LittleEndian.PutUint64(q.desc[off:], e.addr)
	binary.LittleEndian.PutUint32(q.desc[off+8:], e.len)

	flags := uint16(0)

	if e.writable {
		flags |= descFWrite
	}

	if hasNext {
		flags |= descFNext
	}

	binary.LittleEndian.PutUint16(q.desc[off+12:], flags)
	binary.LittleEndian.PutUint16(q.desc[off+14:], uint16(next))
}

func (q *queue) usedIndex() uint16 {
	return binary.LittleEndian.Uint16(q.used[2:])
}

func (q *queue) usedElem(slot uint16) (id uint32, length uint32) {
	off := 4 + int(slot)*8
	id = binary.LittleEndian.Uint32(q.used[off:])
	length = binary.LittleEndian.Uint32(q.used[off+4:])
	return
}

func (q *queue) availIndex() uint16 {
	return binary.LittleEndian.Uint16(q.avail[2:])
}

func (q *queue) setAvailIndex(idx uint16) {
	binary.LittleEndian.PutUint16(q.avail[2:], idx)
}

func (q *queue) setAvailRing(slot uint16, descIndex uint16) {
	off := 4 + int(slot)*2
	binary.LittleEndian.PutUint16(q.avail[off:], descIndex)
}

// reclaim walks the used ring for chains the device has finished with,
// returning their descriptors to the free list. It is called from push
// whenever the free list is too short to satisfy a new request, exactly as
// the device only needs reclaiming done lazily between requests.
func (q *queue) reclaim() {
	for q.lastUsed != q.usedIndex() {
		id, _ := q.usedElem(q.lastUsed % uint16(q.num))

		freed := 0
		prevFreeHead := q.freeHead
		next := int(id)

		for {
			freed++

			if q.descFlags(next)&descFNext == 0 {
				binary.LittleEndian.PutUint16(q.desc[next*descSize+14:], uint16(prevFreeHead))
				break
			}

			next = q.descNext(next)
		}

		q.freeHead = int(id)
		q.numFreeDescs += freed
		q.lastUsed++
	}
}

// push enqueues a chain of device-readable/writable buffers into the
// virtqueue and appends it to the available ring. It returns the head
// descriptor index, which callers don't generally need — the request's own
// status buffer, not the used ring, is how this payload learns of
// completion.
func (q *queue) push(chain []entry) int {
	n := len(chain)

	if n > q.numFreeDescs {
		q.reclaim()
	}

	if n > q.numFreeDescs {
		panic("block: virtqueue out of descriptors")
	}

	head := q.freeHead
	idx := head

	for i, e := range chain {
		// the descriptor's `next` field already holds a valid free-list
		// link from init or from a prior reclaim; read it before this
		// slot's fields are overwritten, then advance along it
		next := q.descNext(idx)
		q.setDesc(idx, e, next, true)

		if i+1 < n {
			idx = next
		} else {
			// idx is the last descriptor in the chain: terminate it and
			// recover its stale free-list link as the new free head
			q.setDesc(idx, e, 0, false)
			q.freeHead = next
		}
	}

	q.numFreeDescs -= n

	avail := q.availIndex()
	q.setAvailRing(avail%uint16(q.num), uint16(head))

	mb()

	q.setAvailIndex(avail + 1)

	return head
}
