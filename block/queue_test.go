// Copyright (c) The vmdump Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package block

import (
	"encoding/binary"
	"testing"
)

func newTestQueue(t *testing.T, num int) *queue {
	t.Helper()

	_, _, size := queueLayout(num)
	buf := make([]byte, size)

	return newQueue(num, 0, buf)
}

func TestNewQueueLinksFreeList(t *testing.T) {
	q := newTestQueue(t, 4)

	if q.numFreeDescs != 4 {
		t.Fatalf("numFreeDescs = %d, want 4", q.numFreeDescs)
	}

	for i := 0; i < 3; i++ {
		if got, want := q.descNext(i), i+1; got != want {
			t.Fatalf("desc %d next = %d, want %d", i, got, want)
		}
	}

	if got := q.descNext(3); got != 0 {
		t.Fatalf("last desc next = %d, want 0", got)
	}
}

func TestPushConsumesFreeListAndAppendsToAvail(t *testing.T) {
	q := newTestQueue(t, 8)

	chain := []entry{
		{addr: 0x1000, len: 16, writable: false},
		{addr: 0x2000, len: 512, writable: true},
		{addr: 0x3000, len: 1, writable: true},
	}

	head := q.push(chain)

	if head != 0 {
		t.Fatalf("head = %d, want 0", head)
	}

	if got, want := q.numFreeDescs, 5; got != want {
		t.Fatalf("numFreeDescs = %d, want %d", got, want)
	}

	if got, want := q.freeHead, 3; got != want {
		t.Fatalf("freeHead = %d, want %d", got, want)
	}

	if got, want := q.availIndex(), uint16(1); got != want {
		t.Fatalf("availIndex = %d, want %d", got, want)
	}

	// descriptor chain correctness
	if got := q.descFlags(0); got&descFNext == 0 {
		t.Fatal("first descriptor should have F_NEXT set")
	}

	if got := q.descFlags(2); got&descFNext != 0 {
		t.Fatal("last descriptor should not have F_NEXT set")
	}

	if got := q.descFlags(1); got&descFWrite == 0 {
		t.Fatal("second descriptor should have F_WRITE set")
	}
}

func TestPushReclaimsCompletedChains(t *testing.T) {
	q := newTestQueue(t, 3)

	// exhaust the free list with a 3-descriptor chain
	q.push([]entry{{addr: 1}, {addr: 2}, {addr: 3}})

	if q.numFreeDescs != 0 {
		t.Fatalf("numFreeDescs = %d, want 0", q.numFreeDescs)
	}

	// simulate the device completing the chain: used.index advances, and
	// the used ring slot names the chain's head descriptor
	binary.LittleEndian.PutUint32(q.used[4:], 0)  // id
	binary.LittleEndian.PutUint32(q.used[8:], 99) // len
	binary.LittleEndian.PutUint16(q.used[2:], 1)  // index

	// a request for 2 descriptors should trigger reclaim and succeed
	q.push([]entry{{addr: 4}, {addr: 5}})

	if got, want := q.numFreeDescs, 1; got != want {
		t.Fatalf("numFreeDescs after reclaim+push = %d, want %d", got, want)
	}

	if got, want := q.lastUsed, uint16(1); got != want {
		t.Fatalf("lastUsed = %d, want %d", got, want)
	}
}

func TestPushPanicsWhenExhausted(t *testing.T) {
	q := newTestQueue(t, 2)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic when out of descriptors")
		}
	}()

	q.push([]entry{{addr: 1}, {addr: 2}, {addr: 3}})
}
