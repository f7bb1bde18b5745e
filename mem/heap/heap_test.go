// Copyright (c) The vmdump Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package heap

import "testing"

func TestAllocAdvancesMonotonically(t *testing.T) {
	Init(0x100000, 0x10000)
	r := Default()

	a1 := r.Alloc(16, 0)
	a2 := r.Alloc(16, 0)

	if a2 <= a1 {
		t.Fatalf("expected second allocation %#x to follow first %#x", a2, a1)
	}

	if a2-a1 < 16 {
		t.Fatalf("allocations overlap: %#x, %#x", a1, a2)
	}
}

func TestAllocRespectsAlignment(t *testing.T) {
	Init(0x100000, 0x10000)
	r := Default()

	r.Alloc(3, 0)
	addr := r.Alloc(64, 16)

	if addr&0xf != 0 {
		t.Fatalf("expected 16-byte alignment, got %#x", addr)
	}
}

func TestAllocPanicsWhenExhausted(t *testing.T) {
	Init(0x100000, 32)
	r := Default()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on exhausted region")
		}
	}()

	r.Alloc(64, 0)
}

func TestEndReflectsStartAndSize(t *testing.T) {
	Init(0x300000, 0x2000)
	r := Default()

	if got, want := r.Start(), uint(0x300000); got != want {
		t.Fatalf("Start() = %#x, want %#x", got, want)
	}

	if got, want := r.End(), uint(0x302000); got != want {
		t.Fatalf("End() = %#x, want %#x", got, want)
	}
}
