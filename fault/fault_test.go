// Copyright (c) The vmdump Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package fault

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
)

type fakeHalter struct {
	halted bool
}

func (h *fakeHalter) Halt() {
	h.halted = true
	panic("halted")
}

func TestFatalReportsAndHalts(t *testing.T) {
	var buf bytes.Buffer
	h := &fakeHalter{}

	defer func() {
		recover()

		if !h.halted {
			t.Fatal("expected Halt to be called")
		}

		if got, want := buf.String(), "vmdump: fatal: not found: dump.bin\n"; got != want {
			t.Fatalf("output = %q, want %q", got, want)
		}
	}()

	Fatal(&buf, h, fmt.Errorf("%w: dump.bin", ErrNotFound))
}

func TestErrorsAreDistinct(t *testing.T) {
	all := []error{ErrNotFound, ErrBadFormat, ErrDeviceError, ErrExhaustion, ErrSanityTrap}

	for i, a := range all {
		for j, b := range all {
			if i == j {
				continue
			}

			if errors.Is(a, b) {
				t.Fatalf("%v should not match %v", a, b)
			}
		}
	}
}
