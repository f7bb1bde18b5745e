// Copyright (c) The vmdump Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package console

import (
	"io"

	"vmdump/soc/intel/uart"
)

const (
	// COM1
	serialBase = 0x3f8
	baudRate   = 9600
)

// Console composes the VGA text display and the 16550 UART into a single
// writer: every byte written goes to both sinks, so a dump can be observed
// over a serial line even when nothing is watching the screen, or vice
// versa.
type Console struct {
	vga  VGA
	uart uart.UART
}

var def *Console

// Init brings up both halves of the default console and installs it as the
// package default.
func Init() *Console {
	c := &Console{
		uart: uart.UART{Base: serialBase},
	}

	c.uart.Init(baudRate)

	def = c

	return c
}

// Default returns the package default console, set up by Init.
func Default() io.Writer {
	return def
}

// Write renders buf to the VGA framebuffer and transmits it over the UART,
// translating each line feed into a line feed followed by a carriage
// return on the serial side (the VGA writer tracks cursor position itself
// and needs no such translation).
func (c *Console) Write(buf []byte) (n int, err error) {
	if _, err = c.vga.Write(buf); err != nil {
		return 0, err
	}

	for _, b := range buf {
		c.uart.Tx(b)

		if b == '\n' {
			c.uart.Tx('\r')
		}
	}

	return len(buf), nil
}
