// Copyright (c) The vmdump Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package uart implements a driver for Intel Serial I/O UART controllers
// adopting the following reference specification:
//   - PC16550D - Universal Asynchronous Receiver/Transmitter with FIFOs - June 1995
//
// It is the second half of this payload's console (the first being the VGA
// text writer in package console); both are reached purely through port I/O,
// with no interrupts enabled.
//
// This package is only meant to be used with `GOOS=tamago GOARCH=amd64` as
// supported by the TamaGo framework for bare metal Go.
package uart

import (
	"runtime"

	"vmdump/internal/reg"
)

// UART registers
const (
	ClockRate = 115200

	RBR = 0x00
	THR = 0x00
	IER = 0x01
	FCR = 0x02
	LCR = 0x03
	MCR = 0x04

	DLL = 0x00
	DLH = 0x01

	LSR      = 0x05
	LSR_DR   = 0
	LSR_THRE = 5
)

// line control settings for 8 data bits, no parity, 1 stop bit
const lcr8n1 = 0x03

// UART represents a serial port instance.
type UART struct {
	// Controller index
	Index int
	// Base register
	Base uint16
}

// Init initializes the UART for 8N1 framing at the given baud rate,
// disabling its interrupt sources (all I/O on this payload is polled) and
// enabling its FIFOs.
func (hw *UART) Init(baud int) {
	if hw.Base == 0 {
		panic("invalid UART controller instance")
	}

	if baud == 0 {
		baud = 9600
	}

	divisor := uint16(ClockRate / baud)

	reg.Out8(hw.Base+IER, 0x00)

	lcr := reg.In8(hw.Base + LCR)
	reg.Out8(hw.Base+LCR, lcr|0x80)
	reg.Out8(hw.Base+DLL, uint8(divisor&0xff))
	reg.Out8(hw.Base+DLH, uint8(divisor>>8))
	reg.Out8(hw.Base+LCR, lcr8n1)

	reg.Out8(hw.Base+FCR, 0x01)
}

// Tx transmits a single character to the serial port.
func (hw *UART) Tx(c byte) {
	for reg.In8(hw.Base+LSR)&(1<<LSR_THRE) == 0 {
		// wait for TX FIFO to have room for a character
	}

	reg.Out8(hw.Base+THR, uint8(c))
}

// Rx receives a single character from the serial port.
func (hw *UART) Rx() (c byte, valid bool) {
	if reg.In8(hw.Base+LSR)&(1<<LSR_DR) == 0 {
		return
	}

	return byte(reg.In8(hw.Base + RBR)), true
}

// Write data from buffer to serial port.
func (hw *UART) Write(buf []byte) (n int, _ error) {
	for n = 0; n < len(buf); n++ {
		hw.Tx(buf[n])
	}

	return
}

// Read available data to buffer from serial port.
func (hw *UART) Read(buf []byte) (n int, _ error) {
	var valid bool

	for n = 0; n < len(buf); n++ {
		buf[n], valid = hw.Rx()

		if !valid {
			if n == 0 {
				runtime.Gosched()
			}

			break
		}
	}

	return
}
