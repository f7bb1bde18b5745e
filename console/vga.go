// Copyright (c) The vmdump Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package console implements this payload's only output path: a VGA text
// writer and a 16550 UART writer, composed into a single io.Writer. There is
// no input side — this payload never reads a key press or a serial byte.
package console

import (
	"unsafe"

	"vmdump/amd64"
	"vmdump/internal/reg"
)

const (
	vgaBase   = 0xb8000
	vgaWidth  = 80
	vgaHeight = 25
	vgaColor  = 0x03

	crtcIndex = 0x3d4
	crtcData  = 0x3d5
	crtcCursorHigh = 0x0e
	crtcCursorLow  = 0x0f

	tabSize = 8
)

// VGA is a text-mode console at the fixed physical framebuffer address
// 0xb8000, scrolling one line at a time and tracking the hardware cursor.
// It strips ANSI SGR escape sequences rather than interpreting them, since
// this console has no color model beyond its single fixed attribute byte.
type VGA struct {
	x, y  int
	inEsc bool
}

func (v *VGA) cell(row, col int) *uint16 {
	var ptr unsafe.Pointer
	off := amd64.VAddr(uint(vgaBase) + uint(row*vgaWidth+col)*2)
	ptr = unsafe.Add(ptr, off)
	return (*uint16)(ptr)
}

func (v *VGA) scroll() {
	diff := v.y - vgaHeight + 1

	for row := diff; row < vgaHeight; row++ {
		for col := 0; col < vgaWidth; col++ {
			*v.cell(row-diff, col) = *v.cell(row, col)
		}
	}

	for row := vgaHeight - diff; row < vgaHeight; row++ {
		for col := 0; col < vgaWidth; col++ {
			*v.cell(row, col) = 0
		}
	}

	v.y = vgaHeight - 1
}

func (v *VGA) moveCursor() {
	pos := uint16(v.y*vgaWidth + v.x)

	reg.Out8(crtcIndex, crtcCursorLow)
	reg.Out8(crtcData, uint8(pos&0xff))
	reg.Out8(crtcIndex, crtcCursorHigh)
	reg.Out8(crtcData, uint8(pos>>8))
}

func (v *VGA) putChar(c byte) {
	if v.inEsc {
		v.inEsc = c != 'm'
		return
	}

	if c == 0x1b {
		v.inEsc = true
		return
	}

	if c == '\n' || v.x >= vgaWidth {
		v.x = 0
		v.y++
	}

	if v.y >= vgaHeight {
		v.scroll()
	}

	switch {
	case c == '\t':
		pad := tabSize - (v.x % tabSize)
		for i := 0; i < pad; i++ {
			v.putChar(' ')
		}

		return
	case c == '\n' || c == '\r':
		// a line feed already advanced the cursor above; a carriage
		// return draws nothing and leaves the cursor where it is
	default:
		*v.cell(v.y, v.x) = uint16(vgaColor)<<8 | uint16(c)
		v.x++
	}

	v.moveCursor()
}

// Write renders buf to the text-mode framebuffer, one byte at a time.
func (v *VGA) Write(buf []byte) (n int, _ error) {
	for n = range buf {
		v.putChar(buf[n])
	}

	return len(buf), nil
}
