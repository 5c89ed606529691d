// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package screen implements a virtual Matrix Orbital character display
// that decodes the 0xFE command stream and renders the character matrix
// to terminal (stdout) using ANSI color codes.
//
// Useful while you are waiting for your display module to come by mail:
// hand a *Dev to mtxorb.New in place of the serial port. The virtual
// module behaves like a keypad-equipped model; keypad bytes injected with
// PressKey come back out of Read.
//
// Bar graphs and big numbers are approximated with ASCII, a cell per
// full bar cell and plain digits.
package screen

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
)

const cmdPrefix byte = 0xfe

// Parameter byte count per opcode. Unknown opcodes are consumed with no
// parameters.
var cmdArgLen = map[byte]int{
	0x58: 0, // clear
	0x48: 0, // home
	0x47: 2, // set cursor x y
	0x4c: 0, // cursor back
	0x4d: 0, // cursor forward
	0x53: 0, // block cursor on
	0x54: 0, // block cursor off
	0x4a: 0, // underline on
	0x4b: 0, // underline off
	0x51: 0, // auto scroll on
	0x52: 0, // auto scroll off
	0x43: 0, // line wrap on
	0x44: 0, // line wrap off
	0x4e: 9, // create custom char: id + 8 rows
	0x68: 0, // hbar init
	0x7c: 4, // hbar place x y dir len
	0x73: 0, // vbar narrow init
	0x76: 0, // vbar wide init
	0x3d: 2, // vbar place x len
	0x6d: 0, // bignum medium init
	0x6e: 0, // bignum large init
	0x6f: 3, // bignum medium place y x digit
	0x23: 2, // bignum large place x digit
	0x42: 1, // backlight on [minutes]
	0x46: 0, // backlight off
	0x50: 1, // contrast
	0x99: 1, // brightness (LCD)
	0x59: 1, // brightness (VFD)
	0x82: 3, // backlight color r g b
	0x57: 1, // GPO on
	0x56: 1, // GPO off
	0x9b: 0, // keypad backlight off
	0x9c: 1, // keypad brightness
	0x41: 0, // key auto tx on
	0x4f: 0, // key auto tx off
	0x7e: 1, // key auto repeat mode
	0x60: 0, // key auto repeat off
	0x55: 1, // key debounce time
}

// Opts represents the options available for this display.
type Opts struct {
	// Width and Height in characters. Defaults to 20x4.
	Width  int
	Height int
	// CellWidth in pixels, used to scale horizontal bar lengths.
	// Defaults to 5.
	CellWidth int
	Palette   *ansi256.Palette
	// Writer receives the rendered frames. Defaults to an ANSI capable
	// stdout.
	Writer io.Writer

	_ struct{}
}

// Dev is a virtual character display that renders to the console.
type Dev struct {
	w         io.Writer
	width     int
	height    int
	cellWidth int
	palette   ansi256.Palette

	cells    []byte
	cx, cy   int
	wrap     bool
	scroll   bool
	light    bool
	bg       color.NRGBA
	pending  []byte
	buf      bytes.Buffer
	rendered bool

	mu    sync.Mutex
	keys  bytes.Buffer
	avail chan struct{}
}

// New returns a Dev that displays at the console.
func New(opts *Opts) *Dev {
	width, height, cw := opts.Width, opts.Height, opts.CellWidth
	if width <= 0 {
		width = 20
	}
	if height <= 0 {
		height = 4
	}
	if cw <= 0 {
		cw = 5
	}
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	w := opts.Writer
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	d := &Dev{
		w:         w,
		width:     width,
		height:    height,
		cellWidth: cw,
		palette:   *p,
		cells:     make([]byte, width*height),
		wrap:      true,
		scroll:    true,
		light:     true,
		bg:        color.NRGBA{0, 128, 255, 255},
		avail:     make(chan struct{}, 1),
	}
	d.clear()
	return d
}

func (d *Dev) String() string {
	return fmt.Sprintf("Screen %dx%d", d.width, d.height)
}

// Write decodes a chunk of the command stream. Partial commands are kept
// until the remaining bytes arrive.
func (d *Dev) Write(p []byte) (int, error) {
	d.pending = append(d.pending, p...)
	for len(d.pending) > 0 {
		if d.pending[0] != cmdPrefix {
			d.putChar(d.pending[0])
			d.pending = d.pending[1:]
			continue
		}
		if len(d.pending) < 2 {
			break
		}
		op := d.pending[1]
		n := cmdArgLen[op]
		if len(d.pending) < 2+n {
			break
		}
		d.exec(op, d.pending[2:2+n])
		d.pending = d.pending[2+n:]
	}
	_, err := d.refresh()
	return len(p), err
}

// Read pops injected keypad bytes. Returns 0 with a nil error when no
// key presses are queued.
func (d *Dev) Read(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.keys.Len() == 0 {
		return 0, nil
	}
	return d.keys.Read(p)
}

// ReadReady waits up to timeout for a key press to become readable. A
// zero or negative timeout is a non-blocking poll.
func (d *Dev) ReadReady(timeout time.Duration) (bool, error) {
	d.mu.Lock()
	n := d.keys.Len()
	d.mu.Unlock()
	if n > 0 {
		return true, nil
	}
	if timeout <= 0 {
		return false, nil
	}
	select {
	case <-d.avail:
		return true, nil
	case <-time.After(timeout):
		return false, nil
	}
}

// PressKey injects a keypad key code, readable through Read.
func (d *Dev) PressKey(key byte) {
	d.mu.Lock()
	d.keys.WriteByte(key)
	d.mu.Unlock()
	select {
	case d.avail <- struct{}{}:
	default:
	}
}

// Line returns the text of row y.
func (d *Dev) Line(y int) string {
	if y < 0 || y >= d.height {
		return ""
	}
	return string(d.cells[y*d.width : (y+1)*d.width])
}

// CursorPos returns the cursor position, 0 based.
func (d *Dev) CursorPos() (x, y int) {
	return d.cx, d.cy
}

// Backlight reports whether the backlight is on.
func (d *Dev) Backlight() bool {
	return d.light
}

// BacklightColor returns the current backlight color.
func (d *Dev) BacklightColor() color.NRGBA {
	return d.bg
}

func (d *Dev) clear() {
	for i := range d.cells {
		d.cells[i] = ' '
	}
	d.cx, d.cy = 0, 0
}

func (d *Dev) set(x, y int, c byte) {
	if x >= 0 && x < d.width && y >= 0 && y < d.height {
		d.cells[y*d.width+x] = c
	}
}

func (d *Dev) putChar(c byte) {
	d.cells[d.cy*d.width+d.cx] = c
	d.cx++
	if d.cx < d.width {
		return
	}
	if !d.wrap {
		d.cx = d.width - 1
		return
	}
	d.cx = 0
	d.cy++
	if d.cy < d.height {
		return
	}
	if d.scroll {
		copy(d.cells, d.cells[d.width:])
		for i := (d.height - 1) * d.width; i < len(d.cells); i++ {
			d.cells[i] = ' '
		}
	}
	d.cy = d.height - 1
}

func (d *Dev) exec(op byte, args []byte) {
	switch op {
	case 0x58:
		d.clear()
	case 0x48:
		d.cx, d.cy = 0, 0
	case 0x47:
		x, y := int(args[0])-1, int(args[1])-1
		if x >= 0 && x < d.width && y >= 0 && y < d.height {
			d.cx, d.cy = x, y
		}
	case 0x4c:
		if d.cx > 0 {
			d.cx--
		} else if d.cy > 0 {
			d.cx = d.width - 1
			d.cy--
		}
	case 0x4d:
		if d.cx < d.width-1 {
			d.cx++
		} else if d.cy < d.height-1 {
			d.cx = 0
			d.cy++
		}
	case 0x51:
		d.scroll = true
	case 0x52:
		d.scroll = false
	case 0x43:
		d.wrap = true
	case 0x44:
		d.wrap = false
	case 0x42:
		d.light = true
	case 0x46:
		d.light = false
	case 0x82:
		d.bg = color.NRGBA{args[0], args[1], args[2], 255}
	case 0x7c:
		d.hbar(int(args[0])-1, int(args[1])-1, args[2] == 1, int(args[3]))
	case 0x3d:
		d.vbar(int(args[0])-1, int(args[1]))
	case 0x6f:
		d.set(int(args[1])-1, int(args[0])-1, '0'+args[2])
	case 0x23:
		d.set(int(args[0])-1, 0, '0'+args[1])
	}
	// Everything else only changes device state that has no visible
	// counterpart here.
}

func (d *Dev) hbar(x, y int, left bool, px int) {
	n := px / d.cellWidth
	for i := 0; i < n; i++ {
		if left {
			d.set(x-i, y, '#')
		} else {
			d.set(x+i, y, '#')
		}
	}
}

func (d *Dev) vbar(x, px int) {
	// 8 pixel rows per cell, growing up from the bottom row.
	n := px / 8
	for i := 0; i < n; i++ {
		d.set(x, d.height-1-i, '|')
	}
}

func (d *Dev) refresh() (int, error) {
	// This code is designed to minimize the amount of memory allocated
	// per call.
	d.buf.Reset()
	if d.rendered {
		// Overwrite the previous frame in place.
		fmt.Fprintf(&d.buf, "\033[%dA", d.height+3)
	}
	d.rendered = true
	border := "+" + strings.Repeat("-", d.width) + "+\n"
	_, _ = d.buf.WriteString(border)
	for y := 0; y < d.height; y++ {
		_, _ = d.buf.WriteString("|")
		_, _ = d.buf.Write(d.cells[y*d.width : (y+1)*d.width])
		_, _ = d.buf.WriteString("|\n")
	}
	_, _ = d.buf.WriteString(border)
	if d.light {
		block := d.palette.Block(d.bg)
		for i := 0; i < d.width+2; i++ {
			_, _ = io.WriteString(&d.buf, block)
		}
		_, _ = d.buf.WriteString("\033[0m\n")
	} else {
		_, _ = d.buf.WriteString(strings.Repeat(" ", d.width+2) + "\n")
	}
	n, err := d.buf.WriteTo(d.w)
	return int(n), err
}

var _ io.ReadWriter = &Dev{}
var _ fmt.Stringer = &Dev{}
