// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package mtxorb drives Matrix Orbital alphanumeric LCD and VFD modules
// over their 0xFE-prefixed serial command protocol. It supports the LCD,
// LK (LCD with keypad), VFD and VK (VFD with keypad) families, including
// bar graphs, big numbers, custom characters, backlight and keypad
// control.
//
// The driver talks to any io.Writer, so it works with the serial
// subpackage, a third party UART library, or the screen subpackage's
// virtual display. Implements periph.io/x/conn/v3/display.TextDisplay.
package mtxorb

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
)

// readReadier is implemented by transports that can wait a bounded time
// for input, like serial.Port. Dev.Read uses it to poll without blocking
// indefinitely.
type readReadier interface {
	ReadReady(timeout time.Duration) (bool, error)
}

// GPOEnabledDisplay is a display with general purpose output lines.
type GPOEnabledDisplay interface {
	// GPO turns a general purpose output on or off. Outputs are numbered
	// from 1.
	GPO(pin int, l gpio.Level) error
}

// Dev is an open display session. It owns the transport, the immutable
// geometry given at construction, and the character generator bank owner
// used to elide redundant re-initialization (see modes.go).
//
// A Dev is not safe for concurrent use beyond the per-write serialization
// it does internally; the protocol itself assumes a single caller.
type Dev struct {
	// Pins exposes the general purpose outputs as gpio.PinOut. Keypad
	// models have six, the others a single aggregate line.
	Pins []gpio.PinOut

	opts Opts

	mu      sync.Mutex
	d       conn.Conn
	writer  io.Writer
	halted  bool
	lastErr error

	ccMode ccMode

	chKeyboard chan byte
	shutdown   chan struct{}
}

func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("mtxorb: %w", err)
}

// New creates a display device on an io.Writer, typically a *serial.Port.
// If the writer also implements io.Reader, the keypad read paths work too.
// The display is cleared and the cursor homed.
//
// Construction validates opts before any byte is written and fails with
// ErrInvalidModuleType, ErrInvalidDisplaySize or ErrInvalidCellSize.
func New(w io.Writer, opts *Opts) (*Dev, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	dev := &Dev{writer: w, opts: *opts}
	dev.init()
	return dev, nil
}

// NewConn creates a display device on a conn.Conn for hardware interfaces
// wrapped by periph.io.
func NewConn(c conn.Conn, opts *Opts) (*Dev, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	dev := &Dev{d: c, opts: *opts}
	dev.init()
	return dev, nil
}

func (d *Dev) init() {
	nPins := 1
	if d.opts.Type.has(capMultiGPO) {
		nPins = 6
	}
	d.Pins = make([]gpio.PinOut, nPins)
	a := GPOEnabledDisplay(d)
	makePins(&a, d.Pins)
	// Start from a known state. Best effort, like the rest of the wire
	// protocol: there is no acknowledgement to check.
	_, _ = d.Write(clearScreen)
	_, _ = d.Write(goHome)
}

// Write sends raw bytes to the display. This is the escape hatch for
// commands the driver does not wrap: no validation, no prefix escaping.
// A stray 0xFE followed by the wrong byte can put the device firmware in
// an unexpected state, so prefer the typed methods for anything they
// cover.
func (d *Dev) Write(p []byte) (n int, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.halted {
		return 0, wrapErr(errHalted)
	}
	if d.writer != nil {
		n, err = d.writer.Write(p)
	} else {
		err = d.d.Tx(p, nil)
		n = len(p)
	}
	err = wrapErr(err)
	if err != nil {
		d.lastErr = err
	}
	return
}

// LastError returns the most recent transport error seen by this device,
// or nil. Errors are also returned from each call; this accessor only
// helps callers that treat drawing as fire-and-forget.
func (d *Dev) LastError() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastErr
}

// reader returns the transport's read side, if it has one.
func (d *Dev) reader() (io.Reader, error) {
	var r io.Reader
	var ok bool
	if d.writer != nil {
		r, ok = d.writer.(io.Reader)
	} else {
		r, ok = d.d.(io.Reader)
	}
	if !ok {
		return nil, wrapErr(errNoReader)
	}
	return r, nil
}

// Read polls the transport for incoming data, typically keypad key codes,
// for at most timeout. A zero timeout is a non-blocking poll. Returns
// 0 with a nil error when the timeout expires with nothing to read.
//
// If the transport cannot report read readiness the call degrades to a
// plain blocking read.
func (d *Dev) Read(p []byte, timeout time.Duration) (int, error) {
	r, err := d.reader()
	if err != nil {
		return 0, err
	}
	if rr, ok := r.(readReadier); ok {
		ready, err := rr.ReadReady(timeout)
		if err != nil {
			return 0, wrapErr(err)
		}
		if !ready {
			return 0, nil
		}
	}
	n, err := r.Read(p)
	return n, wrapErr(err)
}

// ReadKeypad streams keypad key codes on a channel. The transport must
// implement io.Reader. The channel is closed when the transport errors or
// the device is halted. Non-keypad modules have nothing to read and get
// an error.
func (d *Dev) ReadKeypad() (<-chan byte, error) {
	if !d.opts.Type.has(capKeypad) {
		return nil, wrapErr(errors.New("display has no keypad"))
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.chKeyboard != nil {
		return d.chKeyboard, nil
	}
	r, err := d.reader()
	if err != nil {
		return nil, err
	}

	d.chKeyboard = make(chan byte, 8)
	d.shutdown = make(chan struct{})
	go func() {
		defer func() {
			d.mu.Lock()
			close(d.chKeyboard)
			d.chKeyboard = nil
			d.mu.Unlock()
		}()
		buf := make([]byte, 4)
		var err error
		var n int
		for err == nil {
			select {
			case <-d.shutdown:
				return
			default:
				n, err = r.Read(buf)
				for ix := range n {
					d.chKeyboard <- buf[ix]
				}
			}
		}
	}()
	return d.chKeyboard, nil
}

// Halt quiesces the display and releases the transport: backlights off,
// screen cleared, block cursor off, outputs off, then Close if the
// transport implements io.Closer. Quiescing is best effort; a failing
// write never aborts teardown. Halt is idempotent, later calls are no-ops.
func (d *Dev) Halt() (err error) {
	d.mu.Lock()
	if d.halted {
		d.mu.Unlock()
		return nil
	}
	d.mu.Unlock()

	_ = d.BacklightOff()
	_ = d.Clear()
	_ = d.CursorBlock(false)
	_ = d.KeypadBacklightOff()
	_ = d.SetOutput(0)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.halted = true
	if d.shutdown != nil {
		// The reader goroutine may already be gone after a transport
		// error, so never block on it.
		select {
		case d.shutdown <- struct{}{}:
		default:
		}
		d.shutdown = nil
	}
	var cl io.Closer
	var ok bool
	if d.writer != nil {
		cl, ok = d.writer.(io.Closer)
	} else {
		cl, ok = d.d.(io.Closer)
	}
	if ok {
		err = wrapErr(cl.Close())
	}
	return
}

/* ----- Text ----- */

// Clear erases the display. The cursor position is unchanged.
func (d *Dev) Clear() error {
	_, err := d.Write(clearScreen)
	return err
}

// PutChar puts one character at the cursor position. A 0xFE byte is
// replaced with a space so it cannot be taken as a command prefix.
func (d *Dev) PutChar(c byte) error {
	if c == cmdPrefix {
		c = ' '
	}
	_, err := d.Write([]byte{c})
	return err
}

// WriteString puts text at the cursor position. 0xFE bytes are replaced
// with spaces, see PutChar.
func (d *Dev) WriteString(text string) (int, error) {
	b := []byte(text)
	for i, c := range b {
		if c == cmdPrefix {
			b[i] = ' '
		}
	}
	return d.Write(b)
}

/* ----- Cursor ----- */

// SetCursor moves the cursor to column x, row y, both 0 based. The wire
// protocol is 1 based; the translation happens here. Out of range
// coordinates are dropped without writing anything, matching the
// device's own firmware-protective bent: malformed geometry never
// reaches the wire.
func (d *Dev) SetCursor(x, y int) error {
	if x < 0 || x >= d.opts.Width || y < 0 || y >= d.opts.Height {
		return nil
	}
	_, err := d.Write([]byte{cmdPrefix, cmdSetCursorPos, byte(x + 1), byte(y + 1)})
	return err
}

// Home moves the cursor to the top left position.
func (d *Dev) Home() error {
	_, err := d.Write(goHome)
	return err
}

// MoveTo moves the cursor to row, col, 0 based. Part of
// display.TextDisplay; SetCursor with the axes swapped.
func (d *Dev) MoveTo(row, col int) error {
	return d.SetCursor(col, row)
}

// Move shifts the cursor one position forward or backward. Up and Down
// are not supported by the hardware and do nothing.
func (d *Dev) Move(dir display.CursorDirection) (err error) {
	switch dir {
	case display.Forward:
		_, err = d.Write(cursorForward)
	case display.Backward:
		_, err = d.Write(cursorBack)
	case display.Up, display.Down:
	default:
		err = wrapErr(fmt.Errorf("invalid move direction %d", dir))
	}
	return
}

// CursorBlock turns the blinking block cursor on or off.
func (d *Dev) CursorBlock(on bool) (err error) {
	if on {
		_, err = d.Write(cursorBlockOn)
	} else {
		_, err = d.Write(cursorBlockOff)
	}
	return
}

// CursorUnderline turns the underline cursor on or off.
func (d *Dev) CursorUnderline(on bool) (err error) {
	if on {
		_, err = d.Write(underlineCursorOn)
	} else {
		_, err = d.Write(underlineCursorOff)
	}
	return
}

// Cursor sets the cursor mode. Part of display.TextDisplay.
func (d *Dev) Cursor(modes ...display.CursorMode) (err error) {
	for _, mode := range modes {
		switch mode {
		case display.CursorOff:
			err = d.CursorBlock(false)
			if err == nil {
				err = d.CursorUnderline(false)
			}
		case display.CursorUnderline:
			err = d.CursorUnderline(true)
		case display.CursorBlock, display.CursorBlink:
			err = d.CursorBlock(true)
		default:
			err = wrapErr(fmt.Errorf("invalid cursor mode %d", mode))
		}
		if err != nil {
			break
		}
	}
	return
}

// AutoScroll sets whether the display scrolls up when text runs past the
// last position.
func (d *Dev) AutoScroll(enabled bool) (err error) {
	if enabled {
		_, err = d.Write(autoScrollOn)
	} else {
		_, err = d.Write(autoScrollOff)
	}
	return
}

// LineWrap sets whether text wraps to the next row at the end of a row.
func (d *Dev) LineWrap(enabled bool) (err error) {
	if enabled {
		_, err = d.Write(lineWrapOn)
	} else {
		_, err = d.Write(lineWrapOff)
	}
	return
}

/* ----- Special characters ----- */

// CreateChar loads a custom character into slot id, 0-7. data holds one
// byte per pixel row, CellHeight rows; each row is masked to CellWidth
// bits, silently truncating excess high bits. Loading a custom character
// takes over the character generator bank from any active bar graph or
// big number family.
func (d *Dev) CreateChar(id int, data []byte) error {
	if id < 0 || id >= maxCustomChars || len(data) < d.opts.CellHeight {
		return nil
	}
	out := make([]byte, 3+maxCellHeight)
	out[0] = cmdPrefix
	out[1] = cmdCreateChar
	out[2] = byte(id)
	mask := byte(1<<d.opts.CellWidth) - 1
	for i := 0; i < d.opts.CellHeight; i++ {
		out[3+i] = data[i] & mask
	}
	_, err := d.Write(out)
	d.ccMode = ccCustom
	return err
}

// HBar draws a horizontal bar graph starting at column x, row y, growing
// in dir. length is in pixels, 0-100.
func (d *Dev) HBar(x, y, length int, dir Direction) error {
	if x < 0 || x >= d.opts.Width ||
		y < 0 || y >= d.opts.Height ||
		length < 0 || length > 100 {
		return nil
	}
	if err := d.enterCCMode(ccHBar, hbarInit); err != nil {
		return err
	}
	dirByte := byte(0)
	if dir == Left {
		dirByte = 1
	}
	_, err := d.Write([]byte{cmdPrefix, cmdHBarPlace, byte(x + 1), byte(y + 1), dirByte, byte(length)})
	return err
}

// VBar draws a vertical bar graph growing up from the bottom row at
// column x. length is in pixels, 0-32.
func (d *Dev) VBar(x, length int, style VBarStyle) error {
	if x < 0 || x >= d.opts.Width || length < 0 || length > 32 {
		return nil
	}
	init := vbarNarrowInit
	if style == Wide {
		init = vbarWideInit
	}
	if err := d.enterCCMode(ccVBar, init); err != nil {
		return err
	}
	_, err := d.Write([]byte{cmdPrefix, cmdVBarPlace, byte(x + 1), byte(length)})
	return err
}

// BigNum places a large digit 0-9 at column x. Medium digits are two rows
// tall and also take a row y; large digits span the whole display and
// ignore y.
func (d *Dev) BigNum(x, y, digit int, style BigNumStyle) error {
	if x < 0 || x >= d.opts.Width || digit < 0 || digit > 9 {
		return nil
	}
	init := bigNumMediumInit
	if style == Large {
		init = bigNumLargeInit
	}
	if err := d.enterCCMode(ccBigNum, init); err != nil {
		return err
	}
	if style == Large {
		_, err := d.Write([]byte{cmdPrefix, cmdBigNumLargePlace, byte(x + 1), byte(digit)})
		return err
	}
	if y < 0 || y >= d.opts.Height {
		return nil
	}
	_, err := d.Write([]byte{cmdPrefix, cmdBigNumMediumPlace, byte(y + 1), byte(x + 1), byte(digit)})
	return err
}

/* ----- Display ----- */

// BacklightOn turns the backlight on for minutes, or indefinitely when
// minutes is 0. LCD panels only.
func (d *Dev) BacklightOn(minutes int) error {
	if !d.opts.Type.has(capBacklight) {
		return nil
	}
	m := byte(0)
	if minutes > 0 && minutes < 256 {
		m = byte(minutes)
	}
	_, err := d.Write([]byte{cmdPrefix, cmdBacklightOn, m})
	return err
}

// BacklightOff turns the backlight off. LCD panels only.
func (d *Dev) BacklightOff() error {
	if !d.opts.Type.has(capBacklight) {
		return nil
	}
	_, err := d.Write(backlightOff)
	return err
}

// Contrast sets the display contrast, 0-255. LCD panels only; VFDs have
// fixed contrast. Provides display.DisplayContrast.
func (d *Dev) Contrast(contrast display.Contrast) error {
	if !d.opts.Type.has(capBacklight) || contrast < 0 || contrast > 255 {
		return nil
	}
	_, err := d.Write([]byte{cmdPrefix, cmdContrast, byte(contrast)})
	return err
}

// Backlight sets the backlight intensity 0-255. Provides
// display.DisplayBacklight.
func (d *Dev) Backlight(intensity display.Intensity) error {
	return d.Brightness(int(intensity))
}

// Brightness sets the display brightness, 0-255. VFD variants use a
// different opcode with a 0-3 range; larger values are clamped.
func (d *Dev) Brightness(value int) error {
	if value < 0 || value > 255 {
		return nil
	}
	op := cmdBrightnessLCD
	if d.opts.Type.has(capVFDBrightness) {
		if value > 3 {
			value = 3
		}
		op = cmdBrightnessVFD
	}
	_, err := d.Write([]byte{cmdPrefix, op, byte(value)})
	return err
}

// RGBBacklight sets the backlight color on panels that support it. LCD
// panels only. Provides display.DisplayRGBBacklight.
func (d *Dev) RGBBacklight(red, green, blue display.Intensity) error {
	if !d.opts.Type.has(capBacklight) {
		return nil
	}
	_, err := d.Write([]byte{cmdPrefix, cmdBacklightColor,
		byte(red & 0xff), byte(green & 0xff), byte(blue & 0xff)})
	return err
}

/* ----- General purpose outputs ----- */

// GPO turns one general purpose output on or off. Outputs are numbered
// from 1. Keypad models address up to six outputs individually; the
// others have a single aggregate line and ignore pin.
func (d *Dev) GPO(pin int, l gpio.Level) error {
	op := cmdGPOOff
	if l {
		op = cmdGPOOn
	}
	if !d.opts.Type.has(capMultiGPO) {
		_, err := d.Write([]byte{cmdPrefix, op})
		return err
	}
	if pin < 1 || pin > 6 {
		return nil
	}
	_, err := d.Write([]byte{cmdPrefix, op, byte(pin)})
	return err
}

// SetOutput sets all general purpose outputs at once from a bit mask,
// e.g. GPO1|GPO3. On keypad models one command is written per output; on
// the others any nonzero mask raises the single output line.
func (d *Dev) SetOutput(flags GPOFlags) error {
	if !d.opts.Type.has(capMultiGPO) {
		return d.GPO(1, gpio.Level(flags != 0))
	}
	for i := 0; i < 6; i++ {
		if err := d.GPO(i+1, gpio.Level(flags&(1<<i) != 0)); err != nil {
			return err
		}
	}
	return nil
}

/* ----- Keypad ----- */

// KeypadBacklightOff turns the keypad backlight off. LK models only.
func (d *Dev) KeypadBacklightOff() error {
	if !d.opts.Type.has(capKeypadBacklight) {
		return nil
	}
	_, err := d.Write(keypadBacklightOff)
	return err
}

// KeypadBrightness sets the keypad backlight brightness, 0-255. LK
// models only.
func (d *Dev) KeypadBrightness(value int) error {
	if !d.opts.Type.has(capKeypadBacklight) || value < 0 || value > 255 {
		return nil
	}
	_, err := d.Write([]byte{cmdPrefix, cmdKeypadBrightness, byte(value)})
	return err
}

// KeyAutoTx selects whether key presses are sent immediately (true) or
// held for polling (false).
func (d *Dev) KeyAutoTx(on bool) (err error) {
	if !d.opts.Type.has(capKeypad) {
		return nil
	}
	if on {
		_, err = d.Write(keyAutoTxOn)
	} else {
		_, err = d.Write(keyAutoTxOff)
	}
	return
}

// KeyAutoRepeat turns key auto-repeat on in the given mode.
func (d *Dev) KeyAutoRepeat(mode AutoRepeatMode) error {
	if !d.opts.Type.has(capKeypad) {
		return nil
	}
	m := byte(0)
	if mode == RepeatKeyUpDown {
		m = 1
	}
	_, err := d.Write([]byte{cmdPrefix, cmdKeyAutoRepeatMode, m})
	return err
}

// KeyAutoRepeatOff turns key auto-repeat off.
func (d *Dev) KeyAutoRepeatOff() error {
	if !d.opts.Type.has(capKeypad) {
		return nil
	}
	_, err := d.Write(keyAutoRepeatOff)
	return err
}

// KeyDebounceTime sets the key debounce time in units of 6.554ms, 0-255.
// The power-on default is 8.
func (d *Dev) KeyDebounceTime(value int) error {
	if !d.opts.Type.has(capKeypad) || value < 0 || value > 255 {
		return nil
	}
	_, err := d.Write([]byte{cmdPrefix, cmdKeyDebounceTime, byte(value)})
	return err
}

/* ----- Geometry ----- */

// Rows returns the number of rows the display supports.
func (d *Dev) Rows() int {
	return d.opts.Height
}

// Cols returns the number of columns the display supports.
func (d *Dev) Cols() int {
	return d.opts.Width
}

// MinRow returns the minimum row number. The public contract is 0 based.
func (d *Dev) MinRow() int {
	return 0
}

// MinCol returns the minimum column number. The public contract is 0
// based.
func (d *Dev) MinCol() int {
	return 0
}

func (d *Dev) String() string {
	var ioType any
	if d.writer != nil {
		ioType = d.writer
	} else {
		ioType = d.d
	}
	return fmt.Sprintf("MatrixOrbital %s %dx%d Display: Connection: %T",
		d.opts.Type, d.opts.Width, d.opts.Height, ioType)
}

var _ display.TextDisplay = &Dev{}
var _ display.DisplayContrast = &Dev{}
var _ display.DisplayBacklight = &Dev{}
var _ display.DisplayRGBBacklight = &Dev{}
var _ GPOEnabledDisplay = &Dev{}
var _ conn.Resource = &Dev{}
