// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package mtxorb

import "errors"

// ModuleType selects the display variant. The four variants share the same
// command prefix but accept overlapping, distinct command sets, so every
// operation is gated on the type given at construction.
type ModuleType int

const (
	// LCD is a standard liquid crystal display without a keypad.
	LCD ModuleType = iota
	// LKD is an LCD with an integrated keypad.
	LKD
	// VFD is a vacuum fluorescent display without a keypad.
	VFD
	// VKD is a vacuum fluorescent display with an integrated keypad.
	VKD
)

func (t ModuleType) String() string {
	switch t {
	case LCD:
		return "LCD"
	case LKD:
		return "LKD"
	case VFD:
		return "VFD"
	case VKD:
		return "VKD"
	}
	return "unknown"
}

// Capability bits computed per module type. Gated operations on a module
// without the capability write nothing to the device.
type capFlags uint8

const (
	// Backlight on/off, contrast and RGB backlight commands. LCD panels only.
	capBacklight capFlags = 1 << iota
	// Brightness uses the VFD opcode with its 0-3 range instead of 0-255.
	capVFDBrightness
	// Keypad configuration commands.
	capKeypad
	// Keypad backlight/brightness, present on LK models only.
	capKeypadBacklight
	// Six independently addressable general purpose outputs. Displays
	// without this expose a single aggregate output line.
	capMultiGPO
)

var moduleCaps = [...]capFlags{
	LCD: capBacklight,
	LKD: capBacklight | capKeypad | capKeypadBacklight | capMultiGPO,
	VFD: capVFDBrightness,
	VKD: capVFDBrightness | capKeypad | capMultiGPO,
}

func (t ModuleType) has(c capFlags) bool {
	return t >= LCD && t <= VKD && moduleCaps[t]&c != 0
}

// Device maxima. Geometry outside these bounds fails at construction time.
const (
	maxWidth      = 40
	maxHeight     = 4
	maxCellWidth  = 5
	maxCellHeight = 8
	// Number of custom character slots in the display's character
	// generator memory.
	maxCustomChars = 8
)

// Construction time errors. Checked before any byte is written to the
// transport.
var (
	ErrInvalidModuleType  = errors.New("mtxorb: invalid module type")
	ErrInvalidDisplaySize = errors.New("mtxorb: invalid display size")
	ErrInvalidCellSize    = errors.New("mtxorb: invalid cell size")

	errHalted   = errors.New("mtxorb: device halted")
	errNoReader = errors.New("mtxorb: transport does not implement io.Reader")
)

// Opts holds the display geometry and variant. It is fixed for the lifetime
// of the device.
type Opts struct {
	// Type gates which commands are legal for the display.
	Type ModuleType
	// Width and Height in characters.
	Width  int
	Height int
	// CellWidth and CellHeight are the pixel dimensions of one character
	// cell. CellWidth masks custom character bitmap rows.
	CellWidth  int
	CellHeight int
}

// DefaultOpts matches the common LK204 series: 20x4 keypad display with
// 5x8 pixel cells.
var DefaultOpts = Opts{
	Type:       LKD,
	Width:      20,
	Height:     4,
	CellWidth:  5,
	CellHeight: 8,
}

func (o *Opts) validate() error {
	if o.Type < LCD || o.Type > VKD {
		return ErrInvalidModuleType
	}
	if o.Width <= 0 || o.Width > maxWidth ||
		o.Height <= 0 || o.Height > maxHeight {
		return ErrInvalidDisplaySize
	}
	if o.CellWidth < 0 || o.CellWidth > maxCellWidth ||
		o.CellHeight < 0 || o.CellHeight > maxCellHeight {
		return ErrInvalidCellSize
	}
	return nil
}
