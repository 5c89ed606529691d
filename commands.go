// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package mtxorb

// Every multi-byte command starts with the prefix byte. A literal 0xFE in
// display text would be taken as the start of a command, so the text path
// replaces it with a space.
const cmdPrefix byte = 0xfe

// Complete fixed commands.
var (
	clearScreen        = []byte{cmdPrefix, 0x58}
	goHome             = []byte{cmdPrefix, 0x48}
	cursorBack         = []byte{cmdPrefix, 0x4c}
	cursorForward      = []byte{cmdPrefix, 0x4d}
	cursorBlockOn      = []byte{cmdPrefix, 0x53}
	cursorBlockOff     = []byte{cmdPrefix, 0x54}
	underlineCursorOn  = []byte{cmdPrefix, 0x4a}
	underlineCursorOff = []byte{cmdPrefix, 0x4b}
	autoScrollOn       = []byte{cmdPrefix, 0x51}
	autoScrollOff      = []byte{cmdPrefix, 0x52}
	lineWrapOn         = []byte{cmdPrefix, 0x43}
	lineWrapOff        = []byte{cmdPrefix, 0x44}
	hbarInit           = []byte{cmdPrefix, 0x68}
	vbarNarrowInit     = []byte{cmdPrefix, 0x73}
	vbarWideInit       = []byte{cmdPrefix, 0x76}
	bigNumMediumInit   = []byte{cmdPrefix, 0x6d}
	bigNumLargeInit    = []byte{cmdPrefix, 0x6e}
	backlightOff       = []byte{cmdPrefix, 0x46}
	keypadBacklightOff = []byte{cmdPrefix, 0x9b}
	keyAutoTxOn        = []byte{cmdPrefix, 0x41}
	keyAutoTxOff       = []byte{cmdPrefix, 0x4f}
	keyAutoRepeatOff   = []byte{cmdPrefix, 0x60}
)

// Opcodes of parameterized commands.
const (
	cmdSetCursorPos      byte = 0x47
	cmdCreateChar        byte = 0x4e
	cmdHBarPlace         byte = 0x7c
	cmdVBarPlace         byte = 0x3d
	cmdBigNumMediumPlace byte = 0x6f
	cmdBigNumLargePlace  byte = 0x23
	cmdBacklightOn       byte = 0x42
	cmdContrast          byte = 0x50
	cmdBrightnessLCD     byte = 0x99
	cmdBrightnessVFD     byte = 0x59
	cmdBacklightColor    byte = 0x82
	cmdGPOOn             byte = 0x57
	cmdGPOOff            byte = 0x56
	cmdKeypadBrightness  byte = 0x9c
	cmdKeyAutoRepeatMode byte = 0x7e
	cmdKeyDebounceTime   byte = 0x55
)

// Direction orients a horizontal bar.
type Direction int

const (
	Right Direction = iota
	Left
)

// VBarStyle selects the vertical bar width.
type VBarStyle int

const (
	Narrow VBarStyle = iota
	Wide
)

// BigNumStyle selects the large digit size. Medium digits are two rows
// tall and take a row coordinate; large digits span the full display
// height.
type BigNumStyle int

const (
	Medium BigNumStyle = iota
	Large
)

// AutoRepeatMode selects what the keypad resends while a key is held.
type AutoRepeatMode int

const (
	// RepeatKeyResend resends the key code (typematic).
	RepeatKeyResend AutoRepeatMode = iota
	// RepeatKeyUpDown sends press and release codes instead.
	RepeatKeyUpDown
)

// GPOFlags addresses the general purpose outputs on keypad models.
type GPOFlags uint8

const (
	GPO1 GPOFlags = 1 << iota
	GPO2
	GPO3
	GPO4
	GPO5
	GPO6
)
