// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package mtxorb

// The horizontal bar, vertical bar, big number and user defined character
// features all load glyphs into the same character generator bank, so only
// one family can own the bank at a time. The device tracks the owner and
// resends the family's initialization command only when the owner changes.
// Repeated calls within one family skip the init and avoid a visible redraw.
type ccMode int

const (
	ccNone ccMode = iota
	ccHBar
	ccVBar
	ccBigNum
	ccCustom
)

func (m ccMode) String() string {
	switch m {
	case ccNone:
		return "none"
	case ccHBar:
		return "hbar"
	case ccVBar:
		return "vbar"
	case ccBigNum:
		return "bignum"
	case ccCustom:
		return "custom"
	}
	return "unknown"
}

// enterCCMode sends init and records the new bank owner unless the family
// already owns the bank. Families whose init depends on a style (vertical
// bars, big numbers) pass the style-specific command; a style change within
// the same family does not re-initialize.
func (d *Dev) enterCCMode(m ccMode, init []byte) error {
	if d.ccMode == m {
		return nil
	}
	if _, err := d.Write(init); err != nil {
		return err
	}
	d.ccMode = m
	return nil
}
