// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package mtxorb

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// A gpoPin is a general purpose output line exposed as gpio.PinOut. LK and
// VK models have six, often wired to LEDs on the bezel; LCD and VFD models
// have a single line.
type gpoPin struct {
	name    string
	number  int
	display *GPOEnabledDisplay
}

// A generic routine to create our set of pins.
func makePins(display *GPOEnabledDisplay, pins []gpio.PinOut) {
	for ix := range len(pins) {
		pin := &gpoPin{name: fmt.Sprintf("GPO%d", ix+1), number: ix + 1, display: display}
		pins[ix] = pin
	}
}

func (pin *gpoPin) Name() string {
	return pin.name
}

func (pin *gpoPin) Number() int {
	return pin.number
}

func (pin *gpoPin) String() string {
	return fmt.Sprintf("mtxorb Pin: Name: %s Number %d", pin.name, pin.number)
}

func (pin *gpoPin) Halt() error {
	return nil
}

func (pin *gpoPin) Out(l gpio.Level) error {
	d := *pin.display
	return d.GPO(pin.number, l)
}

func (pin *gpoPin) Function() string {
	return "Out"
}

func (pin *gpoPin) PWM(duty gpio.Duty, f physic.Frequency) error {
	return errors.New("not implemented")
}

var _ gpio.PinOut = &gpoPin{}
