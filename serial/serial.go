// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build linux

// Package serial configures a serial port for use with Matrix Orbital
// character displays. Only implemented for linux.
//
// The port is opened 8-N-1 with parity errors ignored, at one of the four
// baud rates the displays ship with. An advisory lock keeps two processes
// from interleaving writes on the same device node.
package serial

import (
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

var (
	// ErrInvalidBaudRate is returned before any device I/O when the
	// requested rate is not one the display supports.
	ErrInvalidBaudRate = errors.New("serial: invalid baud rate")
	// ErrDeviceUnavailable is returned when the device node is missing,
	// cannot be opened, or is locked by another process.
	ErrDeviceUnavailable = errors.New("serial: device unavailable")
	// ErrTerminalConfig is returned when the terminal attributes cannot
	// be read or applied.
	ErrTerminalConfig = errors.New("serial: terminal configuration failed")
)

// The displays only speak these rates.
var baudRates = map[int]uint32{
	9600:  unix.B9600,
	19200: unix.B19200,
	38400: unix.B38400,
	57600: unix.B57600,
}

// Port is an open, exclusively locked serial port.
type Port struct {
	f      *os.File
	oldtio unix.Termios
	closed bool
}

// Open opens the serial device node name, e.g. /dev/ttyS0 or
// /dev/ttyUSB0, at the given baud rate and configures it 8-N-1. The
// original terminal attributes are restored on Close.
func Open(name string, baud int) (*Port, error) {
	speed, ok := baudRates[baud]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBaudRate, baud)
	}

	f, err := os.OpenFile(name, os.O_RDWR|unix.O_NOCTTY, 0666)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	if err = unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: lock: %v", ErrDeviceUnavailable, err)
	}

	oldtio, err := unix.IoctlGetTermios(int(f.Fd()), unix.TCGETS)
	if err != nil {
		closeUnlock(f)
		return nil, fmt.Errorf("%w: %v", ErrTerminalConfig, err)
	}

	// 8-N-1, ignore parity errors, blocking read of at least one byte
	// unless the caller polls first.
	tio := unix.Termios{}
	tio.Cflag = speed | unix.CS8 | unix.CLOCAL | unix.CREAD
	tio.Iflag = unix.IGNPAR | unix.ICRNL
	tio.Cc[unix.VMIN] = 1
	tio.Cc[unix.VTIME] = 0
	tio.Ispeed = speed
	tio.Ospeed = speed

	_ = unix.IoctlSetInt(int(f.Fd()), unix.TCFLSH, unix.TCIFLUSH)
	if err = unix.IoctlSetTermios(int(f.Fd()), unix.TCSETS, &tio); err != nil {
		closeUnlock(f)
		return nil, fmt.Errorf("%w: %v", ErrTerminalConfig, err)
	}

	return &Port{f: f, oldtio: *oldtio}, nil
}

func closeUnlock(f *os.File) {
	_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
	_ = f.Close()
}

func (p *Port) Read(b []byte) (int, error) {
	return p.f.Read(b)
}

func (p *Port) Write(b []byte) (int, error) {
	return p.f.Write(b)
}

// ReadReady waits up to timeout for input to become readable. A zero or
// negative timeout is a non-blocking poll.
func (p *Port) ReadReady(timeout time.Duration) (bool, error) {
	ms := int(timeout.Milliseconds())
	if ms < 0 {
		ms = 0
	}
	fds := []unix.PollFd{{Fd: int32(p.f.Fd()), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, ms)
	if err != nil {
		if err == unix.EINTR {
			return false, nil
		}
		return false, err
	}
	return n > 0 && fds[0].Revents&unix.POLLIN != 0, nil
}

// Close drains pending output, restores the original terminal attributes,
// drops the advisory lock and closes the port. Safe to call more than
// once.
func (p *Port) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	// tcdrain(fd)
	_ = unix.IoctlSetInt(int(p.f.Fd()), unix.TCSBRK, 1)
	_ = unix.IoctlSetTermios(int(p.f.Fd()), unix.TCSETS, &p.oldtio)
	_ = unix.Flock(int(p.f.Fd()), unix.LOCK_UN)
	return p.f.Close()
}

func (p *Port) String() string {
	return fmt.Sprintf("serial.Port(%s)", p.f.Name())
}
