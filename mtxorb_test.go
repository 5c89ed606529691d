// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package mtxorb

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"
)

// mockPort captures the byte stream written by the driver and serves
// canned keypad bytes.
type mockPort struct {
	wr         bytes.Buffer
	readData   []byte
	failWrites bool
	closed     bool
	closeCount int
}

func (m *mockPort) Write(p []byte) (int, error) {
	if m.closed {
		return 0, io.EOF
	}
	if m.failWrites {
		return 0, errors.New("mock write failure")
	}
	return m.wr.Write(p)
}

func (m *mockPort) Read(p []byte) (int, error) {
	if m.closed || len(m.readData) == 0 {
		return 0, io.EOF
	}
	n := copy(p, m.readData)
	m.readData = m.readData[n:]
	return n, nil
}

func (m *mockPort) ReadReady(timeout time.Duration) (bool, error) {
	return len(m.readData) > 0, nil
}

func (m *mockPort) Close() error {
	m.closed = true
	m.closeCount++
	return nil
}

// getDisplay returns a 20x4 display of the given type with the
// initialization bytes already discarded.
func getDisplay(t *testing.T, typ ModuleType) (*Dev, *mockPort) {
	t.Helper()
	mock := &mockPort{}
	dev, err := New(mock, &Opts{Type: typ, Width: 20, Height: 4, CellWidth: 5, CellHeight: 8})
	if err != nil {
		t.Fatal(err)
	}
	mock.wr.Reset()
	return dev, mock
}

func expectBytes(t *testing.T, mock *mockPort, want []byte) {
	t.Helper()
	if got := mock.wr.Bytes(); !bytes.Equal(got, want) {
		t.Errorf("wrote % 02x, expected % 02x", got, want)
	}
	mock.wr.Reset()
}

func expectNothing(t *testing.T, mock *mockPort) {
	t.Helper()
	if got := mock.wr.Bytes(); len(got) != 0 {
		t.Errorf("wrote % 02x, expected no bytes", got)
	}
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name string
		opts Opts
		want error
	}{
		{"negative type", Opts{Type: -1, Width: 20, Height: 4, CellWidth: 5, CellHeight: 8}, ErrInvalidModuleType},
		{"type past VKD", Opts{Type: VKD + 1, Width: 20, Height: 4, CellWidth: 5, CellHeight: 8}, ErrInvalidModuleType},
		{"zero width", Opts{Type: LCD, Width: 0, Height: 4, CellWidth: 5, CellHeight: 8}, ErrInvalidDisplaySize},
		{"wide", Opts{Type: LCD, Width: 41, Height: 4, CellWidth: 5, CellHeight: 8}, ErrInvalidDisplaySize},
		{"tall", Opts{Type: LCD, Width: 20, Height: 5, CellWidth: 5, CellHeight: 8}, ErrInvalidDisplaySize},
		{"cell width", Opts{Type: LCD, Width: 20, Height: 4, CellWidth: 6, CellHeight: 8}, ErrInvalidCellSize},
		{"cell height", Opts{Type: LCD, Width: 20, Height: 4, CellWidth: 5, CellHeight: 9}, ErrInvalidCellSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockPort{}
			dev, err := New(mock, &tt.opts)
			if !errors.Is(err, tt.want) {
				t.Errorf("New() err = %v, expected %v", err, tt.want)
			}
			if dev != nil {
				t.Error("New() returned a device alongside an error")
			}
			// Open time validation failures must never touch the wire.
			expectNothing(t, mock)
		})
	}
}

func TestNewInitializes(t *testing.T) {
	mock := &mockPort{}
	if _, err := New(mock, &DefaultOpts); err != nil {
		t.Fatal(err)
	}
	expectBytes(t, mock, []byte{0xfe, 0x58, 0xfe, 0x48})
}

func TestSetCursor(t *testing.T) {
	dev, mock := getDisplay(t, LKD)
	if err := dev.SetCursor(0, 0); err != nil {
		t.Error(err)
	}
	expectBytes(t, mock, []byte{0xfe, 0x47, 1, 1})
	if err := dev.SetCursor(19, 3); err != nil {
		t.Error(err)
	}
	expectBytes(t, mock, []byte{0xfe, 0x47, 20, 4})

	for _, pos := range [][2]int{{20, 0}, {0, 4}, {-1, 0}, {0, -1}} {
		if err := dev.SetCursor(pos[0], pos[1]); err != nil {
			t.Error(err)
		}
		expectNothing(t, mock)
	}
}

func TestMoveTo(t *testing.T) {
	dev, mock := getDisplay(t, LKD)
	if err := dev.MoveTo(2, 7); err != nil {
		t.Error(err)
	}
	expectBytes(t, mock, []byte{0xfe, 0x47, 8, 3})
}

func TestWriteStringEscapesPrefix(t *testing.T) {
	dev, mock := getDisplay(t, LKD)
	n, err := dev.WriteString("A\xfeB")
	if err != nil {
		t.Error(err)
	}
	if n != 3 {
		t.Errorf("WriteString() n = %d, expected 3", n)
	}
	expectBytes(t, mock, []byte{'A', ' ', 'B'})

	if err := dev.PutChar(0xfe); err != nil {
		t.Error(err)
	}
	expectBytes(t, mock, []byte{' '})
}

func TestWriteIsRaw(t *testing.T) {
	dev, mock := getDisplay(t, LKD)
	if _, err := dev.Write([]byte{0xfe, 0x26}); err != nil {
		t.Error(err)
	}
	expectBytes(t, mock, []byte{0xfe, 0x26})
}

func TestCreateCharMasksRows(t *testing.T) {
	dev, mock := getDisplay(t, LKD)
	rows := []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
	if err := dev.CreateChar(2, rows); err != nil {
		t.Error(err)
	}
	expectBytes(t, mock, []byte{0xfe, 0x4e, 2,
		0x1f, 0x1f, 0x1f, 0x1f, 0x1f, 0x1f, 0x1f, 0x1f})

	// Bad slot or short bitmap: nothing on the wire.
	if err := dev.CreateChar(8, rows); err != nil {
		t.Error(err)
	}
	expectNothing(t, mock)
	if err := dev.CreateChar(0, rows[:4]); err != nil {
		t.Error(err)
	}
	expectNothing(t, mock)
}

func TestHBarInitOnlyOnce(t *testing.T) {
	dev, mock := getDisplay(t, LKD)
	if err := dev.HBar(0, 0, 50, Right); err != nil {
		t.Error(err)
	}
	if err := dev.HBar(0, 1, 75, Left); err != nil {
		t.Error(err)
	}
	expectBytes(t, mock, []byte{
		0xfe, 0x68, // init, first call only
		0xfe, 0x7c, 1, 1, 0, 50,
		0xfe, 0x7c, 1, 2, 1, 75,
	})
}

func TestHBarBounds(t *testing.T) {
	dev, mock := getDisplay(t, LKD)
	for _, c := range [][3]int{{-1, 0, 50}, {20, 0, 50}, {0, 4, 50}, {0, 0, 101}, {0, 0, -1}} {
		if err := dev.HBar(c[0], c[1], c[2], Right); err != nil {
			t.Error(err)
		}
		expectNothing(t, mock)
	}
}

func TestVBarStyles(t *testing.T) {
	dev, mock := getDisplay(t, LKD)
	if err := dev.VBar(3, 16, Narrow); err != nil {
		t.Error(err)
	}
	expectBytes(t, mock, []byte{0xfe, 0x73, 0xfe, 0x3d, 4, 16})

	// Still vbar mode: a style change alone does not re-initialize.
	if err := dev.VBar(4, 32, Wide); err != nil {
		t.Error(err)
	}
	expectBytes(t, mock, []byte{0xfe, 0x3d, 5, 32})

	if err := dev.VBar(4, 33, Wide); err != nil {
		t.Error(err)
	}
	expectNothing(t, mock)
}

func TestModeTransitionsReinitialize(t *testing.T) {
	dev, mock := getDisplay(t, LKD)
	_ = dev.HBar(0, 0, 10, Right)
	mock.wr.Reset()

	// Crossing families re-initializes, even going back to a family that
	// owned the bank before.
	if err := dev.VBar(0, 8, Wide); err != nil {
		t.Error(err)
	}
	expectBytes(t, mock, []byte{0xfe, 0x76, 0xfe, 0x3d, 1, 8})

	if err := dev.HBar(0, 0, 10, Right); err != nil {
		t.Error(err)
	}
	expectBytes(t, mock, []byte{0xfe, 0x68, 0xfe, 0x7c, 1, 1, 0, 10})

	// A custom character takes over the bank, so the next bar
	// re-initializes too.
	_ = dev.CreateChar(0, make([]byte, 8))
	mock.wr.Reset()
	if err := dev.HBar(0, 0, 10, Right); err != nil {
		t.Error(err)
	}
	expectBytes(t, mock, []byte{0xfe, 0x68, 0xfe, 0x7c, 1, 1, 0, 10})
}

func TestBigNum(t *testing.T) {
	dev, mock := getDisplay(t, LKD)
	if err := dev.BigNum(2, 1, 7, Medium); err != nil {
		t.Error(err)
	}
	expectBytes(t, mock, []byte{0xfe, 0x6d, 0xfe, 0x6f, 2, 3, 7})

	dev2, mock2 := getDisplay(t, LKD)
	if err := dev2.BigNum(5, 0, 9, Large); err != nil {
		t.Error(err)
	}
	expectBytes(t, mock2, []byte{0xfe, 0x6e, 0xfe, 0x23, 6, 9})

	if err := dev2.BigNum(5, 0, 10, Large); err != nil {
		t.Error(err)
	}
	expectNothing(t, mock2)
}

func TestKeypadCommandsGatedByType(t *testing.T) {
	for _, typ := range []ModuleType{LCD, VFD} {
		dev, mock := getDisplay(t, typ)
		_ = dev.KeyAutoTx(true)
		_ = dev.KeyAutoRepeat(RepeatKeyResend)
		_ = dev.KeyAutoRepeatOff()
		_ = dev.KeyDebounceTime(8)
		_ = dev.KeypadBacklightOff()
		_ = dev.KeypadBrightness(100)
		if mock.wr.Len() != 0 {
			t.Errorf("%s: keypad commands wrote % 02x, expected no bytes", typ, mock.wr.Bytes())
		}
	}

	dev, mock := getDisplay(t, LKD)
	_ = dev.KeyAutoTx(true)
	expectBytes(t, mock, []byte{0xfe, 0x41})
	_ = dev.KeyAutoTx(false)
	expectBytes(t, mock, []byte{0xfe, 0x4f})
	_ = dev.KeyAutoRepeat(RepeatKeyUpDown)
	expectBytes(t, mock, []byte{0xfe, 0x7e, 1})
	_ = dev.KeyAutoRepeatOff()
	expectBytes(t, mock, []byte{0xfe, 0x60})
	_ = dev.KeyDebounceTime(8)
	expectBytes(t, mock, []byte{0xfe, 0x55, 8})
	_ = dev.KeypadBacklightOff()
	expectBytes(t, mock, []byte{0xfe, 0x9b})
	_ = dev.KeypadBrightness(100)
	expectBytes(t, mock, []byte{0xfe, 0x9c, 100})

	// VK modules have a keypad but no keypad backlight.
	devVK, mockVK := getDisplay(t, VKD)
	_ = devVK.KeyDebounceTime(8)
	expectBytes(t, mockVK, []byte{0xfe, 0x55, 8})
	_ = devVK.KeypadBacklightOff()
	_ = devVK.KeypadBrightness(100)
	expectNothing(t, mockVK)
}

func TestBrightnessPerFamily(t *testing.T) {
	dev, mock := getDisplay(t, LKD)
	if err := dev.Brightness(200); err != nil {
		t.Error(err)
	}
	expectBytes(t, mock, []byte{0xfe, 0x99, 200})

	devV, mockV := getDisplay(t, VFD)
	if err := devV.Brightness(200); err != nil {
		t.Error(err)
	}
	// VFD brightness clamps to 3.
	expectBytes(t, mockV, []byte{0xfe, 0x59, 3})
	if err := devV.Brightness(2); err != nil {
		t.Error(err)
	}
	expectBytes(t, mockV, []byte{0xfe, 0x59, 2})
	if err := devV.Brightness(256); err != nil {
		t.Error(err)
	}
	expectNothing(t, mockV)
}

func TestBacklightAndContrastLCDOnly(t *testing.T) {
	dev, mock := getDisplay(t, VFD)
	_ = dev.BacklightOn(0)
	_ = dev.BacklightOff()
	_ = dev.Contrast(128)
	_ = dev.RGBBacklight(1, 2, 3)
	expectNothing(t, mock)

	devL, mockL := getDisplay(t, LCD)
	_ = devL.BacklightOn(5)
	expectBytes(t, mockL, []byte{0xfe, 0x42, 5})
	_ = devL.BacklightOn(0)
	expectBytes(t, mockL, []byte{0xfe, 0x42, 0})
	_ = devL.BacklightOff()
	expectBytes(t, mockL, []byte{0xfe, 0x46})
	_ = devL.Contrast(128)
	expectBytes(t, mockL, []byte{0xfe, 0x50, 128})
	_ = devL.RGBBacklight(10, 20, 30)
	expectBytes(t, mockL, []byte{0xfe, 0x82, 10, 20, 30})
	_ = devL.Contrast(256)
	expectNothing(t, mockL)
}

func TestSetOutput(t *testing.T) {
	dev, mock := getDisplay(t, LKD)
	if err := dev.SetOutput(GPO1 | GPO3); err != nil {
		t.Error(err)
	}
	expectBytes(t, mock, []byte{
		0xfe, 0x57, 1,
		0xfe, 0x56, 2,
		0xfe, 0x57, 3,
		0xfe, 0x56, 4,
		0xfe, 0x56, 5,
		0xfe, 0x56, 6,
	})

	devL, mockL := getDisplay(t, LCD)
	if err := devL.SetOutput(GPO1); err != nil {
		t.Error(err)
	}
	expectBytes(t, mockL, []byte{0xfe, 0x57})
	if err := devL.SetOutput(0); err != nil {
		t.Error(err)
	}
	expectBytes(t, mockL, []byte{0xfe, 0x56})
}

func TestGPOPins(t *testing.T) {
	dev, mock := getDisplay(t, LKD)
	if len(dev.Pins) != 6 {
		t.Fatalf("LKD has %d pins, expected 6", len(dev.Pins))
	}
	if err := dev.Pins[2].Out(true); err != nil {
		t.Error(err)
	}
	expectBytes(t, mock, []byte{0xfe, 0x57, 3})

	devL, _ := getDisplay(t, LCD)
	if len(devL.Pins) != 1 {
		t.Fatalf("LCD has %d pins, expected 1", len(devL.Pins))
	}
	for ix, pin := range dev.Pins {
		if pin.Name() == "" || pin.Number() != ix+1 {
			t.Errorf("pin %d: name %q number %d", ix, pin.Name(), pin.Number())
		}
	}
}

func TestHaltQuiescesAndIsIdempotent(t *testing.T) {
	dev, mock := getDisplay(t, LKD)
	if err := dev.Halt(); err != nil {
		t.Error(err)
	}
	expectBytes(t, mock, []byte{
		0xfe, 0x46, // backlight off
		0xfe, 0x58, // clear
		0xfe, 0x54, // block cursor off
		0xfe, 0x9b, // keypad backlight off
		0xfe, 0x56, 1,
		0xfe, 0x56, 2,
		0xfe, 0x56, 3,
		0xfe, 0x56, 4,
		0xfe, 0x56, 5,
		0xfe, 0x56, 6,
	})
	if mock.closeCount != 1 {
		t.Errorf("closeCount = %d, expected 1", mock.closeCount)
	}
	if err := dev.Halt(); err != nil {
		t.Error(err)
	}
	if mock.closeCount != 1 {
		t.Errorf("closeCount after second Halt = %d, expected 1", mock.closeCount)
	}
	if _, err := dev.Write([]byte{'x'}); err == nil {
		t.Error("Write() after Halt() succeeded, expected an error")
	}
}

func TestReadWithTimeout(t *testing.T) {
	dev, mock := getDisplay(t, LKD)
	buf := make([]byte, 4)
	// Nothing buffered: a timeout is not an error.
	n, err := dev.Read(buf, 10*time.Millisecond)
	if err != nil {
		t.Error(err)
	}
	if n != 0 {
		t.Errorf("Read() n = %d, expected 0 on timeout", n)
	}
	mock.readData = []byte{'C', 'D'}
	n, err = dev.Read(buf, 0)
	if err != nil {
		t.Error(err)
	}
	if n != 2 || buf[0] != 'C' || buf[1] != 'D' {
		t.Errorf("Read() = %d %q", n, buf[:n])
	}
}

func TestReadKeypadChannel(t *testing.T) {
	dev, mock := getDisplay(t, LKD)
	mock.readData = []byte("ABC")
	ch, err := dev.ReadKeypad()
	if err != nil {
		t.Fatal(err)
	}
	var got []byte
	for c := range ch {
		got = append(got, c)
	}
	if string(got) != "ABC" {
		t.Errorf("keypad bytes %q, expected ABC", got)
	}
	if err := dev.Halt(); err != nil {
		t.Error(err)
	}
}

func TestReadKeypadNeedsKeypad(t *testing.T) {
	dev, _ := getDisplay(t, VFD)
	if _, err := dev.ReadKeypad(); err == nil {
		t.Error("ReadKeypad() on a VFD succeeded, expected an error")
	}
}

func TestLastError(t *testing.T) {
	dev, mock := getDisplay(t, LKD)
	if dev.LastError() != nil {
		t.Errorf("LastError() = %v on a fresh device", dev.LastError())
	}
	mock.failWrites = true
	if err := dev.Clear(); err == nil {
		t.Error("Clear() with a failing transport succeeded")
	}
	if dev.LastError() == nil {
		t.Error("LastError() = nil after a failed write")
	}
}

func TestGeometry(t *testing.T) {
	dev, _ := getDisplay(t, LKD)
	if dev.Rows() != 4 || dev.Cols() != 20 {
		t.Errorf("geometry %dx%d, expected 20x4", dev.Cols(), dev.Rows())
	}
	if dev.MinRow() != 0 || dev.MinCol() != 0 {
		t.Error("public coordinates are 0 based")
	}
	if len(dev.String()) == 0 {
		t.Error("String() returned an empty string")
	}
}

var _ io.ReadWriter = &mockPort{}
var _ io.Closer = &mockPort{}
