// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package glyph builds custom character bitmaps for Matrix Orbital
// displays from images or pattern strings. The result feeds straight
// into mtxorb.Dev.CreateChar.
package glyph

import (
	"image"

	xdraw "golang.org/x/image/draw"
)

// FromImage scales src down to one character cell of cellWidth x
// cellHeight pixels and thresholds it into a bitmap, one byte per pixel
// row. Dark pixels are set, so black-on-white art comes out the way it
// looks. Each row only carries cellWidth significant bits; the device
// masks the rest anyway.
func FromImage(src image.Image, cellWidth, cellHeight int) []byte {
	if cellWidth <= 0 || cellWidth > 8 || cellHeight <= 0 {
		return nil
	}
	cell := image.NewGray(image.Rect(0, 0, cellWidth, cellHeight))
	xdraw.NearestNeighbor.Scale(cell, cell.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	rows := make([]byte, cellHeight)
	for y := 0; y < cellHeight; y++ {
		for x := 0; x < cellWidth; x++ {
			if cell.GrayAt(x, y).Y < 0x80 {
				rows[y] |= 1 << (cellWidth - 1 - x)
			}
		}
	}
	return rows
}

// FromStrings builds a bitmap from one string per pixel row, where '#',
// 'X' and '1' mark set pixels:
//
//	heart := glyph.FromStrings([]string{
//		".....",
//		".#.#.",
//		"#####",
//		"#####",
//		".###.",
//		"..#..",
//		".....",
//		".....",
//	})
func FromStrings(rows []string) []byte {
	out := make([]byte, len(rows))
	for y, row := range rows {
		for x := 0; x < len(row); x++ {
			switch row[x] {
			case '#', 'X', '1':
				out[y] |= 1 << (len(row) - 1 - x)
			}
		}
	}
	return out
}
