// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package image565 implements an image type storing 16 bits RGB 5-6-5 pixels
// in the byte order the ST7789 expects on the wire: high byte first, rows
// top to bottom.
//
// It is the off-screen surface icon and text renderers draw into before the
// result is pushed to the display in a single window write.
package image565

import (
	"image"
	"image/color"
	"image/draw"
)

// Color is a 16 bits 5-6-5 color.
type Color uint16

// RGBA implements color.Color.
func (c Color) RGBA() (r, g, b, a uint32) {
	r5 := uint32(c>>11) & 0x1F
	g6 := uint32(c>>5) & 0x3F
	b5 := uint32(c) & 0x1F
	r = r5<<3 | r5>>2
	g = g6<<2 | g6>>4
	b = b5<<3 | b5>>2
	return r<<8 | r, g<<8 | g, b<<8 | b, 0xFFFF
}

// RGB returns the 5-6-5 encoding of an 8 bits per channel color.
func RGB(r, g, b uint8) Color {
	return Color(uint16(r&0xF8)<<8 | uint16(g&0xFC)<<3 | uint16(b)>>3)
}

// Well known colors.
const (
	Black Color = 0x0000
	White Color = 0xFFFF
	Red   Color = 0xF800
	Green Color = 0x07E0
	Blue  Color = 0x001F
)

// Model is the color model of Color.
var Model = color.ModelFunc(convert)

func convert(c color.Color) color.Color {
	if c, ok := c.(Color); ok {
		return c
	}
	r, g, b, _ := c.RGBA()
	return RGB(uint8(r>>8), uint8(g>>8), uint8(b>>8))
}

// Image is an in-memory image of Color pixels.
type Image struct {
	// Pix holds two bytes per pixel, high byte first.
	Pix []byte
	// Stride is the number of bytes between vertically adjacent pixels.
	Stride int
	// Rect is the image's bounds.
	Rect image.Rectangle
}

// New returns an Image covering r, filled with Black.
func New(r image.Rectangle) *Image {
	w, h := r.Dx(), r.Dy()
	return &Image{Pix: make([]byte, 2*w*h), Stride: 2 * w, Rect: r}
}

// ColorModel implements image.Image.
func (i *Image) ColorModel() color.Model {
	return Model
}

// Bounds implements image.Image.
func (i *Image) Bounds() image.Rectangle {
	return i.Rect
}

// At implements image.Image.
func (i *Image) At(x, y int) color.Color {
	return i.RGB565At(x, y)
}

// RGB565At returns the pixel at (x, y), or Black outside the bounds.
func (i *Image) RGB565At(x, y int) Color {
	if !(image.Point{x, y}.In(i.Rect)) {
		return Black
	}
	o := i.PixOffset(x, y)
	return Color(uint16(i.Pix[o])<<8 | uint16(i.Pix[o+1]))
}

// PixOffset returns the index of the first byte of the pixel at (x, y).
func (i *Image) PixOffset(x, y int) int {
	return (y-i.Rect.Min.Y)*i.Stride + (x-i.Rect.Min.X)*2
}

// Set implements draw.Image.
func (i *Image) Set(x, y int, c color.Color) {
	i.SetRGB565(x, y, convert(c).(Color))
}

// SetRGB565 sets the pixel at (x, y). Points outside the bounds are ignored.
func (i *Image) SetRGB565(x, y int, c Color) {
	if !(image.Point{x, y}.In(i.Rect)) {
		return
	}
	o := i.PixOffset(x, y)
	i.Pix[o] = byte(c >> 8)
	i.Pix[o+1] = byte(c)
}

// Fill paints the whole image with c.
func (i *Image) Fill(c Color) {
	for o := 0; o+1 < len(i.Pix); o += 2 {
		i.Pix[o] = byte(c >> 8)
		i.Pix[o+1] = byte(c)
	}
}

// SubImage returns an image representing the portion of i visible through
// r. The returned value shares pixels with the original image.
func (i *Image) SubImage(r image.Rectangle) image.Image {
	r = r.Intersect(i.Rect)
	if r.Empty() {
		return &Image{}
	}
	o := i.PixOffset(r.Min.X, r.Min.Y)
	return &Image{Pix: i.Pix[o:], Stride: i.Stride, Rect: r}
}

var _ draw.Image = &Image{}
