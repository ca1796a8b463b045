// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"strconv"
	"strings"

	// Formats accepted by the image command.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/GermanBionicSystems/whisplay/st7789/image565"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
)

// parseHexColor parses "rrggbb", with or without a leading '#'.
func parseHexColor(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return color.RGBA{}, fmt.Errorf("color %q is not rrggbb", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

// parseUint8 parses a decimal color component.
func parseUint8(s string) (uint8, error) {
	v, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("%q is not within 0 and 255", s)
	}
	return uint8(v), nil
}

// loadFace returns the face to render text with. An empty path selects Go
// Regular, a zero size the fixed 7x13 bitmap font.
func loadFace(path string, size float64) (font.Face, error) {
	if size <= 0 {
		return basicfont.Face7x13, nil
	}
	ttf := goregular.TTF
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		ttf = b
	}
	f, err := truetype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return truetype.NewFace(f, &truetype.Options{Size: size}), nil
}

// renderText draws msg centered and word wrapped, white on black.
func renderText(r image.Rectangle, msg string, face font.Face) *image565.Image {
	w, h := r.Dx(), r.Dy()
	dc := gg.NewContext(w, h)
	dc.SetRGB(0, 0, 0)
	dc.Clear()
	dc.SetFontFace(face)
	dc.SetRGB(1, 1, 1)
	const margin = 8
	dc.DrawStringWrapped(msg, float64(w)/2, float64(h)/2, 0.5, 0.5, float64(w-2*margin), 1.4, gg.AlignCenter)
	dst := image565.New(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Rect, dc.Image(), image.Point{}, draw.Src)
	return dst
}

// decodeImage reads any registered image format.
func decodeImage(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	return img, err
}

// fitImage scales src into r, keeping its aspect ratio, centered on black.
func fitImage(r image.Rectangle, src image.Image) *image565.Image {
	dst := image565.New(image.Rect(0, 0, r.Dx(), r.Dy()))
	dst.Fill(image565.Black)
	sb := src.Bounds()
	if sb.Empty() {
		return dst
	}
	w, h := r.Dx(), sb.Dy()*r.Dx()/sb.Dx()
	if h > r.Dy() {
		w, h = sb.Dx()*r.Dy()/sb.Dy(), r.Dy()
	}
	x, y := (r.Dx()-w)/2, (r.Dy()-h)/2
	draw.CatmullRom.Scale(dst, image.Rect(x, y, x+w, y+h), src, sb, draw.Src, nil)
	return dst
}
