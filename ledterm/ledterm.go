// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ledterm previews an RGB LED on a terminal using ANSI color codes.
//
// It is used by dry runs, where no LED is wired.
package ledterm

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"sync"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
)

// Opts represents the options available for the preview.
type Opts struct {
	// Width is the number of character blocks of the swatch. Defaults to 8.
	Width int
	// Palette defaults to ansi256.Default.
	Palette *ansi256.Palette
	// W defaults to a color capable stdout.
	W io.Writer

	_ struct{}
}

// Dev is a single LED swatch redrawn in place on one terminal line.
type Dev struct {
	w       io.Writer
	width   int
	palette ansi256.Palette

	mu   sync.Mutex
	last color.NRGBA
	buf  bytes.Buffer
}

// New returns a Dev writing to opts.W.
func New(opts *Opts) *Dev {
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	w := opts.W
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	width := opts.Width
	if width <= 0 {
		width = 8
	}
	return &Dev{w: w, width: width, palette: *p}
}

func (d *Dev) String() string {
	return "LEDTerm"
}

// Show redraws the swatch with c.
func (d *Dev) Show(c color.Color) error {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	n.A = 255
	d.mu.Lock()
	defer d.mu.Unlock()
	d.last = n
	// Reuse the buffer; Show is called for every fade step.
	d.buf.Reset()
	_, _ = d.buf.WriteString("\r\033[0m")
	block := d.palette.Block(n)
	for i := 0; i < d.width; i++ {
		_, _ = d.buf.WriteString(block)
	}
	_, _ = fmt.Fprintf(&d.buf, "\033[0m #%02x%02x%02x ", n.R, n.G, n.B)
	_, err := d.buf.WriteTo(d.w)
	return err
}

// Last returns the last color shown.
func (d *Dev) Last() color.NRGBA {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

// Halt implements conn.Resource.
//
// It resets the terminal attributes and ends the line.
func (d *Dev) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := io.WriteString(d.w, "\033[0m\n")
	return err
}

var _ fmt.Stringer = &Dev{}
