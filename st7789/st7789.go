// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package st7789

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"time"

	"github.com/GermanBionicSystems/whisplay/st7789/image565"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// Panel size in portrait orientation.
const (
	Width  = 240
	Height = 280
)

// ramOffset is the distance between the first RAM row and the first
// visible row of the panel.
const ramOffset = 20

// defaultMaxTx is used when the SPI driver doesn't report its limit.
const defaultMaxTx = 4096

var (
	// ErrOutOfBounds is returned when a window or image doesn't fit the
	// panel. Nothing is sent to the controller.
	ErrOutOfBounds = errors.New("st7789: rectangle exceeds panel bounds")
	// ErrPixelCount is returned when an image buffer is not two bytes per
	// pixel of its rectangle.
	ErrPixelCount = errors.New("st7789: pixel buffer size mismatch")
)

// Orientation selects how the panel RAM is scanned.
type Orientation uint8

// Possible orientations. 0 and 1 are portrait, 2 and 3 are landscape.
const (
	Portrait Orientation = iota
	PortraitFlipped
	Landscape
	LandscapeFlipped
)

func (o Orientation) String() string {
	switch o {
	case Portrait:
		return "Portrait"
	case PortraitFlipped:
		return "PortraitFlipped"
	case Landscape:
		return "Landscape"
	case LandscapeFlipped:
		return "LandscapeFlipped"
	}
	return fmt.Sprintf("Orientation(%d)", uint8(o))
}

// madctl returns the memory access control byte for the orientation.
func (o Orientation) madctl() byte {
	switch o {
	case PortraitFlipped:
		return 0xC0
	case Landscape:
		return 0x70
	case LandscapeFlipped:
		return 0xA0
	}
	return 0x00
}

// landscape is true when rows and columns are exchanged; the RAM offset
// then applies to columns.
func (o Orientation) landscape() bool {
	return o == Landscape || o == LandscapeFlipped
}

// Output is a GPIO line driven by the driver.
type Output interface {
	Out(l gpio.Level) error
}

// Opts defines the options for the device.
type Opts struct {
	Orientation Orientation
	// MaxSpeed is the SPI clock. The ST7789 is rated at 62.5MHz for writes
	// but accepts the 100MHz clock of the Raspberry Pi in practice.
	MaxSpeed physic.Frequency
}

// DefaultOpts is the configuration of the Whisplay HAT.
var DefaultOpts = Opts{
	Orientation: PortraitFlipped,
	MaxSpeed:    48 * physic.MegaHertz,
}

// Dev is an open handle to the display controller.
//
// Dev is not safe for concurrent use: only one goroutine may draw at a time.
type Dev struct {
	c   conn.Conn
	dc  Output
	rst Output

	opts  Opts
	rect  image.Rectangle
	maxTx int
}

// New returns a Dev that communicates over SPI mode 0. The controller is not
// touched until Init is called.
func New(p spi.Port, dc, rst Output, opts *Opts) (*Dev, error) {
	if opts.Orientation > LandscapeFlipped {
		return nil, fmt.Errorf("st7789: unknown orientation %d", opts.Orientation)
	}
	f := opts.MaxSpeed
	if f == 0 {
		f = DefaultOpts.MaxSpeed
	}
	c, err := p.Connect(f, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("st7789: %w", err)
	}
	d := &Dev{
		c:     c,
		dc:    dc,
		rst:   rst,
		opts:  *opts,
		rect:  image.Rect(0, 0, Width, Height),
		maxTx: defaultMaxTx,
	}
	if opts.Orientation.landscape() {
		d.rect = image.Rect(0, 0, Height, Width)
	}
	if l, ok := c.(conn.Limits); ok {
		if n := l.MaxTxSize(); n > 0 {
			d.maxTx = n
		}
	}
	return d, nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("st7789.Dev{%s, %s, %s}", d.c, d.opts.Orientation, d.rect.Max)
}

// Reset pulses the reset line. The delays are the minimum the controller
// needs to come out of power on reset.
func (d *Dev) Reset() error {
	eh := errorHandler{d: d}
	eh.rstOut(gpio.High)
	time.Sleep(100 * time.Millisecond)
	eh.rstOut(gpio.Low)
	time.Sleep(100 * time.Millisecond)
	eh.rstOut(gpio.High)
	time.Sleep(120 * time.Millisecond)
	return eh.result()
}

// Init resets the controller and sends the initialization sequence.
func (d *Dev) Init() error {
	if err := d.Reset(); err != nil {
		return err
	}
	eh := errorHandler{d: d}
	initDisplay(&eh, d.opts.Orientation)
	return eh.result()
}

// Orientation returns the configured orientation.
func (d *Dev) Orientation() Orientation {
	return d.opts.Orientation
}

// ColorModel implements display.Drawer.
func (d *Dev) ColorModel() color.Model {
	return image565.Model
}

// Bounds implements display.Drawer. Min is guaranteed to be {0, 0}.
func (d *Dev) Bounds() image.Rectangle {
	return d.rect
}

// SetWindow addresses the inclusive rectangle [x0, x1]x[y0, y1] and starts a
// memory write. The pixel data must follow with Write.
func (d *Dev) SetWindow(x0, y0, x1, y1 int) error {
	if err := d.checkWindow(x0, y0, x1, y1); err != nil {
		return err
	}
	eh := errorHandler{d: d}
	setWindow(&eh, d.opts.Orientation, x0, y0, x1, y1)
	return eh.result()
}

func (d *Dev) checkWindow(x0, y0, x1, y1 int) error {
	if x0 < 0 || y0 < 0 || x0 > x1 || y0 > y1 || x1 >= d.rect.Dx() || y1 >= d.rect.Dy() {
		return fmt.Errorf("%w: (%d,%d)-(%d,%d) in %s", ErrOutOfBounds, x0, y0, x1, y1, d.rect.Max)
	}
	return nil
}

// Write sends raw pixel data to the window set last.
func (d *Dev) Write(pixels []byte) (int, error) {
	eh := errorHandler{d: d}
	eh.sendData(pixels)
	if err := eh.result(); err != nil {
		return 0, err
	}
	return len(pixels), nil
}

// DrawPixel sets a single pixel. Points outside the panel are ignored.
func (d *Dev) DrawPixel(x, y int, c image565.Color) error {
	if !(image.Point{x, y}.In(d.rect)) {
		return nil
	}
	eh := errorHandler{d: d}
	d.pixel(&eh, x, y, c)
	return eh.result()
}

func (d *Dev) pixel(eh *errorHandler, x, y int, c image565.Color) {
	if !(image.Point{x, y}.In(d.rect)) {
		return
	}
	setWindow(eh, d.opts.Orientation, x, y, x, y)
	eh.sendData([]byte{byte(c >> 8), byte(c)})
}

// DrawLine draws a one pixel wide line, both ends included. Points falling
// outside the panel are skipped.
func (d *Dev) DrawLine(x0, y0, x1, y1 int, c image565.Color) error {
	eh := errorHandler{d: d}
	line(x0, y0, x1, y1, func(x, y int) bool {
		d.pixel(&eh, x, y, c)
		return eh.err == nil
	})
	return eh.result()
}

// FillScreen paints the whole panel with c in a single window write.
func (d *Dev) FillScreen(c image565.Color) error {
	w, h := d.rect.Dx(), d.rect.Dy()
	buf := make([]byte, 2*w*h)
	for i := 0; i < len(buf); i += 2 {
		buf[i] = byte(c >> 8)
		buf[i+1] = byte(c)
	}
	eh := errorHandler{d: d}
	setWindow(&eh, d.opts.Orientation, 0, 0, w-1, h-1)
	eh.sendData(buf)
	return eh.result()
}

// DrawImage writes a w x h block of pixels at (x, y). pixels holds two bytes
// per pixel, high byte first, in row-major order.
//
// The rectangle must fit the panel; it is checked before anything is sent.
func (d *Dev) DrawImage(x, y, w, h int, pixels []byte) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: empty %dx%d image", ErrOutOfBounds, w, h)
	}
	if err := d.checkWindow(x, y, x+w-1, y+h-1); err != nil {
		return err
	}
	if len(pixels) != 2*w*h {
		return fmt.Errorf("%w: %dx%d needs %d bytes, got %d", ErrPixelCount, w, h, 2*w*h, len(pixels))
	}
	eh := errorHandler{d: d}
	setWindow(&eh, d.opts.Orientation, x, y, x+w-1, y+h-1)
	eh.sendData(pixels)
	return eh.result()
}

// Draw implements display.Drawer.
//
// It draws synchronously. An *image565.Image whose rows are contiguous over
// the destination is sent as is, anything else is converted first.
func (d *Dev) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	// Clip to the panel, moving the source point along.
	c := r.Intersect(d.rect)
	if c.Empty() {
		return nil
	}
	sp = sp.Add(c.Min.Sub(r.Min))
	w, h := c.Dx(), c.Dy()
	if img, ok := src.(*image565.Image); ok {
		sr := image.Rectangle{Min: sp, Max: sp.Add(c.Size())}
		if sr.In(img.Rect) && sr.Min.X == img.Rect.Min.X && img.Stride == 2*w {
			o := img.PixOffset(sp.X, sp.Y)
			return d.DrawImage(c.Min.X, c.Min.Y, w, h, img.Pix[o:o+2*w*h])
		}
	}
	buf := image565.New(image.Rect(0, 0, w, h))
	draw.Draw(buf, buf.Rect, src, sp, draw.Src)
	return d.DrawImage(c.Min.X, c.Min.Y, w, h, buf.Pix)
}

// Halt implements conn.Resource. It turns the panel off; Init turns it back
// on.
func (d *Dev) Halt() error {
	eh := errorHandler{d: d}
	eh.sendCommand(displayOff)
	return eh.result()
}

var _ display.Drawer = &Dev{}
