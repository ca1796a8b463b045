// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package whisplay

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GermanBionicSystems/whisplay/button"
	"github.com/GermanBionicSystems/whisplay/platform"
	"github.com/GermanBionicSystems/whisplay/rgbled"
	"github.com/GermanBionicSystems/whisplay/st7789"
	"github.com/GermanBionicSystems/whisplay/st7789/image565"
	"github.com/go-logr/logr"
	"go.uber.org/multierr"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
)

// Header pin numbers of the HAT.
const (
	PinDC        = 13
	PinReset     = 7
	PinBacklight = 15
	PinRed       = 22
	PinGreen     = 18
	PinBlue      = 16
	PinButton    = 11
)

var (
	// ErrConfig is returned by New when the platform or a pin can't be
	// mapped. There is nothing to retry.
	ErrConfig = errors.New("whisplay: configuration error")
	// ErrResource is returned by New when a GPIO line or the SPI port can't
	// be opened.
	ErrResource = errors.New("whisplay: resource error")
	// ErrBrightness is returned for a backlight brightness outside 0-100.
	ErrBrightness = errors.New("whisplay: brightness must be within 0 and 100")
	// ErrClosed is returned by every operation that returns an error once
	// Cleanup was called.
	ErrClosed = errors.New("whisplay: board is closed")
)

// BacklightMode selects how the backlight line is driven.
type BacklightMode int

const (
	// PWM dims the backlight with a PWM channel.
	PWM BacklightMode = iota
	// Switch turns the backlight fully on or off.
	Switch
)

func (m BacklightMode) String() string {
	if m == Switch {
		return "Switch"
	}
	return "PWM"
}

// Opts defines the options of a Board. The zero value of every field selects
// a default.
type Opts struct {
	// Platform defaults to platform.Detect().
	Platform *platform.Config
	// Backend defaults to platform.Open(Platform). The Board owns it and
	// closes it in Cleanup.
	Backend platform.Backend
	// SPI defaults to spireg.Open(Platform.SPIPort). The Board owns it and
	// closes it in Cleanup.
	SPI spi.PortCloser
	// Orientation of the panel.
	Orientation st7789.Orientation
	// Logger defaults to discarding.
	Logger logr.Logger
	// RGBFrequency is the PWM frequency of the LED channels.
	RGBFrequency physic.Frequency
	// BacklightFrequency is the PWM frequency of the backlight.
	BacklightFrequency physic.Frequency
	// ButtonInterval is the polling period when the button has no edge
	// detection.
	ButtonInterval time.Duration
}

// DefaultOpts is the recommended configuration.
var DefaultOpts = Opts{
	Orientation:        st7789.PortraitFlipped,
	RGBFrequency:       100 * physic.Hertz,
	BacklightFrequency: physic.KiloHertz,
	ButtonInterval:     button.DefaultInterval,
}

// Board is the Whisplay HAT: the LCD, its backlight, the RGB LED and the
// button.
//
// Drawing is not serialized: only one goroutine may draw at a time. The LED,
// backlight and button methods are safe for concurrent use. Cleanup waits for
// the draws in flight and stops a running fade.
type Board struct {
	cfg  *platform.Config
	opts Opts
	log  logr.Logger

	backend platform.Backend
	port    spi.PortCloser
	lcd     *st7789.Dev
	btn     *button.Watcher
	led     *rgbled.Dev
	rgb     [3]pwm

	dc, rst, bl, red, green, blue, key platform.Line

	closed atomic.Bool
	// life is held for reading while the LCD or the LED is used.
	life sync.RWMutex
	// fades is canceled by Cleanup.
	fades      context.Context
	stopFades  context.CancelFunc
	mu         sync.Mutex
	mode       BacklightMode
	brightness int
	backlight  pwm
}

// New detects the platform, takes every line, initializes the panel and
// clears it.
//
// On failure every resource taken so far is released.
func New(opts *Opts) (*Board, error) {
	b := &Board{opts: *opts, log: opts.Logger}
	b.fades, b.stopFades = context.WithCancel(context.Background())
	if b.log.GetSink() == nil {
		b.log = logr.Discard()
	}
	if b.opts.RGBFrequency == 0 {
		b.opts.RGBFrequency = DefaultOpts.RGBFrequency
	}
	if b.opts.BacklightFrequency == 0 {
		b.opts.BacklightFrequency = DefaultOpts.BacklightFrequency
	}
	if b.opts.ButtonInterval == 0 {
		b.opts.ButtonInterval = DefaultOpts.ButtonInterval
	}
	if err := b.init(); err != nil {
		b.Cleanup()
		return nil, err
	}
	return b, nil
}

func (b *Board) init() error {
	b.cfg = b.opts.Platform
	if b.cfg == nil {
		c, err := platform.Detect()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrConfig, err)
		}
		b.cfg = c
	}
	b.log.Info("platform", "config", b.cfg.String())
	b.backend = b.opts.Backend
	if b.backend == nil {
		be, err := platform.Open(b.cfg, b.log)
		if err != nil {
			if errors.Is(err, platform.ErrUnsupportedPlatform) {
				return fmt.Errorf("%w: %w", ErrConfig, err)
			}
			return fmt.Errorf("%w: %w", ErrResource, err)
		}
		b.backend = be
	}

	// Map every pin before taking anything.
	for _, pin := range []int{PinDC, PinReset, PinBacklight, PinRed, PinGreen, PinBlue, PinButton} {
		l, err := b.backend.Resolve(pin)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrConfig, err)
		}
		b.log.V(1).Info("pin", "pin", pin, "line", l.String())
	}
	outputs := []struct {
		pin  int
		line *platform.Line
	}{
		{PinDC, &b.dc},
		{PinReset, &b.rst},
		{PinBacklight, &b.bl},
		{PinRed, &b.red},
		{PinGreen, &b.green},
		{PinBlue, &b.blue},
	}
	for _, o := range outputs {
		l, err := b.backend.Acquire(o.pin, platform.Output, gpio.Float)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrResource, err)
		}
		*o.line = l
	}
	key, err := b.backend.Acquire(PinButton, platform.Input, gpio.PullUp)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrResource, err)
	}
	b.key = key
	if err := b.bl.Out(gpio.Low); err != nil {
		return fmt.Errorf("%w: backlight: %w", ErrResource, err)
	}

	for i, l := range []platform.Line{b.red, b.green, b.blue} {
		p, err := b.newPWM(l, b.opts.RGBFrequency)
		if err != nil {
			return err
		}
		// 100% is off.
		p.Start(100)
		b.rgb[i] = p
	}
	b.led = rgbled.New(b.rgb[0], b.rgb[1], b.rgb[2])

	bo := button.DefaultOpts
	bo.Interval = b.opts.ButtonInterval
	bo.Logger = b.log.WithName("button")
	if e, ok := b.key.(button.EdgeInput); ok && b.cfg.Interrupts {
		b.btn, err = button.NewInterrupt(e, &bo)
	} else {
		b.btn, err = button.NewPoller(b.key, &bo)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrResource, err)
	}

	b.port = b.opts.SPI
	if b.port == nil {
		if b.port, err = spireg.Open(b.cfg.SPIPort); err != nil {
			return fmt.Errorf("%w: spi %q: %w", ErrResource, b.cfg.SPIPort, err)
		}
	}
	b.lcd, err = st7789.New(b.port, b.dc, b.rst, &st7789.Opts{Orientation: b.opts.Orientation, MaxSpeed: b.cfg.SPIMaxSpeed})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrResource, err)
	}

	if b.cfg.Kind != platform.Simulated {
		ok, err := platform.HasSoundCard(platform.SoundCardsPath, "wm8960")
		if err != nil {
			b.log.V(1).Info("sound card probe failed", "err", err)
		} else if !ok {
			b.log.Info("wm8960 sound card not found; audio is unavailable")
		} else {
			b.log.V(1).Info("wm8960 sound card found")
		}
	}

	if !b.cfg.BacklightPWM {
		b.mode = Switch
	}
	if err := b.SetBacklight(0); err != nil {
		return err
	}
	if err := b.lcd.Init(); err != nil {
		return err
	}
	return b.lcd.FillScreen(image565.Black)
}

func (b *Board) String() string {
	return fmt.Sprintf("whisplay.Board{%s, %s}", b.cfg, b.lcd)
}

// Platform returns the platform the board runs on.
func (b *Board) Platform() *platform.Config {
	return b.cfg
}

// Display returns the LCD, for use as a display.Drawer.
func (b *Board) Display() *st7789.Dev {
	return b.lcd
}

// use calls fn unless the board is closed. Cleanup waits for fn to return.
func (b *Board) use(fn func() error) error {
	b.life.RLock()
	defer b.life.RUnlock()
	if b.closed.Load() {
		return ErrClosed
	}
	return fn()
}

// DrawPixel draws one pixel; see st7789.Dev.DrawPixel.
func (b *Board) DrawPixel(x, y int, c image565.Color) error {
	return b.use(func() error { return b.lcd.DrawPixel(x, y, c) })
}

// DrawLine draws a line; see st7789.Dev.DrawLine.
func (b *Board) DrawLine(x0, y0, x1, y1 int, c image565.Color) error {
	return b.use(func() error { return b.lcd.DrawLine(x0, y0, x1, y1, c) })
}

// FillScreen paints the panel with c.
func (b *Board) FillScreen(c image565.Color) error {
	return b.use(func() error { return b.lcd.FillScreen(c) })
}

// DrawImage writes raw RGB565 pixels; see st7789.Dev.DrawImage.
func (b *Board) DrawImage(x, y, w, h int, pixels []byte) error {
	return b.use(func() error { return b.lcd.DrawImage(x, y, w, h, pixels) })
}

// Draw draws src at r; see st7789.Dev.Draw.
func (b *Board) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	return b.use(func() error { return b.lcd.Draw(r, src, sp) })
}

// SetBacklight sets the brightness in percent. In Switch mode any non zero
// brightness turns the backlight fully on.
func (b *Board) SetBacklight(brightness int) error {
	if brightness < 0 || brightness > 100 {
		return fmt.Errorf("%w: %d", ErrBrightness, brightness)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed.Load() {
		return ErrClosed
	}
	b.brightness = brightness
	return b.applyBacklight()
}

// Backlight returns the brightness and the mode last set.
func (b *Board) Backlight() (int, BacklightMode) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.brightness, b.mode
}

// SetBacklightMode switches between dimming and on/off control. Switch mode
// turns the backlight fully on; PWM mode restores the last brightness.
func (b *Board) SetBacklightMode(m BacklightMode) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed.Load() {
		return ErrClosed
	}
	b.mode = m
	if m == PWM {
		return b.applyBacklight()
	}
	if b.backlight != nil {
		if err := b.backlight.Stop(); err != nil {
			b.log.Error(err, "stopping backlight PWM")
		}
		b.backlight = nil
	}
	b.brightness = 100
	return b.bl.Out(gpio.Low)
}

// applyBacklight must be called with mu held.
func (b *Board) applyBacklight() error {
	if b.mode == Switch {
		// Active low.
		if b.brightness == 0 {
			return b.bl.Out(gpio.High)
		}
		return b.bl.Out(gpio.Low)
	}
	duty := float64(100 - b.brightness)
	if b.backlight == nil {
		p, err := b.newPWM(b.bl, b.opts.BacklightFrequency)
		if err != nil {
			return err
		}
		p.Start(duty)
		b.backlight = p
		return nil
	}
	b.backlight.SetDuty(duty)
	return nil
}

// SetRGB sets the LED color immediately. It does nothing once the board is
// closed.
func (b *Board) SetRGB(r, g, bl uint8) {
	_ = b.use(func() error {
		b.led.Set(r, g, bl)
		return nil
	})
}

// SetRGBFade fades the LED to a color over d. It blocks until done or ctx
// is canceled. A SetRGB or another fade started meanwhile stops it with
// rgbled.ErrSuperseded; Cleanup stops it with ErrClosed.
func (b *Board) SetRGBFade(ctx context.Context, r, g, bl uint8, d time.Duration) error {
	if b.closed.Load() {
		return ErrClosed
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer context.AfterFunc(b.fades, cancel)()
	err := b.led.Fade(ctx, r, g, bl, d)
	if err != nil && b.closed.Load() {
		return ErrClosed
	}
	return err
}

// RGB returns the LED color last set.
func (b *Board) RGB() color.RGBA {
	return b.led.Color()
}

// ButtonPressed returns the button state last observed.
func (b *Board) ButtonPressed() bool {
	return b.btn.IsPressed()
}

// OnButtonPress sets the callback invoked when the button is pressed. It
// runs on the button goroutine and must not block.
func (b *Board) OnButtonPress(cb button.Callback) {
	b.btn.OnPress(cb)
}

// OnButtonRelease sets the callback invoked when the button is released. It
// runs on the button goroutine and must not block.
func (b *Board) OnButtonRelease(cb button.Callback) {
	b.btn.OnRelease(cb)
}

// Cleanup stops every goroutine, turns the backlight and the LED off, then
// releases every line and the SPI port.
//
// It is the only shutdown path and may be called any number of times. It
// completes on a best effort basis: failures are logged, not returned.
func (b *Board) Cleanup() {
	if !b.closed.CompareAndSwap(false, true) {
		return
	}
	var err error
	// First, so that a callback using the board can't block on it.
	if b.btn != nil {
		err = multierr.Append(err, b.btn.Close())
	}
	b.stopFades()
	b.life.Lock()
	defer b.life.Unlock()
	if b.led != nil {
		// Ends a fade still between two steps.
		b.led.Set(0, 0, 0)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range append(b.rgb[:], b.backlight) {
		if p != nil {
			err = multierr.Append(err, p.Stop())
		}
	}
	b.backlight = nil
	// Active low: High is off.
	for _, l := range []platform.Line{b.bl, b.red, b.green, b.blue} {
		if l != nil {
			err = multierr.Append(err, l.Out(gpio.High))
		}
	}
	if b.backend != nil {
		for _, l := range []platform.Line{b.dc, b.rst, b.bl, b.red, b.green, b.blue, b.key} {
			if l != nil {
				err = multierr.Append(err, b.backend.Release(l))
			}
		}
		err = multierr.Append(err, b.backend.Close())
	}
	if b.port != nil {
		err = multierr.Append(err, b.port.Close())
	}
	for _, e := range multierr.Errors(err) {
		b.log.Error(e, "cleanup")
	}
}
