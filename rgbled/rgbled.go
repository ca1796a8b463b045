// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package rgbled controls a common anode RGB LED through three PWM channels.
//
// The LED is wired active low: a duty cycle of 100% turns a channel off.
package rgbled

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"sync"
	"time"
)

// FadeSteps is the number of interpolation steps of Fade.
const FadeSteps = 20

// ErrSuperseded is returned by Fade when Set or another Fade changed the
// color before the fade completed.
var ErrSuperseded = errors.New("rgbled: fade superseded")

// Channel is a PWM output with a duty cycle in percent.
type Channel interface {
	SetDuty(percent float64)
}

// Dev is an RGB LED.
type Dev struct {
	r, g, b Channel

	mu  sync.Mutex
	cur color.RGBA
	// gen is bumped by every Set and Fade; a fade stops once it changed.
	gen uint64
}

// New returns a Dev driving the three channels. The LED is assumed off,
// which is the state Set(0, 0, 0) produces.
func New(r, g, b Channel) *Dev {
	return &Dev{r: r, g: g, b: b, cur: color.RGBA{A: 255}}
}

func (d *Dev) String() string {
	c := d.Color()
	return fmt.Sprintf("rgbled.Dev{#%02x%02x%02x}", c.R, c.G, c.B)
}

// Duty returns the active low duty cycle for an 8 bits intensity.
func Duty(v uint8) float64 {
	return 100 - float64(v)/255*100
}

// Set changes the color immediately.
func (d *Dev) Set(r, g, b uint8) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	d.set(r, g, b)
}

func (d *Dev) set(r, g, b uint8) {
	d.r.SetDuty(Duty(r))
	d.g.SetDuty(Duty(g))
	d.b.SetDuty(Duty(b))
	d.cur = color.RGBA{R: r, G: g, B: b, A: 255}
}

// Color returns the last color set.
func (d *Dev) Color() color.RGBA {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cur
}

// Fade moves from the current color to (r, g, b) in FadeSteps linear steps
// spread over duration. The last step is exactly (r, g, b). It returns early
// with ctx.Err() if ctx is done; the color is then left at the last step
// applied.
//
// The lock is only held while a step is applied, so Color reports the
// intermediate colors. A Set or a newer Fade stops the fade, which then
// returns ErrSuperseded.
//
// The interpolation is linear in PWM duty, not in perceived brightness.
func (d *Dev) Fade(ctx context.Context, r, g, b uint8, duration time.Duration) error {
	d.mu.Lock()
	d.gen++
	gen, from := d.gen, d.cur
	d.mu.Unlock()
	delay := duration / FadeSteps
	t := time.NewTimer(delay)
	defer t.Stop()
	for i := 0; i <= FadeSteps; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
				t.Reset(delay)
			}
		}
		if !d.step(gen, lerp(from.R, r, i), lerp(from.G, g, i), lerp(from.B, b, i)) {
			return ErrSuperseded
		}
	}
	return nil
}

// step applies one fade step unless the fade gen was superseded.
func (d *Dev) step(gen uint64, r, g, b uint8) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.gen != gen {
		return false
	}
	d.set(r, g, b)
	return true
}

// lerp returns step i of FadeSteps between from and to, clamped to a byte.
func lerp(from, to uint8, i int) uint8 {
	if i >= FadeSteps {
		return to
	}
	v := float64(from) + (float64(to)-float64(from))*float64(i)/FadeSteps
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(v)
}
