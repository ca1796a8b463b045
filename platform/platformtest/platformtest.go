// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package platformtest is meant to be used to test drivers using the
// platform package without hardware.
//
// Each pin is backed by a periph gpiotest.Pin, so levels written by the code
// under test can be inspected and input edges can be injected through
// EdgesChan.
package platformtest

import (
	"fmt"
	"sync"
	"time"

	"github.com/GermanBionicSystems/whisplay/platform"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"
)

// Backend is a fake platform.Backend.
type Backend struct {
	// Polled makes input lines lack the edge capability, like the Radxa.
	Polled bool
	// AcquireErr is returned by Acquire when set.
	AcquireErr error

	mu       sync.Mutex
	pins     map[int]*gpiotest.Pin
	owned    map[int]platform.Line
	released []int
	closed   int
}

// New returns a Backend where every pin listed resolves.
func New(pins ...int) *Backend {
	b := &Backend{pins: map[int]*gpiotest.Pin{}, owned: map[int]platform.Line{}}
	for _, n := range pins {
		b.pins[n] = &gpiotest.Pin{
			N:         fmt.Sprintf("P1_%d", n),
			Num:       n,
			EdgesChan: make(chan gpio.Level, 16),
		}
	}
	return b
}

func (b *Backend) String() string {
	return "platformtest"
}

// Pin returns the fake pin behind a header pin number.
func (b *Backend) Pin(n int) *gpiotest.Pin {
	return b.pins[n]
}

// Owned reports whether pin is currently acquired.
func (b *Backend) Owned(pin int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.owned[pin]
	return ok
}

// Released returns the pins released so far, in order.
func (b *Backend) Released() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]int(nil), b.released...)
}

// Closed returns how many times Close was called.
func (b *Backend) Closed() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Resolve implements platform.Backend.
func (b *Backend) Resolve(pin int) (platform.Locator, error) {
	p, ok := b.pins[pin]
	if !ok {
		return platform.Locator{}, fmt.Errorf("%w: P1_%d", platform.ErrPinUnmapped, pin)
	}
	return platform.Locator{Name: p.N}, nil
}

// Acquire implements platform.Backend.
func (b *Backend) Acquire(pin int, dir platform.Direction, pull gpio.Pull) (platform.Line, error) {
	if _, err := b.Resolve(pin); err != nil {
		return nil, err
	}
	if b.AcquireErr != nil {
		return nil, b.AcquireErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.owned[pin]; ok {
		return nil, fmt.Errorf("%w: P1_%d is already acquired", platform.ErrLineRequest, pin)
	}
	p := b.pins[pin]
	var l platform.Line
	if dir == platform.Output {
		if err := p.Out(gpio.Low); err != nil {
			return nil, err
		}
		l = &PWMLine{Line{pin: pin, P: p}}
	} else if b.Polled {
		l = &Line{pin: pin, P: p}
	} else {
		l = &EdgeLine{Line{pin: pin, P: p}}
	}
	b.owned[pin] = l
	return l, nil
}

// Release implements platform.Backend.
func (b *Backend) Release(l platform.Line) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.owned[l.Pin()]; !ok {
		return fmt.Errorf("%w: P1_%d", platform.ErrNotOwned, l.Pin())
	}
	delete(b.owned, l.Pin())
	b.released = append(b.released, l.Pin())
	return nil
}

// Close implements platform.Backend.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for pin := range b.owned {
		delete(b.owned, pin)
		b.released = append(b.released, pin)
	}
	b.closed++
	return nil
}

// Line is a fake line without optional capabilities.
type Line struct {
	pin int
	P   *gpiotest.Pin
}

func (l *Line) String() string {
	return l.P.String()
}

// Pin implements platform.Line.
func (l *Line) Pin() int {
	return l.pin
}

// Out implements platform.Line.
func (l *Line) Out(v gpio.Level) error {
	return l.P.Out(v)
}

// Read implements platform.Line.
func (l *Line) Read() (gpio.Level, error) {
	return l.P.Read(), nil
}

// EdgeLine is a fake input line with edge detection.
type EdgeLine struct {
	Line
}

// WaitForEdge implements platform.EdgeLine.
func (l *EdgeLine) WaitForEdge(timeout time.Duration) bool {
	return l.P.WaitForEdge(timeout)
}

// PWMLine is a fake output line with a PWM peripheral.
type PWMLine struct {
	Line
}

// PWM implements platform.PWMLine.
func (l *PWMLine) PWM(duty gpio.Duty, f physic.Frequency) error {
	return l.P.PWM(duty, f)
}

var _ platform.Backend = &Backend{}
var _ platform.EdgeLine = &EdgeLine{}
var _ platform.PWMLine = &PWMLine{}
