// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package platform

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
)

// Periph is the Raspberry Pi backend. Pins are looked up in the periph
// registry by their header name, so the locator is the pin number itself.
type Periph struct {
	log logr.Logger

	mu    sync.Mutex
	lines map[int]*periphLine
}

// NewPeriph returns a backend over the periph pin registry. host.Init must
// have been called.
func NewPeriph(log logr.Logger) *Periph {
	return &Periph{log: log, lines: map[int]*periphLine{}}
}

func (p *Periph) String() string {
	return "periph"
}

// Resolve implements Backend.
func (p *Periph) Resolve(pin int) (Locator, error) {
	name := fmt.Sprintf("P1_%d", pin)
	if gpioreg.ByName(name) == nil {
		return Locator{}, fmt.Errorf("%w: %s", ErrPinUnmapped, name)
	}
	return Locator{Name: name}, nil
}

// Acquire implements Backend.
//
// Input lines have edge detection enabled on both edges. Edges are reported
// raw; debouncing is left to the consumer.
func (p *Periph) Acquire(pin int, dir Direction, pull gpio.Pull) (Line, error) {
	loc, err := p.Resolve(pin)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.lines[pin]; ok {
		return nil, fmt.Errorf("%w: %s is already acquired", ErrLineRequest, loc)
	}
	pp := gpioreg.ByName(loc.Name)
	if dir == Output {
		if err := pp.Out(gpio.Low); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLineRequest, loc, err)
		}
	} else {
		if err := pp.In(pull, gpio.BothEdges); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLineRequest, loc, err)
		}
	}
	l := &periphLine{pin: pin, dir: dir, p: pp}
	p.lines[pin] = l
	p.log.V(1).Info("acquired line", "pin", pin, "name", loc.Name, "dir", dir)
	return l, nil
}

// Release implements Backend.
func (p *Periph) Release(l Line) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.release(l.Pin())
}

func (p *Periph) release(pin int) error {
	l, ok := p.lines[pin]
	if !ok {
		return fmt.Errorf("%w: P1_%d", ErrNotOwned, pin)
	}
	delete(p.lines, pin)
	if err := l.p.Halt(); err != nil {
		return err
	}
	// Leave the pin floating like the kernel default.
	return l.p.In(gpio.Float, gpio.NoEdge)
}

// Close implements Backend.
func (p *Periph) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var first error
	for pin := range p.lines {
		if err := p.release(pin); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type periphLine struct {
	pin int
	dir Direction
	p   gpio.PinIO
}

func (l *periphLine) String() string {
	return fmt.Sprintf("%s(%s)", l.p, l.dir)
}

func (l *periphLine) Pin() int {
	return l.pin
}

func (l *periphLine) Out(v gpio.Level) error {
	return l.p.Out(v)
}

func (l *periphLine) Read() (gpio.Level, error) {
	return l.p.Read(), nil
}

func (l *periphLine) WaitForEdge(timeout time.Duration) bool {
	return l.p.WaitForEdge(timeout)
}

func (l *periphLine) PWM(duty gpio.Duty, f physic.Frequency) error {
	return l.p.PWM(duty, f)
}

var _ Backend = &Periph{}
var _ EdgeLine = &periphLine{}
var _ PWMLine = &periphLine{}
