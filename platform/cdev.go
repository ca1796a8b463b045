// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package platform

import (
	"fmt"
	"sort"
	"sync"

	"github.com/go-logr/logr"
	"github.com/warthog618/go-gpiocdev"
	"periph.io/x/conn/v3/gpio"
)

// RadxaZero3W maps the physical 40-pin header of the RK3566 Radxa ZERO 3W to
// (gpiochip, line offset) pairs.
var RadxaZero3W = map[int]Locator{
	3: {Chip: 1, Offset: 0}, 5: {Chip: 1, Offset: 1}, 7: {Chip: 3, Offset: 20}, 8: {Chip: 0, Offset: 25},
	10: {Chip: 0, Offset: 24}, 11: {Chip: 3, Offset: 1}, 12: {Chip: 3, Offset: 3}, 13: {Chip: 3, Offset: 2},
	15: {Chip: 3, Offset: 8}, 16: {Chip: 3, Offset: 9}, 18: {Chip: 3, Offset: 10}, 19: {Chip: 4, Offset: 19},
	21: {Chip: 4, Offset: 21}, 22: {Chip: 3, Offset: 17}, 23: {Chip: 4, Offset: 18}, 24: {Chip: 4, Offset: 22},
	26: {Chip: 4, Offset: 25}, 27: {Chip: 4, Offset: 10}, 28: {Chip: 4, Offset: 11}, 29: {Chip: 3, Offset: 11},
	31: {Chip: 3, Offset: 12}, 32: {Chip: 3, Offset: 18}, 33: {Chip: 3, Offset: 19}, 35: {Chip: 3, Offset: 4},
	36: {Chip: 3, Offset: 7}, 37: {Chip: 1, Offset: 4}, 38: {Chip: 3, Offset: 6}, 40: {Chip: 3, Offset: 5},
}

// Cdev is the GPIO character device backend. Chips are opened on first use
// and kept until Close.
type Cdev struct {
	pins     map[int]Locator
	consumer string
	log      logr.Logger

	mu    sync.Mutex
	chips map[int]*gpiocdev.Chip
	lines map[int]*cdevLine
}

// NewCdev returns a backend resolving pins through table. consumer is the
// label the kernel shows for requested lines.
func NewCdev(table map[int]Locator, consumer string, log logr.Logger) *Cdev {
	return &Cdev{
		pins:     table,
		consumer: consumer,
		log:      log,
		chips:    map[int]*gpiocdev.Chip{},
		lines:    map[int]*cdevLine{},
	}
}

func (c *Cdev) String() string {
	return "gpiocdev"
}

// Resolve implements Backend.
func (c *Cdev) Resolve(pin int) (Locator, error) {
	loc, ok := c.pins[pin]
	if !ok {
		return Locator{}, fmt.Errorf("%w: physical pin %d is not in the pin map", ErrPinUnmapped, pin)
	}
	return loc, nil
}

// Acquire implements Backend.
//
// Input lines are requested with the bias matching pull. If the kernel
// refuses to set the bias, the line is requested again without it and an
// external resistor is assumed.
func (c *Cdev) Acquire(pin int, dir Direction, pull gpio.Pull) (Line, error) {
	loc, err := c.Resolve(pin)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.lines[pin]; ok {
		return nil, fmt.Errorf("%w: %s is already acquired", ErrLineRequest, loc)
	}
	chip, err := c.chip(loc.Chip)
	if err != nil {
		return nil, err
	}
	var l *gpiocdev.Line
	if dir == Output {
		l, err = chip.RequestLine(loc.Offset, gpiocdev.AsOutput(0), gpiocdev.WithConsumer(c.consumer))
	} else {
		consumer := gpiocdev.WithConsumer(c.consumer + "-in")
		if bias := biasOption(pull); bias != nil {
			l, err = chip.RequestLine(loc.Offset, gpiocdev.AsInput, bias, consumer)
			if err != nil {
				c.log.Info("bias not supported, relying on external resistor", "pin", pin, "err", err)
			}
		}
		if l == nil {
			l, err = chip.RequestLine(loc.Offset, gpiocdev.AsInput, consumer)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLineRequest, loc, err)
	}
	cl := &cdevLine{pin: pin, loc: loc, dir: dir, l: l}
	c.lines[pin] = cl
	c.log.V(1).Info("acquired line", "pin", pin, "line", loc.String(), "dir", dir)
	return cl, nil
}

func (c *Cdev) chip(n int) (*gpiocdev.Chip, error) {
	if ch, ok := c.chips[n]; ok {
		return ch, nil
	}
	name := fmt.Sprintf("gpiochip%d", n)
	ch, err := gpiocdev.NewChip(name, gpiocdev.WithConsumer(c.consumer))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrChipOpen, name, err)
	}
	c.chips[n] = ch
	return ch, nil
}

func biasOption(pull gpio.Pull) gpiocdev.LineReqOption {
	switch pull {
	case gpio.PullUp:
		return gpiocdev.WithPullUp
	case gpio.PullDown:
		return gpiocdev.WithPullDown
	case gpio.Float:
		return gpiocdev.WithBiasDisabled
	}
	return nil
}

// Release implements Backend.
func (c *Cdev) Release(l Line) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.release(l.Pin())
}

func (c *Cdev) release(pin int) error {
	l, ok := c.lines[pin]
	if !ok {
		return fmt.Errorf("%w: physical pin %d", ErrNotOwned, pin)
	}
	delete(c.lines, pin)
	return l.l.Close()
}

// Close implements Backend.
func (c *Cdev) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var first error
	for pin := range c.lines {
		if err := c.release(pin); err != nil && first == nil {
			first = err
		}
	}
	nums := make([]int, 0, len(c.chips))
	for n := range c.chips {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	for _, n := range nums {
		if err := c.chips[n].Close(); err != nil && first == nil {
			first = err
		}
		delete(c.chips, n)
	}
	return first
}

type cdevLine struct {
	pin int
	loc Locator
	dir Direction
	l   *gpiocdev.Line
}

func (l *cdevLine) String() string {
	return fmt.Sprintf("P1_%d(%s, %s)", l.pin, l.loc, l.dir)
}

func (l *cdevLine) Pin() int {
	return l.pin
}

func (l *cdevLine) Out(v gpio.Level) error {
	n := 0
	if v {
		n = 1
	}
	return l.l.SetValue(n)
}

func (l *cdevLine) Read() (gpio.Level, error) {
	v, err := l.l.Value()
	if err != nil {
		return gpio.Low, err
	}
	return v != 0, nil
}

var _ Backend = &Cdev{}
var _ Line = &cdevLine{}
