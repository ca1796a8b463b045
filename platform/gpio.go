// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package platform

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

var (
	// ErrPinUnmapped is returned when a physical header pin has no locator
	// on the current platform. It is a configuration error.
	ErrPinUnmapped = errors.New("platform: pin is not mapped")
	// ErrChipOpen is returned when a GPIO chip cannot be opened.
	ErrChipOpen = errors.New("platform: cannot open gpio chip")
	// ErrLineRequest is returned when a line on an open chip cannot be
	// requested, usually because another process owns it.
	ErrLineRequest = errors.New("platform: cannot request gpio line")
	// ErrNotOwned is returned when releasing a line that is not held.
	ErrNotOwned = errors.New("platform: line is not owned")
)

// Direction of a GPIO line.
type Direction int

// Line directions.
const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	if d == Output {
		return "Out"
	}
	return "In"
}

// Locator identifies a physical line on a platform.
//
// On the Raspberry Pi only Name is set. On the Radxa, Chip and Offset are
// set and Name is the character device name of the chip.
type Locator struct {
	Name   string
	Chip   int
	Offset int
}

func (l Locator) String() string {
	if l.Name != "" && l.Chip == 0 && l.Offset == 0 {
		return l.Name
	}
	return fmt.Sprintf("gpiochip%d:%d", l.Chip, l.Offset)
}

// Line is an owned handle to one GPIO line.
//
// A Line is never shared: each PWM channel and the button watcher use their
// own, so implementations don't need locking beyond what the kernel does.
type Line interface {
	fmt.Stringer
	// Pin returns the physical header pin number.
	Pin() int
	// Out drives an output line.
	Out(l gpio.Level) error
	// Read returns the current level of the line.
	Read() (gpio.Level, error)
}

// EdgeLine is implemented by input lines that can block on an edge
// interrupt.
type EdgeLine interface {
	Line
	// WaitForEdge waits for the next edge or for timeout. It returns true if
	// an edge was seen.
	WaitForEdge(timeout time.Duration) bool
}

// PWMLine is implemented by output lines backed by a PWM peripheral.
type PWMLine interface {
	Line
	PWM(duty gpio.Duty, f physic.Frequency) error
}

// Backend hands out Lines for physical header pins.
type Backend interface {
	fmt.Stringer
	// Resolve maps a physical header pin to its locator. It has no side
	// effect.
	Resolve(pin int) (Locator, error)
	// Acquire takes ownership of a pin. Output lines start Low.
	Acquire(pin int, dir Direction, pull gpio.Pull) (Line, error)
	// Release gives a line back.
	Release(l Line) error
	// Close releases every line still owned and the underlying chips.
	Close() error
}
