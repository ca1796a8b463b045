// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package platform

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-logr/logr"
	"github.com/warthog618/go-gpiocdev"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
	"periph.io/x/host/v3/rpi"
)

// ErrUnsupportedPlatform is returned by Detect when neither a Raspberry Pi
// nor a Radxa board is found.
var ErrUnsupportedPlatform = errors.New("platform: no supported platform found")

// Kind is a family of boards.
type Kind string

// Supported kinds.
const (
	RaspberryPi Kind = "rpi"
	Radxa       Kind = "radxa"
	// Simulated has no hardware behind it. It is only used with a test
	// backend.
	Simulated Kind = "sim"
)

// Paths probed by Detect and HasSoundCard.
const (
	ModelPath      = "/proc/device-tree/model"
	SoundCardsPath = "/proc/asound/cards"
)

// Config is the result of platform detection. It is plain data so it can be
// built by hand in tests or forced from the command line.
type Config struct {
	Kind Kind
	// Model is the device tree model string, or a placeholder when the
	// platform was found by probing.
	Model string
	// SPIPort is the spireg name of the bus the LCD is wired to.
	SPIPort string
	// SPIMaxSpeed is the highest clock the SoC SPI controller accepts.
	SPIMaxSpeed physic.Frequency
	// Interrupts is true when input lines support edge detection.
	Interrupts bool
	// BacklightPWM is false on boards where the backlight must be driven as
	// a plain on/off switch.
	BacklightPWM bool
	// HardwarePWM makes the board use the line's PWM peripheral instead of
	// the software PWM engine, when the line supports it.
	HardwarePWM bool
}

func (c *Config) String() string {
	return fmt.Sprintf("%s{%q, %s @ %s}", c.Kind, c.Model, c.SPIPort, c.SPIMaxSpeed)
}

// New returns the default configuration for a kind of board.
func New(k Kind, model string) (*Config, error) {
	switch k {
	case RaspberryPi:
		return &Config{
			Kind:        k,
			Model:       model,
			SPIPort:     "SPI0.0",
			SPIMaxSpeed: 100 * physic.MegaHertz,
			Interrupts:  true,
			// The first Pi Zero can't keep up with the backlight PWM.
			BacklightPWM: !(strings.Contains(model, "Zero") && !strings.Contains(model, "2")),
		}, nil
	case Radxa:
		return &Config{
			Kind:         k,
			Model:        model,
			SPIPort:      "SPI3.0",
			SPIMaxSpeed:  48 * physic.MegaHertz,
			BacklightPWM: true,
		}, nil
	case Simulated:
		return &Config{
			Kind:         k,
			Model:        model,
			SPIMaxSpeed:  48 * physic.MegaHertz,
			Interrupts:   true,
			BacklightPWM: true,
		}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedPlatform, k)
}

// DetectModel maps a device tree model string to a Config. It returns
// ErrUnsupportedPlatform if the model is not recognized.
func DetectModel(model string) (*Config, error) {
	model = strings.TrimSpace(strings.Trim(model, "\x00"))
	switch {
	case strings.Contains(model, "Raspberry"):
		return New(RaspberryPi, model)
	case strings.Contains(model, "Radxa"):
		return New(Radxa, model)
	}
	return nil, fmt.Errorf("%w: model %q", ErrUnsupportedPlatform, model)
}

// Detect identifies the board from the device tree, then falls back to
// probing for a Raspberry Pi and for GPIO character devices.
func Detect() (*Config, error) {
	if b, err := os.ReadFile(ModelPath); err == nil {
		if c, err := DetectModel(string(b)); err == nil {
			return c, nil
		}
	}
	if rpi.Present() {
		return New(RaspberryPi, "Unknown Raspberry Pi")
	}
	if len(gpiocdev.Chips()) != 0 {
		return New(Radxa, "Unknown Radxa")
	}
	return nil, ErrUnsupportedPlatform
}

// Open initializes the host drivers and returns the GPIO backend for c.
func Open(c *Config, log logr.Logger) (Backend, error) {
	switch c.Kind {
	case RaspberryPi:
		if _, err := host.Init(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrChipOpen, err)
		}
		return NewPeriph(log), nil
	case Radxa:
		// host.Init still registers the spidev ports.
		if _, err := host.Init(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrChipOpen, err)
		}
		return NewCdev(RadxaZero3W, "whisplay", log), nil
	}
	return nil, fmt.Errorf("%w: no hardware backend for %q", ErrUnsupportedPlatform, c.Kind)
}

// HasSoundCard reports whether a sound card whose description contains
// name is listed in the ALSA cards file at path.
func HasSoundCard(path, name string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()
	return hasSoundCard(f, name)
}

func hasSoundCard(r io.Reader, name string) (bool, error) {
	name = strings.ToLower(name)
	s := bufio.NewScanner(r)
	for s.Scan() {
		if strings.Contains(strings.ToLower(s.Text()), name) {
			return true, nil
		}
	}
	return false, s.Err()
}
