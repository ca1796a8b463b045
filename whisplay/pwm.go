// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package whisplay

import (
	"fmt"
	"math"

	"github.com/GermanBionicSystems/whisplay/platform"
	"github.com/GermanBionicSystems/whisplay/softpwm"
	"github.com/go-logr/logr"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// pwm is implemented by softpwm.Channel and hwPWM.
type pwm interface {
	Start(duty float64)
	SetDuty(duty float64)
	Stop() error
}

func (b *Board) newPWM(l platform.Line, f physic.Frequency) (pwm, error) {
	if p, ok := l.(platform.PWMLine); ok && b.cfg.HardwarePWM {
		return &hwPWM{line: p, f: f, log: b.log}, nil
	}
	c, err := softpwm.New(l, f)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return c, nil
}

// hwPWM drives a line through the SoC PWM peripheral.
type hwPWM struct {
	line platform.PWMLine
	f    physic.Frequency
	log  logr.Logger
}

func (h *hwPWM) Start(duty float64) {
	h.SetDuty(duty)
}

func (h *hwPWM) SetDuty(duty float64) {
	switch {
	case math.IsNaN(duty) || duty < 0:
		duty = 0
	case duty > 100:
		duty = 100
	}
	d := gpio.Duty(math.Round(duty / 100 * float64(gpio.DutyMax)))
	if err := h.line.PWM(d, h.f); err != nil {
		// SetDuty has no error path; the next call retries.
		h.log.Error(err, "pwm", "line", h.line.String())
	}
}

func (h *hwPWM) Stop() error {
	return h.line.Out(gpio.Low)
}
