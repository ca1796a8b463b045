// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package softpwm generates a PWM signal on a plain GPIO line with timed
// sleeps, for lines that have no PWM peripheral.
//
// The resolution is a fraction of a period, not a fraction of a
// millisecond. That is plenty for LED dimming and backlight control.
package softpwm

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// StopTimeout bounds how long Stop waits for the loop to exit.
var StopTimeout = time.Second

// ErrStopTimeout is returned by Stop when the loop did not exit in time. The
// line is still forced low. A later Start only begins generating once that
// loop is gone.
var ErrStopTimeout = errors.New("softpwm: loop did not stop in time")

// Output is the line the signal is generated on.
type Output interface {
	Out(l gpio.Level) error
}

// Channel is one software PWM output.
//
// The duty cycle is a single-slot cell: SetDuty overwrites it and the loop
// reads the latest value once per period, so a change takes effect on the
// next period and never in the middle of a pulse.
type Channel struct {
	out    Output
	freq   physic.Frequency
	period time.Duration

	duty atomic.Uint64 // math.Float64bits of the duty cycle in percent.

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
	// stale is the done channel of a loop that outlived Stop.
	stale chan struct{}
}

// New returns a stopped channel on out running at f.
func New(out Output, f physic.Frequency) (*Channel, error) {
	if f <= 0 {
		return nil, fmt.Errorf("softpwm: invalid frequency %s", f)
	}
	c := &Channel{out: out, freq: f, period: f.Period()}
	if c.period <= 0 {
		return nil, fmt.Errorf("softpwm: frequency %s is too high", f)
	}
	return c, nil
}

func (c *Channel) String() string {
	return fmt.Sprintf("softpwm.Channel{%s, %.1f%%}", c.freq, c.Duty())
}

// Frequency returns the fixed frequency of the channel.
func (c *Channel) Frequency() physic.Frequency {
	return c.freq
}

// Start starts the loop with the initial duty cycle in percent. Starting a
// running channel only updates the duty cycle.
func (c *Channel) Start(duty float64) {
	c.SetDuty(duty)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		return
	}
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	stale := c.stale
	c.stale = nil
	go func(stop, done chan struct{}) {
		if stale != nil {
			select {
			case <-stale:
			case <-stop:
				close(done)
				return
			}
		}
		c.loop(stop, done)
	}(c.stop, c.done)
}

// Running reports whether the loop is running.
func (c *Channel) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stop != nil
}

// SetDuty sets the duty cycle in percent. Values are saturated to [0, 100].
//
// It is safe to call concurrently with the loop.
func (c *Channel) SetDuty(duty float64) {
	c.duty.Store(math.Float64bits(clamp(duty)))
}

// Duty returns the last duty cycle set.
func (c *Channel) Duty() float64 {
	return math.Float64frombits(c.duty.Load())
}

// Stop stops the loop and forces the line low. It is a no-op on a stopped
// channel.
func (c *Channel) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop == nil {
		return nil
	}
	close(c.stop)
	var err error
	select {
	case <-c.done:
	case <-time.After(StopTimeout):
		err = ErrStopTimeout
		c.stale = c.done
	}
	c.stop = nil
	c.done = nil
	if err2 := c.out.Out(gpio.Low); err == nil {
		err = err2
	}
	return err
}

// Timing splits a period into its high and low parts for a duty cycle in
// percent. on+off is always exactly period.
func Timing(duty float64, period time.Duration) (on, off time.Duration) {
	switch duty = clamp(duty); {
	case duty <= 0:
		return 0, period
	case duty >= 100:
		return period, 0
	}
	on = time.Duration(float64(period) * duty / 100)
	return on, period - on
}

func (c *Channel) loop(stop, done chan struct{}) {
	defer close(done)
	t := time.NewTimer(c.period)
	defer t.Stop()
	wait := func(d time.Duration) bool {
		if !t.Stop() {
			select {
			case <-t.C:
			default:
			}
		}
		t.Reset(d)
		select {
		case <-stop:
			return false
		case <-t.C:
			return true
		}
	}
	for {
		// Write errors are ignored; the next period retries.
		switch on, off := Timing(c.Duty(), c.period); {
		case on == 0:
			_ = c.out.Out(gpio.Low)
			if !wait(c.period) {
				return
			}
		case off == 0:
			_ = c.out.Out(gpio.High)
			if !wait(c.period) {
				return
			}
		default:
			_ = c.out.Out(gpio.High)
			if !wait(on) {
				return
			}
			_ = c.out.Out(gpio.Low)
			if !wait(off) {
				return
			}
		}
	}
}

func clamp(duty float64) float64 {
	if math.IsNaN(duty) || duty < 0 {
		return 0
	}
	if duty > 100 {
		return 100
	}
	return duty
}
