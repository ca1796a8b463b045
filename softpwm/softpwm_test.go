// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package softpwm

import (
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

type recorder struct {
	mu     sync.Mutex
	levels []gpio.Level
}

func (r *recorder) Out(l gpio.Level) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.levels = append(r.levels, l)
	return nil
}

func (r *recorder) snapshot() []gpio.Level {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]gpio.Level(nil), r.levels...)
}

func TestTiming(t *testing.T) {
	for _, period := range []time.Duration{10 * time.Millisecond, time.Millisecond, 7 * time.Microsecond} {
		for duty := -10.0; duty <= 110; duty += 0.5 {
			on, off := Timing(duty, period)
			if on+off != period {
				t.Fatalf("Timing(%v, %s) = %s + %s != period", duty, period, on, off)
			}
			if on < 0 || off < 0 {
				t.Fatalf("Timing(%v, %s) = %s, %s", duty, period, on, off)
			}
			if duty <= 0 && on != 0 {
				t.Fatalf("Timing(%v) on = %s, want 0", duty, on)
			}
			if duty >= 100 && off != 0 {
				t.Fatalf("Timing(%v) off = %s, want 0", duty, off)
			}
		}
	}
	if on, off := Timing(25, 10*time.Millisecond); on != 2500*time.Microsecond || off != 7500*time.Microsecond {
		t.Fatalf("Timing(25) = %s, %s", on, off)
	}
	if on, off := Timing(math.NaN(), time.Millisecond); on != 0 || off != time.Millisecond {
		t.Fatalf("Timing(NaN) = %s, %s", on, off)
	}
}

func TestSetDutySaturates(t *testing.T) {
	c, err := New(&recorder{}, 100*physic.Hertz)
	if err != nil {
		t.Fatal(err)
	}
	for _, tc := range []struct {
		in, want float64
	}{
		{-5, 0}, {0, 0}, {42.5, 42.5}, {100, 100}, {250, 100},
	} {
		c.SetDuty(tc.in)
		if got := c.Duty(); got != tc.want {
			t.Errorf("SetDuty(%v): Duty() = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestNewInvalid(t *testing.T) {
	if _, err := New(&recorder{}, 0); err == nil {
		t.Fatal("expected error")
	}
}

func TestChannelToggles(t *testing.T) {
	r := &recorder{}
	c, err := New(r, physic.KiloHertz)
	if err != nil {
		t.Fatal(err)
	}
	c.Start(50)
	if !c.Running() {
		t.Fatal("expected running")
	}
	time.Sleep(30 * time.Millisecond)
	if err := c.Stop(); err != nil {
		t.Fatal(err)
	}
	if c.Running() {
		t.Fatal("expected stopped")
	}
	levels := r.snapshot()
	var high, low int
	for _, l := range levels {
		if l {
			high++
		} else {
			low++
		}
	}
	if high < 2 || low < 2 {
		t.Fatalf("expected toggling, got %d high and %d low writes", high, low)
	}
	if levels[len(levels)-1] != gpio.Low {
		t.Fatal("Stop() must leave the line low")
	}
}

func TestChannelSaturatedDutyHolds(t *testing.T) {
	for _, tc := range []struct {
		name string
		duty float64
		want gpio.Level
	}{
		{"off", 0, gpio.Low},
		{"on", 100, gpio.High},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r := &recorder{}
			c, err := New(r, physic.KiloHertz)
			if err != nil {
				t.Fatal(err)
			}
			c.Start(tc.duty)
			time.Sleep(20 * time.Millisecond)
			if err := c.Stop(); err != nil {
				t.Fatal(err)
			}
			levels := r.snapshot()
			// The last write comes from Stop.
			for i, l := range levels[:len(levels)-1] {
				if l != tc.want {
					t.Fatalf("write #%d = %s, want %s", i, l, tc.want)
				}
			}
		})
	}
}

func TestStopIdempotent(t *testing.T) {
	r := &recorder{}
	c, err := New(r, 100*physic.Hertz)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Stop(); err != nil {
		t.Fatal(err)
	}
	if len(r.snapshot()) != 0 {
		t.Fatal("Stop() on a stopped channel must not touch the line")
	}
	c.Start(30)
	c.Start(60)
	if c.Duty() != 60 {
		t.Fatalf("Duty() = %v", c.Duty())
	}
	if err := c.Stop(); err != nil {
		t.Fatal(err)
	}
	if err := c.Stop(); err != nil {
		t.Fatal(err)
	}
}

// gated blocks every High write until gate is closed.
type gated struct {
	recorder
	gate  chan struct{}
	highs atomic.Int32
}

func (g *gated) Out(l gpio.Level) error {
	if l == gpio.High {
		g.highs.Add(1)
		<-g.gate
	}
	return g.recorder.Out(l)
}

func TestStartAfterStopTimeout(t *testing.T) {
	defer func(d time.Duration) { StopTimeout = d }(StopTimeout)
	StopTimeout = 20 * time.Millisecond
	g := &gated{gate: make(chan struct{})}
	c, err := New(g, physic.KiloHertz)
	if err != nil {
		t.Fatal(err)
	}
	c.Start(100)
	deadline := time.Now().Add(time.Second)
	for g.highs.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("loop never wrote")
		}
		time.Sleep(time.Millisecond)
	}
	if err := c.Stop(); !errors.Is(err, ErrStopTimeout) {
		t.Fatalf("Stop() = %v, want ErrStopTimeout", err)
	}

	// The first loop is still stuck in Out; a second one must not run beside it.
	c.Start(100)
	if !c.Running() {
		t.Fatal("Start() must mark the channel running")
	}
	time.Sleep(10 * time.Millisecond)
	if n := g.highs.Load(); n != 1 {
		t.Fatalf("%d loops writing at once", n)
	}

	close(g.gate)
	deadline = time.Now().Add(time.Second)
	for g.highs.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("the new loop never took over")
		}
		time.Sleep(time.Millisecond)
	}
	if err := c.Stop(); err != nil {
		t.Fatal(err)
	}
}
