// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package button

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/GermanBionicSystems/whisplay/platform"
	"github.com/GermanBionicSystems/whisplay/platform/platformtest"
	"periph.io/x/conn/v3/gpio"
)

func acquire(t *testing.T, b *platformtest.Backend) platform.Line {
	l, err := b.Acquire(11, platform.Input, gpio.PullUp)
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

type counter struct {
	press, release atomic.Int32
}

func (c *counter) attach(w *Watcher) {
	w.OnPress(func() { c.press.Add(1) })
	w.OnRelease(func() { c.release.Add(1) })
}

func TestPoller(t *testing.T) {
	b := platformtest.New(11)
	b.Polled = true
	l := acquire(t, b)
	if _, ok := l.(EdgeInput); ok {
		t.Fatal("polled backend must not offer edges")
	}
	w, err := NewPoller(l, &DefaultOpts)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	var c counter
	c.attach(w)
	if w.IsPressed() {
		t.Fatal("button must start released")
	}

	_ = b.Pin(11).Out(gpio.High)
	waitFor(t, "press", func() bool { return c.press.Load() == 1 })
	if !w.IsPressed() {
		t.Fatal("IsPressed() must follow the line")
	}
	// Holding the button must not repeat the callback.
	time.Sleep(5 * DefaultInterval)
	if n := c.press.Load(); n != 1 {
		t.Fatalf("press dispatched %d times", n)
	}

	_ = b.Pin(11).Out(gpio.Low)
	waitFor(t, "release", func() bool { return c.release.Load() == 1 })
	if w.IsPressed() {
		t.Fatal("IsPressed() must follow the line")
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestInterrupt(t *testing.T) {
	b := platformtest.New(11)
	l := acquire(t, b)
	in, ok := l.(EdgeInput)
	if !ok {
		t.Fatal("expected an edge capable line")
	}
	w, err := NewInterrupt(in, &DefaultOpts)
	if err != nil {
		t.Fatal(err)
	}
	var c counter
	c.attach(w)

	p := b.Pin(11)
	_ = p.Out(gpio.High)
	p.EdgesChan <- gpio.High
	waitFor(t, "press", func() bool { return c.press.Load() == 1 })

	// A bounce reporting the same level is not a transition.
	p.EdgesChan <- gpio.High
	time.Sleep(20 * time.Millisecond)
	if n := c.press.Load(); n != 1 {
		t.Fatalf("press dispatched %d times", n)
	}

	_ = p.Out(gpio.Low)
	p.EdgesChan <- gpio.Low
	waitFor(t, "release", func() bool { return c.release.Load() == 1 })

	start := time.Now()
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if d := time.Since(start); d > CloseTimeout {
		t.Fatalf("Close() took %s", d)
	}
}

func TestInterruptReleaseDuringCallback(t *testing.T) {
	b := platformtest.New(11)
	in := acquire(t, b).(EdgeInput)
	w, err := NewInterrupt(in, &DefaultOpts)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	var inside atomic.Bool
	var c counter
	w.OnPress(func() {
		c.press.Add(1)
		inside.Store(true)
		time.Sleep(150 * time.Millisecond)
	})
	w.OnRelease(func() { c.release.Add(1) })

	p := b.Pin(11)
	_ = p.Out(gpio.High)
	p.EdgesChan <- gpio.High
	waitFor(t, "press callback", inside.Load)
	_ = p.Out(gpio.Low)
	p.EdgesChan <- gpio.Low
	waitFor(t, "release", func() bool { return c.release.Load() == 1 })
	if w.IsPressed() {
		t.Fatal("IsPressed() must follow the line")
	}
	if n := c.press.Load(); n != 1 {
		t.Fatalf("press dispatched %d times", n)
	}

	// The next press is still seen.
	_ = p.Out(gpio.High)
	p.EdgesChan <- gpio.High
	waitFor(t, "second press", func() bool { return c.press.Load() == 2 })
}

func TestInterruptDebounce(t *testing.T) {
	b := platformtest.New(11)
	in := acquire(t, b).(EdgeInput)
	w, err := NewInterrupt(in, &DefaultOpts)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	var c counter
	c.attach(w)

	p := b.Pin(11)
	_ = p.Out(gpio.High)
	p.EdgesChan <- gpio.High
	waitFor(t, "press", func() bool { return c.press.Load() == 1 })

	// Contact bounce on release, well within the lockout.
	for _, l := range []gpio.Level{gpio.Low, gpio.High, gpio.Low, gpio.High, gpio.Low} {
		p.EdgesChan <- l
	}
	waitFor(t, "release", func() bool { return c.release.Load() == 1 })
	time.Sleep(2 * DefaultDebounce)
	if got := [2]int32{c.press.Load(), c.release.Load()}; got != [2]int32{1, 1} {
		t.Fatalf("dispatched %d presses and %d releases, want 1 and 1", got[0], got[1])
	}
	if w.IsPressed() {
		t.Fatal("IsPressed() must follow the line")
	}
}

func TestInterruptMissedEdge(t *testing.T) {
	b := platformtest.New(11)
	in := acquire(t, b).(EdgeInput)
	w, err := NewInterrupt(in, &Opts{ActiveLevel: gpio.High})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	var c counter
	c.attach(w)
	// The level changes but no edge is ever reported.
	_ = b.Pin(11).Out(gpio.High)
	waitFor(t, "press", func() bool { return c.press.Load() == 1 && w.IsPressed() })
}

func TestActiveLow(t *testing.T) {
	b := platformtest.New(11)
	b.Polled = true
	l := acquire(t, b)
	_ = b.Pin(11).Out(gpio.High)
	w, err := NewPoller(l, &Opts{ActiveLevel: gpio.Low, Interval: time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	var c counter
	c.attach(w)
	_ = b.Pin(11).Out(gpio.Low)
	waitFor(t, "press", func() bool { return c.press.Load() == 1 && w.IsPressed() })
}

func TestNilCallbacks(t *testing.T) {
	b := platformtest.New(11)
	b.Polled = true
	l := acquire(t, b)
	w, err := NewPoller(l, &Opts{ActiveLevel: gpio.High, Interval: time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	w.OnPress(nil)
	_ = b.Pin(11).Out(gpio.High)
	waitFor(t, "press", w.IsPressed)
	_ = b.Pin(11).Out(gpio.Low)
	waitFor(t, "release", func() bool { return !w.IsPressed() })
}

type flaky struct {
	mu    sync.Mutex
	level gpio.Level
	fail  bool
}

func (f *flaky) Read() (gpio.Level, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return gpio.Low, errors.New("glitch")
	}
	return f.level, nil
}

func (f *flaky) set(l gpio.Level, fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.level, f.fail = l, fail
}

func TestPollerSurvivesReadErrors(t *testing.T) {
	f := &flaky{}
	w, err := NewPoller(f, &Opts{ActiveLevel: gpio.High, Interval: time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	var c counter
	c.attach(w)
	f.set(gpio.High, true)
	time.Sleep(10 * time.Millisecond)
	if c.press.Load() != 0 {
		t.Fatal("a failed read must not dispatch")
	}
	f.set(gpio.High, false)
	waitFor(t, "press after errors", func() bool { return c.press.Load() == 1 })
}

func TestInitialReadError(t *testing.T) {
	if _, err := NewPoller(&flaky{fail: true}, &DefaultOpts); err == nil {
		t.Fatal("expected error")
	}
}

func TestCallbacksNotReentrant(t *testing.T) {
	b := platformtest.New(11)
	b.Polled = true
	l := acquire(t, b)
	w, err := NewPoller(l, &Opts{ActiveLevel: gpio.High, Interval: time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	var inside, overlap, calls atomic.Int32
	cb := func() {
		if inside.Add(1) != 1 {
			overlap.Add(1)
		}
		calls.Add(1)
		time.Sleep(3 * time.Millisecond)
		inside.Add(-1)
	}
	w.OnPress(cb)
	w.OnRelease(cb)
	for i := 0; i < 5; i++ {
		_ = b.Pin(11).Out(gpio.High)
		time.Sleep(5 * time.Millisecond)
		_ = b.Pin(11).Out(gpio.Low)
		time.Sleep(5 * time.Millisecond)
	}
	waitFor(t, "callbacks", func() bool { return calls.Load() > 0 })
	if overlap.Load() != 0 {
		t.Fatal("callbacks overlapped")
	}
}
