// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package button turns the level of a push button GPIO line into press and
// release callbacks.
//
// Two strategies exist, with the same contract. NewInterrupt blocks on edge
// interrupts of the line. After an edge it samples the level, ignores further
// edges for Opts.Debounce, then samples again so that a transition which
// happened during a callback or the lockout is not lost. NewPoller samples the
// line at a fixed interval when the platform has no edge detection; the
// interval itself is the only debounce.
//
// In both cases callbacks run on the watcher's own goroutine, one at a time,
// at most once per observed transition. A callback that blocks delays the
// detection of the following transitions.
package button

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"periph.io/x/conn/v3/gpio"
)

// DefaultInterval is the polling period used when Opts.Interval is zero.
const DefaultInterval = 10 * time.Millisecond

// DefaultDebounce is the edge lockout of interrupt watchers.
const DefaultDebounce = 50 * time.Millisecond

// CloseTimeout bounds how long Close waits for the watcher goroutine.
const CloseTimeout = 2 * time.Second

// edgeTimeout is how long an interrupt watcher blocks before checking for
// Close and re-reading the line.
const edgeTimeout = 100 * time.Millisecond

// ErrCloseTimeout is returned by Close when the goroutine did not exit in
// time, typically because a callback is blocked.
var ErrCloseTimeout = errors.New("button: watcher did not stop in time")

// Input is the button line.
type Input interface {
	Read() (gpio.Level, error)
}

// EdgeInput is a button line with edge interrupts.
type EdgeInput interface {
	Input
	WaitForEdge(timeout time.Duration) bool
}

// Opts defines the options for a Watcher.
type Opts struct {
	// ActiveLevel is the level read while the button is pressed.
	ActiveLevel gpio.Level
	// Interval is the polling period. It is ignored by interrupt watchers.
	//
	// It is the only debounce applied when polling. 10ms covers the bounce
	// of the tactile switch on the Whisplay but has not been characterized
	// for other buttons.
	Interval time.Duration
	// Debounce is how long an interrupt watcher ignores edges after one was
	// reported. Zero disables the lockout. It is ignored by pollers.
	Debounce time.Duration
	// Logger receives read errors. Defaults to discarding.
	Logger logr.Logger
}

// DefaultOpts matches the Whisplay button, which reads High when pressed.
var DefaultOpts = Opts{
	ActiveLevel: gpio.High,
	Interval:    DefaultInterval,
	Debounce:    DefaultDebounce,
}

// Callback is invoked on a transition.
type Callback func()

// Watcher dispatches press and release callbacks for one button.
type Watcher struct {
	in     Input
	active gpio.Level
	log    logr.Logger
	kind   string

	pressed   atomic.Bool
	onPress   atomic.Pointer[Callback]
	onRelease atomic.Pointer[Callback]

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewPoller starts a watcher that reads in every opts.Interval.
func NewPoller(in Input, opts *Opts) (*Watcher, error) {
	w, err := newWatcher(in, opts, "poll")
	if err != nil {
		return nil, err
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	go w.poll(interval, w.stop)
	return w, nil
}

// NewInterrupt starts a watcher that waits for edges on in.
func NewInterrupt(in EdgeInput, opts *Opts) (*Watcher, error) {
	w, err := newWatcher(in, opts, "interrupt")
	if err != nil {
		return nil, err
	}
	go w.interrupt(in, opts.Debounce, w.stop)
	return w, nil
}

func newWatcher(in Input, opts *Opts, kind string) (*Watcher, error) {
	l, err := in.Read()
	if err != nil {
		return nil, fmt.Errorf("button: initial read: %w", err)
	}
	log := opts.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	w := &Watcher{
		in:     in,
		active: opts.ActiveLevel,
		log:    log,
		kind:   kind,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	w.pressed.Store(l == w.active)
	return w, nil
}

func (w *Watcher) String() string {
	return fmt.Sprintf("button.Watcher{%s, pressed=%t}", w.kind, w.IsPressed())
}

// OnPress sets the callback invoked when the button is pressed. nil
// removes it.
func (w *Watcher) OnPress(cb Callback) {
	w.onPress.Store(&cb)
}

// OnRelease sets the callback invoked when the button is released. nil
// removes it.
func (w *Watcher) OnRelease(cb Callback) {
	w.onRelease.Store(&cb)
}

// IsPressed returns the last state observed by the watcher.
func (w *Watcher) IsPressed() bool {
	return w.pressed.Load()
}

// Close stops the watcher goroutine. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stop == nil {
		return nil
	}
	close(w.stop)
	w.stop = nil
	select {
	case <-w.done:
		return nil
	case <-time.After(CloseTimeout):
		return ErrCloseTimeout
	}
}

func (w *Watcher) poll(interval time.Duration, stop <-chan struct{}) {
	defer close(w.done)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
		}
		w.sample()
	}
}

func (w *Watcher) interrupt(in EdgeInput, debounce time.Duration, stop <-chan struct{}) {
	defer close(w.done)
	for {
		select {
		case <-stop:
			return
		default:
		}
		if !in.WaitForEdge(edgeTimeout) {
			// An edge may have fired while nobody was waiting for it.
			w.sample()
			continue
		}
		w.sample()
		if debounce > 0 {
			w.lockout(in, debounce, stop)
			w.sample()
		}
	}
}

// lockout discards the edges reported during d.
func (w *Watcher) lockout(in EdgeInput, d time.Duration, stop <-chan struct{}) {
	deadline := time.Now().Add(d)
	for left := d; left > 0; left = time.Until(deadline) {
		select {
		case <-stop:
			return
		default:
		}
		in.WaitForEdge(left)
	}
}

// sample reads the line and dispatches if the state changed.
func (w *Watcher) sample() {
	l, err := w.in.Read()
	if err != nil {
		// Dropped; the next sample retries.
		w.log.V(1).Info("button read failed", "err", err)
		return
	}
	pressed := l == w.active
	if w.pressed.Swap(pressed) == pressed {
		return
	}
	cb := w.onRelease.Load()
	if pressed {
		cb = w.onPress.Load()
	}
	if cb != nil && *cb != nil {
		(*cb)()
	}
}
