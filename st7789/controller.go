// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package st7789

import "time"

// Commands
const (
	sleepOut      byte = 0x11
	inversionOn   byte = 0x21
	displayOff    byte = 0x28
	displayOn     byte = 0x29
	columnAddrSet byte = 0x2A
	rowAddrSet    byte = 0x2B
	memoryWrite   byte = 0x2C
	memAccessCtrl byte = 0x36
	pixelFormat   byte = 0x3A
	porchCtrl     byte = 0xB2
	gateCtrl      byte = 0xB7
	vcomSet       byte = 0xBB
	vdvVrhEnable  byte = 0xC2
	vrhSet        byte = 0xC3
	vdvSet        byte = 0xC4
	frameRateCtrl byte = 0xC6
	powerCtrl1    byte = 0xD0
	positiveGamma byte = 0xE0
	negativeGamma byte = 0xE1
)

// sleepOutSettle is the wait required after leaving sleep mode before the
// next command.
const sleepOutSettle = 120 * time.Millisecond

type controller interface {
	sendCommand(byte)
	sendData([]byte)
}

// command is one entry of an initialization table.
type command struct {
	cmd   byte
	data  []byte
	delay time.Duration
}

// panelInit is the register setup for the Whisplay panel that follows
// the orientation. It must stay byte for byte identical to the vendor
// sequence.
var panelInit = []command{
	{cmd: pixelFormat, data: []byte{0x05}},
	{cmd: porchCtrl, data: []byte{0x0C, 0x0C, 0x00, 0x33, 0x33}},
	{cmd: gateCtrl, data: []byte{0x35}},
	{cmd: vcomSet, data: []byte{0x32}},
	{cmd: vdvVrhEnable, data: []byte{0x01}},
	{cmd: vrhSet, data: []byte{0x15}},
	{cmd: vdvSet, data: []byte{0x20}},
	{cmd: frameRateCtrl, data: []byte{0x0F}},
	{cmd: powerCtrl1, data: []byte{0xA4, 0xA1}},
	{cmd: positiveGamma, data: []byte{0xD0, 0x08, 0x0E, 0x09, 0x09, 0x05, 0x31, 0x33, 0x48, 0x17, 0x14, 0x15, 0x31, 0x34}},
	{cmd: negativeGamma, data: []byte{0xD0, 0x08, 0x0E, 0x09, 0x09, 0x15, 0x31, 0x33, 0x48, 0x17, 0x14, 0x15, 0x31, 0x34}},
	// The panel is normally black; inversion gives true colors.
	{cmd: inversionOn},
	{cmd: displayOn},
}

func initSequence(o Orientation) []command {
	seq := make([]command, 0, len(panelInit)+2)
	seq = append(seq,
		command{cmd: sleepOut, delay: sleepOutSettle},
		command{cmd: memAccessCtrl, data: []byte{o.madctl()}},
	)
	return append(seq, panelInit...)
}

func initDisplay(ctrl controller, o Orientation) {
	for _, c := range initSequence(o) {
		ctrl.sendCommand(c.cmd)
		if len(c.data) != 0 {
			ctrl.sendData(c.data)
		}
		if c.delay != 0 {
			time.Sleep(c.delay)
		}
	}
}

// setWindow addresses the RAM rectangle [x0, x1]x[y0, y1] in panel
// coordinates and starts a memory write. Bounds are not checked.
func setWindow(ctrl controller, o Orientation, x0, y0, x1, y1 int) {
	if o.landscape() {
		x0 += ramOffset
		x1 += ramOffset
	} else {
		y0 += ramOffset
		y1 += ramOffset
	}
	ctrl.sendCommand(columnAddrSet)
	ctrl.sendData([]byte{byte(x0 >> 8), byte(x0), byte(x1 >> 8), byte(x1)})
	ctrl.sendCommand(rowAddrSet)
	ctrl.sendData([]byte{byte(y0 >> 8), byte(y0), byte(y1 >> 8), byte(y1)})
	ctrl.sendCommand(memoryWrite)
}

// line calls fn for every point of the Bresenham line from (x0, y0) to
// (x1, y1), both ends included. It stops early if fn returns false.
func line(x0, y0, x1, y1 int, fn func(x, y int) bool) {
	dx := abs(x1 - x0)
	dy := abs(y1 - y0)
	sx, sy := -1, -1
	if x0 < x1 {
		sx = 1
	}
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy
	for {
		if !fn(x0, y0) {
			return
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
