// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package st7789

import (
	"image"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

type record struct {
	cmd  byte
	data []byte
}

type fakeController []record

func (r *fakeController) sendCommand(cmd byte) {
	*r = append(*r, record{
		cmd: cmd,
	})
}

func (r *fakeController) sendData(data []byte) {
	cur := &(*r)[len(*r)-1]
	cur.data = append(cur.data, data...)
}

func whisplayInit(madctl byte) []record {
	return []record{
		{cmd: sleepOut},
		{cmd: memAccessCtrl, data: []byte{madctl}},
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
		{cmd: inversionOn},
		{cmd: displayOn},
	}
}

func TestInitDisplay(t *testing.T) {
	for _, tc := range []struct {
		o    Orientation
		want []record
	}{
		{o: Portrait, want: whisplayInit(0x00)},
		{o: PortraitFlipped, want: whisplayInit(0xC0)},
		{o: Landscape, want: whisplayInit(0x70)},
		{o: LandscapeFlipped, want: whisplayInit(0xA0)},
	} {
		t.Run(tc.o.String(), func(t *testing.T) {
			var got fakeController

			initDisplay(&got, tc.o)

			if diff := cmp.Diff([]record(got), tc.want, cmpopts.EquateEmpty(), cmp.AllowUnexported(record{})); diff != "" {
				t.Errorf("initDisplay() difference (-got +want):\n%s", diff)
			}
		})
	}
}

func TestInitSequenceRawBytes(t *testing.T) {
	// The exact bytes the vendor sequence puts on the wire, command byte
	// first.
	want := [][]byte{
		{0x11},
		{0x36, 0xC0},
		{0x3A, 0x05},
		{0xB2, 0x0C, 0x0C, 0x00, 0x33, 0x33},
		{0xB7, 0x35},
		{0xBB, 0x32},
		{0xC2, 0x01},
		{0xC3, 0x15},
		{0xC4, 0x20},
		{0xC6, 0x0F},
		{0xD0, 0xA4, 0xA1},
		{0xE0, 0xD0, 0x08, 0x0E, 0x09, 0x09, 0x05, 0x31, 0x33, 0x48, 0x17, 0x14, 0x15, 0x31, 0x34},
		{0xE1, 0xD0, 0x08, 0x0E, 0x09, 0x09, 0x15, 0x31, 0x33, 0x48, 0x17, 0x14, 0x15, 0x31, 0x34},
		{0x21},
		{0x29},
	}
	var got [][]byte
	for _, c := range initSequence(PortraitFlipped) {
		got = append(got, append([]byte{c.cmd}, c.data...))
	}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("initSequence() difference (-got +want):\n%s", diff)
	}
}

func TestSetWindow(t *testing.T) {
	for _, tc := range []struct {
		name           string
		o              Orientation
		x0, y0, x1, y1 int
		want           []record
	}{
		{
			name: "portrait origin",
			o:    Portrait,
			want: []record{
				{cmd: columnAddrSet, data: []byte{0, 0, 0, 0}},
				{cmd: rowAddrSet, data: []byte{0, 20, 0, 20}},
				{cmd: memoryWrite},
			},
		},
		{
			name: "portrait flipped last row",
			o:    PortraitFlipped,
			x0:   0, y0: Height - 1, x1: Width - 1, y1: Height - 1,
			want: []record{
				{cmd: columnAddrSet, data: []byte{0, 0, 0, 239}},
				{cmd: rowAddrSet, data: []byte{0x01, 0x2B, 0x01, 0x2B}},
				{cmd: memoryWrite},
			},
		},
		{
			name: "landscape origin",
			o:    Landscape,
			want: []record{
				{cmd: columnAddrSet, data: []byte{0, 20, 0, 20}},
				{cmd: rowAddrSet, data: []byte{0, 0, 0, 0}},
				{cmd: memoryWrite},
			},
		},
		{
			name: "landscape flipped last column",
			o:    LandscapeFlipped,
			x0:   Height - 1, y0: 0, x1: Height - 1, y1: Width - 1,
			want: []record{
				{cmd: columnAddrSet, data: []byte{0x01, 0x2B, 0x01, 0x2B}},
				{cmd: rowAddrSet, data: []byte{0, 0, 0, 239}},
				{cmd: memoryWrite},
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var got fakeController

			setWindow(&got, tc.o, tc.x0, tc.y0, tc.x1, tc.y1)

			if diff := cmp.Diff([]record(got), tc.want, cmpopts.EquateEmpty(), cmp.AllowUnexported(record{})); diff != "" {
				t.Errorf("setWindow() difference (-got +want):\n%s", diff)
			}
		})
	}
}

func TestLine(t *testing.T) {
	for _, tc := range []struct {
		name           string
		x0, y0, x1, y1 int
		want           []image.Point
	}{
		{
			name: "shallow",
			x1:   4, y1: 2,
			want: []image.Point{{0, 0}, {1, 0}, {2, 1}, {3, 1}, {4, 2}},
		},
		{
			name: "reverse",
			x0:   4, y0: 2,
			want: []image.Point{{4, 2}, {3, 2}, {2, 1}, {1, 1}, {0, 0}},
		},
		{
			name: "vertical",
			x0:   3, y0: 0, x1: 3, y1: 3,
			want: []image.Point{{3, 0}, {3, 1}, {3, 2}, {3, 3}},
		},
		{
			name: "single point",
			x0:   7, y0: 7, x1: 7, y1: 7,
			want: []image.Point{{7, 7}},
		},
		{
			name: "diagonal",
			x0:   2, y0: 2, x1: -1, y1: 5,
			want: []image.Point{{2, 2}, {1, 3}, {0, 4}, {-1, 5}},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var got []image.Point
			line(tc.x0, tc.y0, tc.x1, tc.y1, func(x, y int) bool {
				got = append(got, image.Pt(x, y))
				return true
			})
			if diff := cmp.Diff(got, tc.want); diff != "" {
				t.Errorf("line() difference (-got +want):\n%s", diff)
			}
		})
	}
}

func TestLineStops(t *testing.T) {
	n := 0
	line(0, 0, 100, 0, func(x, y int) bool {
		n++
		return n < 3
	})
	if n != 3 {
		t.Fatalf("line() visited %d points after stop", n)
	}
}
