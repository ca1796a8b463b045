// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package st7789 drives the 1.69" 240x280 IPS LCD of the PiSugar Whisplay
// HAT, an ST7789V2 controller on a 4-wire SPI bus.
//
// The controller has 240x320 pixels of RAM. The visible panel is 280 rows
// high and starts 20 rows into the RAM, so every window carries a fixed
// offset on the long axis of the panel.
//
// # Wiring
//
// Connect SDA to SPI_MOSI, SCL to SPI_CLK, CS to SPI_CS. DC and RES are
// plain GPIO outputs; DC is low for command bytes and high for parameter
// and pixel bytes, RES is active low.
//
// # Datasheet
//
// https://www.newhavendisplay.com/appnotes/datasheets/LCDs/ST7789V.pdf
package st7789
