// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package whisplay drives the PiSugar Whisplay HAT: a 240x280 ST7789 LCD
// with a dimmable backlight, a common anode RGB LED and a push button.
//
// It runs on the Raspberry Pi, through the periph host drivers, and on the
// Radxa Zero 3W, through the GPIO character device. The board is detected at
// construction.
//
// Board is the only type an application needs. Cleanup must be called
// before exit to stop the PWM goroutines and leave the lines in a safe
// state.
//
// Datasheet
//
// https://www.rhydolabz.com/documents/33/ST7789.pdf
package whisplay
