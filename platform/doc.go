// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package platform detects the single board computer the Whisplay HAT is
// plugged into and hands out GPIO lines for it.
//
// Two GPIO models are supported behind the same Backend interface:
//
//   - Raspberry Pi: periph.io host drivers, pins addressed by their physical
//     header name (P1_<n>). Input lines support edge interrupts.
//
//   - Radxa ZERO 3W: the Linux GPIO character device. Each physical header
//     pin maps to a (gpiochip, line offset) pair through a fixed table.
//     Input lines have to be polled.
//
// The backend is picked once, from the Config returned by Detect. Nothing
// else in the module branches on the platform.
package platform
