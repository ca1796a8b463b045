// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package drivers is a container for the Whisplay HAT drivers.
//
// Applications use package whisplay. The other packages are the building
// blocks it composes and can be used on their own: st7789 for the LCD,
// softpwm, rgbled, button and platform for the GPIO side.
package drivers
