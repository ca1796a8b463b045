// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// whisplay exercises the Whisplay HAT from the command line.
//
// With --platform=sim no hardware is touched: the SPI traffic is recorded,
// the LED color is previewed on the terminal and the button never fires.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
