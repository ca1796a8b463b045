// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"fmt"
	"strconv"

	"github.com/GermanBionicSystems/whisplay/platform"
	"github.com/GermanBionicSystems/whisplay/st7789"
	"github.com/spf13/pflag"
)

// platformFlag is "auto" or a platform.Kind.
type platformFlag string

func (p *platformFlag) String() string {
	return string(*p)
}

func (p *platformFlag) Set(s string) error {
	switch k := platform.Kind(s); k {
	case platform.RaspberryPi, platform.Radxa, platform.Simulated:
	default:
		if s != "auto" {
			return fmt.Errorf("unknown platform %q, want auto, rpi, radxa or sim", s)
		}
	}
	*p = platformFlag(s)
	return nil
}

func (p *platformFlag) Type() string {
	return "platform"
}

// orientationFlag accepts 0 to 3 or an orientation name.
type orientationFlag st7789.Orientation

func (o *orientationFlag) String() string {
	return st7789.Orientation(*o).String()
}

func (o *orientationFlag) Set(s string) error {
	if n, err := strconv.ParseUint(s, 10, 8); err == nil {
		if n > uint64(st7789.LandscapeFlipped) {
			return fmt.Errorf("orientation %d out of range 0..3", n)
		}
		*o = orientationFlag(n)
		return nil
	}
	for v := st7789.Portrait; v <= st7789.LandscapeFlipped; v++ {
		if v.String() == s {
			*o = orientationFlag(v)
			return nil
		}
	}
	return fmt.Errorf("unknown orientation %q", s)
}

func (o *orientationFlag) Type() string {
	return "orientation"
}

var _ pflag.Value = (*platformFlag)(nil)
var _ pflag.Value = (*orientationFlag)(nil)
