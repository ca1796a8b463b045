// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package st7789_test

import (
	"image"
	"log"

	"github.com/GermanBionicSystems/whisplay/st7789"
	"github.com/GermanBionicSystems/whisplay/st7789/image565"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

func Example() {
	// Make sure periph is initialized.
	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}

	// Use spireg SPI port registry to find the first available SPI bus.
	p, err := spireg.Open("")
	if err != nil {
		log.Fatal(err)
	}
	defer p.Close()

	dev, err := st7789.New(p, gpioreg.ByName("GPIO27"), gpioreg.ByName("GPIO4"), &st7789.DefaultOpts)
	if err != nil {
		log.Fatalf("failed to initialize st7789: %v", err)
	}
	if err := dev.Init(); err != nil {
		log.Fatal(err)
	}
	if err := dev.FillScreen(image565.Black); err != nil {
		log.Fatal(err)
	}

	// Draw a framed square in the middle of the panel.
	img := image565.New(image.Rect(0, 0, 64, 64))
	img.Fill(image565.Blue)
	for i := 0; i < 64; i++ {
		img.SetRGB565(i, 0, image565.White)
		img.SetRGB565(i, 63, image565.White)
		img.SetRGB565(0, i, image565.White)
		img.SetRGB565(63, i, image565.White)
	}
	r := image.Rect(88, 108, 152, 172)
	if err := dev.Draw(r, img, image.Point{}); err != nil {
		log.Fatal(err)
	}
	if err := dev.DrawLine(0, 0, st7789.Width-1, st7789.Height-1, image565.Red); err != nil {
		log.Fatal(err)
	}
}
