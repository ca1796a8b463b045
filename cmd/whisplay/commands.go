// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"image"
	"os"
	"strconv"
	"time"

	"github.com/GermanBionicSystems/whisplay/platform"
	"github.com/GermanBionicSystems/whisplay/st7789/image565"
	"github.com/GermanBionicSystems/whisplay/whisplay"
	"github.com/spf13/cobra"
)

func infoCmd(g *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print the detected platform and panel geometry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			hold := g.hold
			g.hold = 0
			defer func() { g.hold = hold }()
			return g.run(func(ctx context.Context, s *session) error {
				cfg := s.board.Platform()
				fmt.Fprintf(s.out, "platform:    %s\n", cfg.Kind)
				fmt.Fprintf(s.out, "model:       %s\n", cfg.Model)
				fmt.Fprintf(s.out, "spi:         %s @ %s\n", cfg.SPIPort, cfg.SPIMaxSpeed)
				fmt.Fprintf(s.out, "interrupts:  %t\n", cfg.Interrupts)
				fmt.Fprintf(s.out, "orientation: %s\n", s.board.Display().Orientation())
				fmt.Fprintf(s.out, "bounds:      %s\n", s.board.Display().Bounds().Max)
				if cfg.Kind != platform.Simulated {
					ok, err := platform.HasSoundCard(platform.SoundCardsPath, "wm8960")
					if err != nil {
						return err
					}
					fmt.Fprintf(s.out, "sound card:  %t\n", ok)
				}
				return nil
			})(cmd, args)
		},
	}
}

func fillCmd(g *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "fill <rrggbb>",
		Short: "Fill the panel with a color",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := parseHexColor(args[0])
			if err != nil {
				return err
			}
			return g.run(func(ctx context.Context, s *session) error {
				return s.board.FillScreen(image565.RGB(c.R, c.G, c.B))
			})(cmd, args)
		},
	}
}

func rgbCmd(g *globalOpts) *cobra.Command {
	var fade time.Duration
	cmd := &cobra.Command{
		Use:   "rgb <r> <g> <b>",
		Short: "Set the LED color, each component 0 to 255",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var c [3]uint8
			for i, a := range args {
				v, err := parseUint8(a)
				if err != nil {
					return err
				}
				c[i] = v
			}
			return g.run(func(ctx context.Context, s *session) error {
				if fade <= 0 {
					s.board.SetRGB(c[0], c[1], c[2])
					s.showLED()
					return nil
				}
				done := make(chan struct{})
				defer close(done)
				if s.preview != nil {
					go func() {
						t := time.NewTicker(max(fade/40, time.Millisecond))
						defer t.Stop()
						for {
							select {
							case <-done:
								return
							case <-t.C:
								s.showLED()
							}
						}
					}()
				}
				err := s.board.SetRGBFade(ctx, c[0], c[1], c[2], fade)
				s.showLED()
				return err
			})(cmd, args)
		},
	}
	cmd.Flags().DurationVar(&fade, "fade", 0, "fade to the color over this duration")
	return cmd
}

func backlightCmd(g *globalOpts) *cobra.Command {
	var sw bool
	cmd := &cobra.Command{
		Use:   "backlight <0-100>",
		Short: "Set the backlight brightness",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.Atoi(args[0])
			if err != nil {
				return err
			}
			return g.run(func(ctx context.Context, s *session) error {
				if sw {
					if err := s.board.SetBacklightMode(whisplay.Switch); err != nil {
						return err
					}
				}
				if err := s.board.SetBacklight(v); err != nil {
					return err
				}
				b, m := s.board.Backlight()
				fmt.Fprintf(s.out, "backlight %d%% (%s)\n", b, m)
				return nil
			})(cmd, args)
		},
	}
	cmd.Flags().BoolVar(&sw, "switch", false, "drive the backlight as an on/off switch")
	return cmd
}

func textCmd(g *globalOpts) *cobra.Command {
	var path string
	var size float64
	cmd := &cobra.Command{
		Use:   "text <message>",
		Short: "Render a message on the panel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			face, err := loadFace(path, size)
			if err != nil {
				return err
			}
			return g.run(func(ctx context.Context, s *session) error {
				r := s.board.Display().Bounds()
				return s.board.Draw(r, renderText(r, args[0], face), image.Point{})
			})(cmd, args)
		},
	}
	cmd.Flags().StringVar(&path, "font", "", "TrueType font file, defaults to Go Regular")
	cmd.Flags().Float64Var(&size, "size", 24, "font size in points, 0 for the fixed bitmap font")
	return cmd
}

func imageCmd(g *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "image <file>",
		Short: "Show an image scaled to the panel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			src, err := decodeImage(f)
			f.Close()
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			return g.run(func(ctx context.Context, s *session) error {
				r := s.board.Display().Bounds()
				return s.board.Draw(r, fitImage(r, src), image.Point{})
			})(cmd, args)
		},
	}
}

func lineCmd(g *globalOpts) *cobra.Command {
	var hex string
	cmd := &cobra.Command{
		Use:   "line <x0> <y0> <x1> <y1>",
		Short: "Draw a line on a black panel",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			var p [4]int
			for i, a := range args {
				v, err := strconv.Atoi(a)
				if err != nil {
					return err
				}
				p[i] = v
			}
			c, err := parseHexColor(hex)
			if err != nil {
				return err
			}
			return g.run(func(ctx context.Context, s *session) error {
				return s.board.DrawLine(p[0], p[1], p[2], p[3], image565.RGB(c.R, c.G, c.B))
			})(cmd, args)
		},
	}
	cmd.Flags().StringVar(&hex, "color", "ffffff", "line color as rrggbb")
	return cmd
}

func buttonCmd(g *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "button",
		Short: "Print button events until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			hold := g.hold
			g.hold = 0
			defer func() { g.hold = hold }()
			return g.run(func(ctx context.Context, s *session) error {
				start := time.Now()
				s.board.OnButtonPress(func() {
					fmt.Fprintf(s.out, "%8s pressed\n", time.Since(start).Round(time.Millisecond))
				})
				s.board.OnButtonRelease(func() {
					fmt.Fprintf(s.out, "%8s released\n", time.Since(start).Round(time.Millisecond))
				})
				fmt.Fprintf(s.out, "button is %s; press Ctrl-C to stop\n", state(s.board.ButtonPressed()))
				<-ctx.Done()
				return nil
			})(cmd, args)
		},
	}
}

func state(pressed bool) string {
	if pressed {
		return "pressed"
	}
	return "released"
}
