// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GermanBionicSystems/whisplay/ledterm"
	"github.com/GermanBionicSystems/whisplay/platform"
	"github.com/GermanBionicSystems/whisplay/platform/platformtest"
	"github.com/GermanBionicSystems/whisplay/st7789"
	"github.com/GermanBionicSystems/whisplay/whisplay"
	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/spf13/cobra"
	"periph.io/x/conn/v3/spi/spitest"
)

// globalOpts are the persistent flags.
type globalOpts struct {
	platform    platformFlag
	orientation orientationFlag
	verbosity   int
	brightness  int
	hold        time.Duration
}

// session is an open board and what the dry run needs to report on it.
type session struct {
	board *whisplay.Board
	log   logr.Logger
	out   io.Writer
	// Only set with --platform=sim.
	rec     *spitest.Record
	preview *ledterm.Dev
}

func newRootCmd() *cobra.Command {
	g := &globalOpts{platform: "auto", orientation: orientationFlag(whisplay.DefaultOpts.Orientation)}
	root := &cobra.Command{
		Use:           "whisplay",
		Short:         "Drive the Whisplay HAT",
		Long:          "Drive the LCD, backlight, RGB LED and button of the Whisplay HAT on a Raspberry Pi or a Radxa Zero 3W.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	f := root.PersistentFlags()
	f.Var(&g.platform, "platform", "auto, rpi, radxa or sim")
	f.Var(&g.orientation, "orientation", "panel orientation, 0 to 3")
	f.IntVarP(&g.verbosity, "verbose", "v", 0, "log verbosity")
	f.IntVar(&g.brightness, "brightness", 100, "backlight brightness while drawing, 0 to 100")
	f.DurationVar(&g.hold, "hold", 5*time.Second, "time to keep the result displayed before cleanup")

	root.AddCommand(
		infoCmd(g),
		fillCmd(g),
		rgbCmd(g),
		backlightCmd(g),
		textCmd(g),
		imageCmd(g),
		lineCmd(g),
		buttonCmd(g),
	)
	return root
}

// open creates the board described by the persistent flags.
func (g *globalOpts) open(cmd *cobra.Command) (*session, error) {
	stdr.SetVerbosity(g.verbosity)
	log := stdr.New(stdlog.New(cmd.ErrOrStderr(), "", stdlog.LstdFlags)).WithName("whisplay")
	s := &session{log: log, out: cmd.OutOrStdout()}
	opts := whisplay.DefaultOpts
	opts.Orientation = st7789.Orientation(g.orientation)
	opts.Logger = log
	switch g.platform {
	case "auto":
	case platformFlag(platform.Simulated):
		cfg, err := platform.New(platform.Simulated, "dry run")
		if err != nil {
			return nil, err
		}
		opts.Platform = cfg
		opts.Backend = platformtest.New(whisplay.PinDC, whisplay.PinReset, whisplay.PinBacklight,
			whisplay.PinRed, whisplay.PinGreen, whisplay.PinBlue, whisplay.PinButton)
		s.rec = &spitest.Record{}
		opts.SPI = s.rec
		s.preview = ledterm.New(&ledterm.Opts{W: s.out})
	default:
		cfg, err := platform.New(platform.Kind(g.platform), "forced from the command line")
		if err != nil {
			return nil, err
		}
		opts.Platform = cfg
	}
	b, err := whisplay.New(&opts)
	if err != nil {
		return nil, err
	}
	s.board = b
	return s, nil
}

// close waits for --hold, then releases the board.
func (s *session) close(ctx context.Context, hold time.Duration) {
	if hold > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(hold):
		}
	}
	s.board.Cleanup()
	if s.rec != nil {
		s.rec.Lock()
		n := 0
		for _, op := range s.rec.Ops {
			n += len(op.W)
		}
		ops := len(s.rec.Ops)
		s.rec.Unlock()
		fmt.Fprintf(s.out, "dry run: %d SPI transactions, %d bytes\n", ops, n)
	}
}

// showLED previews the LED color on a dry run.
func (s *session) showLED() {
	if s.preview != nil {
		if err := s.preview.Show(s.board.RGB()); err != nil {
			s.log.Error(err, "preview")
		}
	}
}

// run opens the board, lights the backlight and calls fn.
func (g *globalOpts) run(fn func(ctx context.Context, s *session) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		s, err := g.open(cmd)
		if err != nil {
			return err
		}
		defer s.close(ctx, g.hold)
		if err := s.board.SetBacklight(g.brightness); err != nil {
			return err
		}
		return fn(ctx, s)
	}
}
