// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package st7789

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
)

// errorHandler is a wrapper for error management.
//
// The first failure sticks and every following call becomes a no-op, so a
// failed transfer never leaves a half written command on the bus.
type errorHandler struct {
	d   *Dev
	err error
}

func (eh *errorHandler) rstOut(l gpio.Level) {
	if eh.err != nil {
		return
	}
	eh.err = eh.d.rst.Out(l)
}

func (eh *errorHandler) dcOut(l gpio.Level) {
	if eh.err != nil {
		return
	}
	eh.err = eh.d.dc.Out(l)
}

func (eh *errorHandler) cTx(w []byte) {
	if eh.err != nil {
		return
	}
	eh.err = eh.d.c.Tx(w, nil)
}

func (eh *errorHandler) sendCommand(cmd byte) {
	if eh.err != nil {
		return
	}
	eh.dcOut(gpio.Low)
	eh.cTx([]byte{cmd})
}

// sendData splits data in transfers the SPI driver accepts.
func (eh *errorHandler) sendData(data []byte) {
	if eh.err != nil {
		return
	}
	eh.dcOut(gpio.High)
	for len(data) != 0 && eh.err == nil {
		n := len(data)
		if n > eh.d.maxTx {
			n = eh.d.maxTx
		}
		eh.cTx(data[:n])
		data = data[n:]
	}
}

func (eh *errorHandler) result() error {
	if eh.err != nil {
		return fmt.Errorf("st7789: %w", eh.err)
	}
	return nil
}
