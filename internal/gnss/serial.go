// Copyright 2021 Clayton Craft <clayton@craftyguy.net>
// SPDX-License-Identifier: GPL-3.0-or-later

package gnss

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// how often a blocked read returns so that stop is noticed
const serialReadTimeout = 500 * time.Millisecond

// SerialSource is a receiver accessed directly over a serial interface on
// the system, e.g. via /dev/ttyN or /dev/ttyUSBN.
type SerialSource struct {
	path string
	mode serial.Mode
	port serial.Port
}

func NewSerialSource(path string, baud int) *SerialSource {
	return &SerialSource{
		path: path,
		mode: serial.Mode{
			BaudRate: baud,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		},
	}
}

func (s *SerialSource) open() (err error) {
	s.port, err = serial.Open(s.path, &s.mode)
	if err != nil {
		err = fmt.Errorf("gnss/SerialSource.open: %w", err)
		return
	}
	if err = s.port.SetReadTimeout(serialReadTimeout); err != nil {
		s.port.Close()
		err = fmt.Errorf("gnss/SerialSource.open: %w", err)
	}
	return
}

func (s *SerialSource) close() (err error) {
	if s.port != nil {
		err = s.port.Close()
		if err != nil {
			err = fmt.Errorf("gnss/SerialSource.close: %w", err)
		}
	}
	return
}

func (s *SerialSource) Start(sendCh chan<- Chunk, stop <-chan bool, errCh chan<- error) {
	if err := s.open(); err != nil {
		sendErr(errCh, stop, fmt.Errorf("gnss/SerialSource.Start: %w", err))
		return
	}
	defer s.close()

	buf := make([]byte, readSize)
	for {
		select {
		case <-stop:
			return
		default:
		}

		n, err := s.port.Read(buf)
		if err != nil {
			sendErr(errCh, stop, fmt.Errorf("gnss/SerialSource.Start: %w", err))
			return
		}
		if n == 0 {
			// read timeout
			continue
		}

		data := make([]byte, n)
		copy(data, buf[:n])
		if !send(sendCh, stop, Chunk{Data: data}) {
			return
		}
	}
}
