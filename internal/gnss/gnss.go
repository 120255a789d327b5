// Copyright 2021 Clayton Craft <clayton@craftyguy.net>
// SPDX-License-Identifier: GPL-3.0-or-later

package gnss

// Source delivers raw receiver output. Start blocks until the source is
// exhausted, stop is closed, or an error is sent on errCh.
type Source interface {
	Start(sendCh chan<- Chunk, stop <-chan bool, errCh chan<- error)
}

// Chunk is a slice of raw log bytes. Reset is set when the stream restarted
// from the beginning, e.g. after the log file was truncated, and anything
// accumulated from earlier chunks should be discarded.
type Chunk struct {
	Data  []byte
	Reset bool
}

// send delivers c unless stop is closed first.
func send(sendCh chan<- Chunk, stop <-chan bool, c Chunk) bool {
	select {
	case sendCh <- c:
		return true
	case <-stop:
		return false
	}
}

func sendErr(errCh chan<- error, stop <-chan bool, err error) {
	select {
	case errCh <- err:
	case <-stop:
	}
}
