// Copyright 2021 Clayton Craft <clayton@craftyguy.net>
// SPDX-License-Identifier: GPL-3.0-or-later

package gnss

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const readSize = 32 * 1024

// FileSource follows a log file that a receiver (or a logging tool) keeps
// appending to, re-reading it every interval.
type FileSource struct {
	path     string
	interval time.Duration
	offset   int64
	// file read by the last poll
	info   os.FileInfo
	logger zerolog.Logger
}

func NewFileSource(path string, interval time.Duration) *FileSource {
	return &FileSource{
		path:     path,
		interval: interval,
		logger:   log.With().Str("module", "gnss").Str("path", path).Logger(),
	}
}

func (f *FileSource) Start(sendCh chan<- Chunk, stop <-chan bool, errCh chan<- error) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		if err := f.poll(sendCh, stop); err != nil {
			sendErr(errCh, stop, fmt.Errorf("gnss/FileSource.Start: %w", err))
			return
		}

		select {
		case <-stop:
			return
		case <-ticker.C:
		}
	}
}

// poll sends everything appended to the file since the last call.
func (f *FileSource) poll(sendCh chan<- Chunk, stop <-chan bool) (err error) {
	fd, err := os.Open(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		// the logger may not have created it yet
		f.logger.Debug().Msg("log file does not exist yet")
		return nil
	}
	if err != nil {
		return
	}
	defer fd.Close()

	info, err := fd.Stat()
	if err != nil {
		return
	}

	reset := false
	switch {
	case f.info != nil && !os.SameFile(f.info, info):
		f.logger.Info().Msg("log file replaced, reloading")
		f.offset = 0
		reset = true
	case info.Size() < f.offset:
		f.logger.Info().Int64("size", info.Size()).Int64("offset", f.offset).Msg("log file truncated, reloading")
		f.offset = 0
		reset = true
	}
	f.info = info
	if _, err = fd.Seek(f.offset, io.SeekStart); err != nil {
		return
	}

	buf := make([]byte, readSize)
	for {
		n, rerr := fd.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			if !send(sendCh, stop, Chunk{Data: data, Reset: reset}) {
				return nil
			}
			f.offset += int64(n)
			reset = false
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return rerr
		}
	}

	if reset {
		// truncated to nothing
		send(sendCh, stop, Chunk{Reset: true})
	}
	return nil
}
