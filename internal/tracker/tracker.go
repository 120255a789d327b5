// Copyright 2021 Clayton Craft <clayton@craftyguy.net>
// SPDX-License-Identifier: GPL-3.0-or-later

// Package tracker runs the live pipeline: raw receiver output in, projected
// frames out.
package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"gitlab.com/postmarketOS/gnss_cloud/internal/geo"
	"gitlab.com/postmarketOS/gnss_cloud/internal/gnss"
	"gitlab.com/postmarketOS/gnss_cloud/internal/nmea"
	"gitlab.com/postmarketOS/gnss_cloud/internal/scene"
)

// FixPublisher forwards individual fixes to another system.
type FixPublisher interface {
	PublishFix(f geo.Fix) error
}

type Options struct {
	Scene           scene.Options
	DropImplausible bool
	// Broadcast, if not nil, receives every new frame encoded as JSON.
	Broadcast chan<- []byte
	Publisher FixPublisher
}

type Tracker struct {
	opts    Options
	scanner nmea.Scanner
	logger  zerolog.Logger

	// guards state and the cached frame
	mu      sync.RWMutex
	state   *scene.State
	frame   scene.Frame
	hasData bool
	stats   nmea.Stats
}

func New(opts Options) *Tracker {
	return &Tracker{
		opts:   opts,
		state:  scene.New(opts.Scene),
		logger: log.With().Str("module", "tracker").Logger(),
	}
}

// Run consumes src until ctx is cancelled, src stops on its own, or src
// reports an error.
func (t *Tracker) Run(ctx context.Context, src gnss.Source) error {
	sendCh := make(chan gnss.Chunk)
	errCh := make(chan error, 1)
	stop := make(chan bool)
	done := make(chan struct{})

	go func() {
		src.Start(sendCh, stop, errCh)
		close(done)
	}()
	defer func() {
		close(stop)
		<-done
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			return fmt.Errorf("tracker.Run: %w", err)
		case <-done:
			select {
			case err := <-errCh:
				return fmt.Errorf("tracker.Run: %w", err)
			default:
				return nil
			}
		case c := <-sendCh:
			t.handle(c)
		}
	}
}

func (t *Tracker) handle(c gnss.Chunk) {
	if c.Reset {
		t.scanner.Reset()
		t.mu.Lock()
		t.state.Reset()
		t.hasData = false
		t.frame = scene.Frame{}
		t.stats = nmea.Stats{}
		t.mu.Unlock()
		t.logger.Info().Msg("source restarted, cleared fixes")
	}

	fixes, st := nmea.DecodeAll(t.scanner.Feed(c.Data))
	if st.Skipped > 0 {
		t.logger.Debug().Int("skipped", st.Skipped).Int("sentences", st.Sentences).Msg("skipped undecodable sentences")
	}
	if t.opts.DropImplausible {
		fixes = geo.Plausible(fixes)
	}
	if len(fixes) == 0 {
		t.mu.Lock()
		t.addStats(st)
		t.mu.Unlock()
		return
	}

	t.mu.Lock()
	t.addStats(st)
	t.state.Append(fixes)
	frame, err := t.state.Frame()
	if err == nil {
		t.frame = frame
		t.hasData = true
	}
	total := t.state.Len()
	t.mu.Unlock()
	if err != nil {
		t.logger.Error().Err(err).Msg("unable to build frame")
		return
	}
	t.logger.Debug().Int("new", len(fixes)).Int("total", total).Msg("appended fixes")

	t.publish(fixes)
	t.broadcast(frame)
}

func (t *Tracker) addStats(st nmea.Stats) {
	t.stats.Sentences += st.Sentences
	t.stats.Skipped += st.Skipped
}

func (t *Tracker) publish(fixes []geo.Fix) {
	if t.opts.Publisher == nil {
		return
	}
	for _, f := range fixes {
		if err := t.opts.Publisher.PublishFix(f); err != nil {
			// not fatal
			t.logger.Warn().Err(err).Msg("unable to publish fix")
		}
	}
}

func (t *Tracker) broadcast(frame scene.Frame) {
	if t.opts.Broadcast == nil {
		return
	}
	msg, err := json.Marshal(frame)
	if err != nil {
		t.logger.Error().Err(err).Msg("unable to encode frame")
		return
	}
	t.opts.Broadcast <- msg
}

// Frame returns the most recent frame. It returns geo.ErrNoFixes until the
// first fix has been decoded.
func (t *Tracker) Frame() (scene.Frame, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.hasData {
		return scene.Frame{}, geo.ErrNoFixes
	}
	return t.frame, nil
}

func (t *Tracker) Summary() (geo.Summary, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return geo.Summarize(t.state.Fixes())
}

// Stats counts the sentences seen since the last source restart.
func (t *Tracker) Stats() nmea.Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.stats
}
