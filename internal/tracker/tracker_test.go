// Copyright 2021 Clayton Craft <clayton@craftyguy.net>
// SPDX-License-Identifier: GPL-3.0-or-later

package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/postmarketOS/gnss_cloud/internal/geo"
	"gitlab.com/postmarketOS/gnss_cloud/internal/gnss"
	"gitlab.com/postmarketOS/gnss_cloud/internal/nmea"
	"gitlab.com/postmarketOS/gnss_cloud/internal/scene"
)

// fakeSource replays fixed chunks and then stops.
type fakeSource struct {
	chunks []gnss.Chunk
	err    error
}

func (f *fakeSource) Start(sendCh chan<- gnss.Chunk, stop <-chan bool, errCh chan<- error) {
	for _, c := range f.chunks {
		select {
		case sendCh <- c:
		case <-stop:
			return
		}
	}
	if f.err != nil {
		errCh <- f.err
	}
}

type recordingPublisher struct {
	fixes []geo.Fix
}

func (r *recordingPublisher) PublishFix(f geo.Fix) error {
	r.fixes = append(r.fixes, f)
	return nil
}

func gga(ts, lat, lon, quality, alt string) string {
	return nmea.Sentence{
		Type: "GNGGA",
		Data: []string{ts, lat, "N", lon, "E", quality, "08", "0.9", alt, "M", "46.9", "M", "", ""},
	}.String()
}

func chunks(text string, size int) (out []gnss.Chunk) {
	for i := 0; i < len(text); i += size {
		end := i + size
		if end > len(text) {
			end = len(text)
		}
		out = append(out, gnss.Chunk{Data: []byte(text[i:end])})
	}
	return
}

func TestRunSplitChunks(t *testing.T) {
	text := gga("100000", "4807.000", "01131.000", "1", "500.0") + "\r\n" +
		gga("100001", "4807.000", "01131.000", "0", "500.0") + "\r\n" +
		gga("100002", "4807.100", "01131.100", "1", "510.0") + "\r\n"

	broadcast := make(chan []byte, 16)
	pub := &recordingPublisher{}
	tr := New(Options{Scene: scene.DefaultOptions(), Broadcast: broadcast, Publisher: pub})

	_, err := tr.Frame()
	assert.ErrorIs(t, err, geo.ErrNoFixes)

	require.NoError(t, tr.Run(context.Background(), &fakeSource{chunks: chunks(text, 7)}))

	frame, err := tr.Frame()
	require.NoError(t, err)
	require.Len(t, frame.Points, 2)
	assert.Equal(t, "100000", frame.Points[0].Timestamp)
	assert.Equal(t, "100002", frame.Points[1].Timestamp)
	// center frozen at the first fix
	assert.Equal(t, geo.LocalPoint{}, frame.Points[0].Local)
	assert.Equal(t, 1.0, frame.Points[1].AltRatio)

	assert.Equal(t, nmea.Stats{Sentences: 3, Skipped: 1}, tr.Stats())
	assert.Len(t, pub.fixes, 2)

	require.Len(t, broadcast, 2)
	<-broadcast
	var last scene.Frame
	require.NoError(t, json.Unmarshal(<-broadcast, &last))
	assert.Len(t, last.Points, 2)

	s, err := tr.Summary()
	require.NoError(t, err)
	assert.Equal(t, 2, s.Count)
}

func TestRunReset(t *testing.T) {
	src := &fakeSource{chunks: []gnss.Chunk{
		{Data: []byte(gga("100000", "4807.000", "01131.000", "1", "500.0"))},
		{Data: []byte(gga("200000", "3000.000", "01000.000", "1", "10.0")), Reset: true},
	}}
	tr := New(Options{Scene: scene.DefaultOptions()})
	require.NoError(t, tr.Run(context.Background(), src))

	frame, err := tr.Frame()
	require.NoError(t, err)
	require.Len(t, frame.Points, 1)
	assert.Equal(t, "200000", frame.Points[0].Timestamp)
	assert.Equal(t, 30.0, frame.Center.Lat)
}

func TestRunSourceError(t *testing.T) {
	boom := errors.New("boom")
	tr := New(Options{Scene: scene.DefaultOptions()})
	err := tr.Run(context.Background(), &fakeSource{err: boom})
	assert.ErrorIs(t, err, boom)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// a source that never ends on its own
	src := gnss.NewFileSource(t.TempDir()+"/missing.ubx", time.Second)
	tr := New(Options{Scene: scene.DefaultOptions()})
	assert.NoError(t, tr.Run(ctx, src))
}
