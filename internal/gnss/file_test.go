// Copyright 2021 Clayton Craft <clayton@craftyguy.net>
// SPDX-License-Identifier: GPL-3.0-or-later

package gnss

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recv(t *testing.T, ch <-chan Chunk) Chunk {
	t.Helper()
	select {
	case c := <-ch:
		return c
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for chunk")
	}
	return Chunk{}
}

func TestFileSourceFollowsAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gnss.ubx")
	require.NoError(t, os.WriteFile(path, []byte("first"), 0644))

	sendCh := make(chan Chunk)
	errCh := make(chan error, 1)
	stop := make(chan bool)
	done := make(chan struct{})
	go func() {
		NewFileSource(path, 10*time.Millisecond).Start(sendCh, stop, errCh)
		close(done)
	}()

	c := recv(t, sendCh)
	assert.Equal(t, "first", string(c.Data))
	assert.False(t, c.Reset)

	fd, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = fd.WriteString(",second")
	require.NoError(t, err)
	require.NoError(t, fd.Close())

	c = recv(t, sendCh)
	assert.Equal(t, ",second", string(c.Data))

	// the truncation may be observed before the new content is written
	require.NoError(t, os.WriteFile(path, []byte("new"), 0644))
	c = recv(t, sendCh)
	assert.True(t, c.Reset)
	if len(c.Data) == 0 {
		c = recv(t, sendCh)
	}
	assert.Equal(t, "new", string(c.Data))

	close(stop)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("source did not stop")
	}
	assert.Empty(t, errCh)
}

func TestFileSourceWaitsForFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "later.ubx")

	sendCh := make(chan Chunk)
	errCh := make(chan error, 1)
	stop := make(chan bool)
	defer close(stop)
	go NewFileSource(path, 10*time.Millisecond).Start(sendCh, stop, errCh)

	time.Sleep(30 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("$GNGGA"), 0644))

	c := recv(t, sendCh)
	assert.Equal(t, "$GNGGA", string(c.Data))
}

func TestFileSourceFollowsRotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gnss.ubx")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0644))

	sendCh := make(chan Chunk)
	errCh := make(chan error, 1)
	stop := make(chan bool)
	defer close(stop)
	go NewFileSource(path, 10*time.Millisecond).Start(sendCh, stop, errCh)

	c := recv(t, sendCh)
	assert.Equal(t, "old", string(c.Data))

	// rotated, and the new file is already longer than the old one
	tmp := filepath.Join(dir, "gnss.ubx.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("rotated log"), 0644))
	require.NoError(t, os.Rename(path, filepath.Join(dir, "gnss.ubx.1")))
	require.NoError(t, os.Rename(tmp, path))

	c = recv(t, sendCh)
	assert.True(t, c.Reset)
	assert.Equal(t, "rotated log", string(c.Data))
	assert.Empty(t, errCh)
}
