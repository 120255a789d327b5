// Copyright 2021 Clayton Craft <clayton@craftyguy.net>
// SPDX-License-Identifier: GPL-3.0-or-later

package publish

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/postmarketOS/gnss_cloud/internal/geo"
)

func TestFixPayload(t *testing.T) {
	b, err := fixPayload(geo.Fix{Timestamp: "123519", Lat: 48.5, Lon: -11.25, Alt: 545.4})
	require.NoError(t, err)
	assert.JSONEq(t, `{"time":"123519","lat":48.5,"lon":-11.25,"alt":545.4}`, string(b))
}

func TestNewMQTTUnreachable(t *testing.T) {
	_, err := NewMQTT("tcp://127.0.0.1:1", "test", "gnss/fix")
	assert.Error(t, err)
}
