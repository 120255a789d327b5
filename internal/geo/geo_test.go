// Copyright 2021 Clayton Craft <clayton@craftyguy.net>
// SPDX-License-Identifier: GPL-3.0-or-later

package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeBounds(t *testing.T) {
	fixes := []Fix{
		{Timestamp: "1", Lat: 48.1, Lon: 11.5, Alt: 500},
		{Timestamp: "2", Lat: 48.3, Lon: 11.2, Alt: 550},
		{Timestamp: "3", Lat: 48.2, Lon: 11.9, Alt: 520},
	}

	b, err := ComputeBounds(fixes)
	require.NoError(t, err)
	assert.Equal(t, Bounds{MinLat: 48.1, MaxLat: 48.3, MinLon: 11.2, MaxLon: 11.9, MinAlt: 500, MaxAlt: 550}, b)

	c := ComputeCenter(b)
	assert.InDelta(t, 48.2, c.Lat, 1e-9)
	assert.InDelta(t, 11.55, c.Lon, 1e-9)
	assert.InDelta(t, 525, c.Alt, 1e-9)
}

func TestComputeBoundsEmpty(t *testing.T) {
	_, err := ComputeBounds(nil)
	assert.ErrorIs(t, err, ErrNoFixes)
}

// A repeated single fix collapses every axis onto that fix.
func TestComputeBoundsRepeatedFix(t *testing.T) {
	f := Fix{Timestamp: "123519", Lat: 48.1173, Lon: 11.5167, Alt: 545.4}

	b, err := ComputeBounds([]Fix{f, f, f})
	require.NoError(t, err)
	assert.Equal(t, b.MinLat, b.MaxLat)
	assert.Equal(t, b.MinLon, b.MaxLon)
	assert.Equal(t, b.MinAlt, b.MaxAlt)
	assert.Equal(t, Center{Lat: f.Lat, Lon: f.Lon, Alt: f.Alt}, b.Center())
}

func TestProjectCenterIsOrigin(t *testing.T) {
	tables := []Projection{
		DefaultProjection(),
		{HorizontalScale: 10, VerticalExaggeration: 5},
		{HorizontalScale: 1, VerticalExaggeration: 1},
	}
	c := Center{Lat: -33.86, Lon: 151.21, Alt: 12}

	for _, p := range tables {
		got := p.Project(Fix{Timestamp: "0", Lat: c.Lat, Lon: c.Lon, Alt: c.Alt}, c)
		assert.Zero(t, got.X)
		assert.Zero(t, got.Y)
		assert.Zero(t, got.Z)
	}
}

func TestProjectAxes(t *testing.T) {
	p := Projection{HorizontalScale: 2, VerticalExaggeration: 5}
	c := Center{Lat: 0, Lon: 0, Alt: 100}

	north := p.Project(Fix{Lat: 0.001, Lon: 0, Alt: 100}, c)
	assert.Less(t, north.Z, 0.0, "north must render toward -z")
	assert.InDelta(t, -0.001*MetersPerDegreeLat*2, north.Z, 1e-6)
	assert.InDelta(t, 0, north.X, 1e-9)

	east := p.Project(Fix{Lat: 0, Lon: 0.001, Alt: 100}, c)
	assert.InDelta(t, 0.001*MetersPerDegreeLat*2, east.X, 1e-6)

	up := p.Project(Fix{Lat: 0, Lon: 0, Alt: 102}, c)
	assert.InDelta(t, 10, up.Y, 1e-9)
}

func TestProjectLongitudeShrinksWithLatitude(t *testing.T) {
	p := DefaultProjection()
	c := Center{Lat: 60, Lon: 10}

	got := p.Project(Fix{Lat: 60, Lon: 10.01}, c)
	assert.InDelta(t, 0.01*math.Cos(60*math.Pi/180)*MetersPerDegreeLat, got.X, 1e-6)
}

func TestAltRatio(t *testing.T) {
	b := Bounds{MinAlt: 100, MaxAlt: 200}

	assert.Equal(t, 0.0, AltRatio(Fix{Alt: 100}, b))
	assert.Equal(t, 1.0, AltRatio(Fix{Alt: 200}, b))
	assert.InDelta(t, 0.25, AltRatio(Fix{Alt: 125}, b), 1e-12)

	flat := Bounds{MinAlt: 42, MaxAlt: 42}
	for _, alt := range []float64{41, 42, 43} {
		r := AltRatio(Fix{Alt: alt}, flat)
		assert.False(t, math.IsNaN(r))
		assert.Equal(t, 0.0, r)
	}
}

func TestPlausible(t *testing.T) {
	tables := []struct {
		in       Fix
		expected bool
	}{
		{Fix{Lat: 48.1, Lon: 11.5, Alt: 545}, true},
		{Fix{Lat: -90, Lon: -180, Alt: -1000}, true},
		{Fix{Lat: 91, Lon: 11.5, Alt: 545}, false},
		{Fix{Lat: 48.1, Lon: 181, Alt: 545}, false},
		{Fix{Lat: 48.1, Lon: 11.5, Alt: 10001}, false},
		{Fix{Lat: math.NaN(), Lon: 11.5}, false},
	}

	for _, table := range tables {
		assert.Equal(t, table.expected, table.in.Plausible(), "%+v", table.in)
	}

	assert.Len(t, Plausible([]Fix{tables[0].in, tables[2].in, tables[1].in}), 2)
}

func TestSummarize(t *testing.T) {
	fixes := []Fix{
		{Timestamp: "100000", Lat: 0, Lon: 0, Alt: 10},
		{Timestamp: "100001", Lat: 0.001, Lon: 0, Alt: 12},
		{Timestamp: "100002", Lat: 0.002, Lon: 0, Alt: 11},
	}

	s, err := Summarize(fixes)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, "100000", s.FirstTime)
	assert.Equal(t, "100002", s.LastTime)
	assert.Equal(t, fixes[2], s.Last)
	assert.InDelta(t, 2, s.AltRange, 1e-9)
	// 0.002 degrees of latitude is roughly 222 m
	assert.InDelta(t, 222, s.PathMeters, 2)
	assert.InDelta(t, 0, s.Bearing, 1e-6)

	_, err = Summarize(nil)
	assert.ErrorIs(t, err, ErrNoFixes)
}
