// Copyright 2021 Clayton Craft <clayton@craftyguy.net>
// SPDX-License-Identifier: GPL-3.0-or-later

package geo

import (
	"errors"
	"math"
)

// ErrNoFixes is returned when an operation needs at least one fix.
var ErrNoFixes = errors.New("no valid points")

type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
	MinAlt float64 `json:"min_alt"`
	MaxAlt float64 `json:"max_alt"`
}

type Center struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
	Alt float64 `json:"alt"`
}

// ComputeBounds folds the componentwise extrema over fixes.
func ComputeBounds(fixes []Fix) (b Bounds, err error) {
	if len(fixes) == 0 {
		err = ErrNoFixes
		return
	}

	b = Bounds{
		MinLat: math.Inf(1), MaxLat: math.Inf(-1),
		MinLon: math.Inf(1), MaxLon: math.Inf(-1),
		MinAlt: math.Inf(1), MaxAlt: math.Inf(-1),
	}
	for _, f := range fixes {
		b.MinLat = math.Min(b.MinLat, f.Lat)
		b.MaxLat = math.Max(b.MaxLat, f.Lat)
		b.MinLon = math.Min(b.MinLon, f.Lon)
		b.MaxLon = math.Max(b.MaxLon, f.Lon)
		b.MinAlt = math.Min(b.MinAlt, f.Alt)
		b.MaxAlt = math.Max(b.MaxAlt, f.Alt)
	}
	return
}

// Center returns the midpoint of each axis.
func (b Bounds) Center() Center {
	return Center{
		Lat: (b.MinLat + b.MaxLat) / 2,
		Lon: (b.MinLon + b.MaxLon) / 2,
		Alt: (b.MinAlt + b.MaxAlt) / 2,
	}
}

func ComputeCenter(b Bounds) Center {
	return b.Center()
}

// AltRatio places f's altitude within the altitude span of b, 0 at MinAlt and
// 1 at MaxAlt. A flat dataset yields 0 for every point.
func AltRatio(f Fix, b Bounds) float64 {
	span := b.MaxAlt - b.MinAlt
	if span == 0 {
		return 0
	}
	return (f.Alt - b.MinAlt) / span
}
