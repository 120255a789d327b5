// Copyright 2021 Clayton Craft <clayton@craftyguy.net>
// SPDX-License-Identifier: GPL-3.0-or-later

package geo

import (
	"math"

	"github.com/golang/geo/r3"
)

// MetersPerDegreeLat is the length of one degree of latitude used by the
// local tangent-plane approximation.
const MetersPerDegreeLat = 111320.0

// LocalPoint is a fix expressed in the local frame around a Center: x grows
// east, y grows up and z grows south, so north lies toward -z.
type LocalPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (p LocalPoint) Vector() r3.Vector {
	return r3.Vector{X: p.X, Y: p.Y, Z: p.Z}
}

func localPointFromVector(v r3.Vector) LocalPoint {
	return LocalPoint{X: v.X, Y: v.Y, Z: v.Z}
}

// Compass directions of the local frame, for labelling a render grid.
var (
	North = r3.Vector{X: 0, Y: 0, Z: -1}
	East  = r3.Vector{X: 1, Y: 0, Z: 0}
	Up    = r3.Vector{X: 0, Y: 1, Z: 0}
)

// Projection maps fixes onto an equirectangular local plane. It is only
// accurate over a few tens of kilometres.
//
// HorizontalScale multiplies east/north metres and VerticalExaggeration
// multiplies altitude deltas. Both deliberately distort the geometry so that
// small altitude changes stay visible.
type Projection struct {
	HorizontalScale      float64 `json:"horizontal_scale"`
	VerticalExaggeration float64 `json:"vertical_exaggeration"`
}

func DefaultProjection() Projection {
	return Projection{
		HorizontalScale:      1.0,
		VerticalExaggeration: 5.0,
	}
}

// Project returns the position of f relative to c.
func (p Projection) Project(f Fix, c Center) LocalPoint {
	metersPerDegreeLon := math.Cos(c.Lat*math.Pi/180) * MetersPerDegreeLat

	east := East.Mul((f.Lon - c.Lon) * metersPerDegreeLon * p.HorizontalScale)
	north := North.Mul((f.Lat - c.Lat) * MetersPerDegreeLat * p.HorizontalScale)
	up := Up.Mul((f.Alt - c.Alt) * p.VerticalExaggeration)

	return localPointFromVector(east.Add(north).Add(up))
}
