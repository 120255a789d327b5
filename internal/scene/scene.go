// Copyright 2021 Clayton Craft <clayton@craftyguy.net>
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scene holds the accumulated fix set of a session and turns it into
// render-ready frames.
package scene

import (
	"fmt"

	"github.com/golang/geo/r3"

	"gitlab.com/postmarketOS/gnss_cloud/internal/geo"
)

// CenterPolicy decides what happens to the frame center when fixes are
// appended to a non-empty state.
type CenterPolicy string

const (
	// CenterFreeze keeps the center computed at the first non-empty load so
	// the view stays put while a log grows.
	CenterFreeze CenterPolicy = "freeze"
	// CenterFollow recomputes the center over all fixes on every append.
	CenterFollow CenterPolicy = "follow"
)

type Options struct {
	Projection geo.Projection
	Policy     CenterPolicy
	// Observer, if set, replaces the computed center with a fixed reference
	// position.
	Observer *geo.Center
}

func DefaultOptions() Options {
	return Options{
		Projection: geo.DefaultProjection(),
		Policy:     CenterFreeze,
	}
}

// State is the fix set of one loaded log. It is not safe for concurrent use.
type State struct {
	opts     Options
	fixes    []geo.Fix
	center   geo.Center
	centered bool
}

func New(opts Options) *State {
	return &State{opts: opts}
}

// Load replaces the fix set, as when a new file is opened.
func (s *State) Load(fixes []geo.Fix) {
	s.Reset()
	s.Append(fixes)
}

// Append adds newly decoded fixes to the set.
func (s *State) Append(fixes []geo.Fix) {
	if len(fixes) == 0 {
		return
	}
	s.fixes = append(s.fixes, fixes...)

	if s.centered && s.opts.Policy == CenterFreeze {
		return
	}
	s.recenter()
}

func (s *State) recenter() {
	if s.opts.Observer != nil {
		s.center = *s.opts.Observer
		s.centered = true
		return
	}
	b, err := geo.ComputeBounds(s.fixes)
	if err != nil {
		return
	}
	s.center = b.Center()
	s.centered = true
}

func (s *State) Reset() {
	s.fixes = nil
	s.center = geo.Center{}
	s.centered = false
}

func (s *State) Len() int {
	return len(s.fixes)
}

// Fixes returns a copy of the accumulated fixes.
func (s *State) Fixes() []geo.Fix {
	return append([]geo.Fix(nil), s.fixes...)
}

// Center returns the active center; ok is false while the state is empty.
func (s *State) Center() (c geo.Center, ok bool) {
	return s.center, s.centered
}

// Point is one fix placed in the local frame.
type Point struct {
	geo.Fix
	Local    geo.LocalPoint `json:"local"`
	AltRatio float64        `json:"alt_ratio"`
}

type Axes struct {
	North geo.LocalPoint `json:"north"`
	East  geo.LocalPoint `json:"east"`
	Up    geo.LocalPoint `json:"up"`
}

// Frame is everything a renderer needs to draw the current fix set.
type Frame struct {
	Bounds     geo.Bounds     `json:"bounds"`
	Center     geo.Center     `json:"center"`
	Projection geo.Projection `json:"projection"`
	Axes       Axes           `json:"axes"`
	// Radius is the distance from the origin to the farthest point.
	Radius float64 `json:"radius"`
	Points []Point `json:"points"`
}

// Frame projects the current fix set. Bounds always cover every fix, even
// when the center is frozen. It returns geo.ErrNoFixes when the state is empty.
func (s *State) Frame() (f Frame, err error) {
	f.Bounds, err = geo.ComputeBounds(s.fixes)
	if err != nil {
		err = fmt.Errorf("scene.Frame: %w", err)
		return
	}

	f.Center = s.center
	f.Projection = s.opts.Projection
	f.Axes = Axes{
		North: geo.LocalPoint{X: geo.North.X, Y: geo.North.Y, Z: geo.North.Z},
		East:  geo.LocalPoint{X: geo.East.X, Y: geo.East.Y, Z: geo.East.Z},
		Up:    geo.LocalPoint{X: geo.Up.X, Y: geo.Up.Y, Z: geo.Up.Z},
	}

	f.Points = make([]Point, len(s.fixes))
	var far r3.Vector
	for i, fix := range s.fixes {
		local := s.opts.Projection.Project(fix, s.center)
		if v := local.Vector(); v.Norm() > far.Norm() {
			far = v
		}
		f.Points[i] = Point{
			Fix:      fix,
			Local:    local,
			AltRatio: geo.AltRatio(fix, f.Bounds),
		}
	}
	f.Radius = far.Norm()
	return
}
