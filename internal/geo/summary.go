// Copyright 2021 Clayton Craft <clayton@craftyguy.net>
// SPDX-License-Identifier: GPL-3.0-or-later

package geo

import (
	golanggeo "github.com/kellydunn/golang-geo"
)

// Summary describes a track as a whole.
type Summary struct {
	Count      int     `json:"count"`
	Bounds     Bounds  `json:"bounds"`
	Center     Center  `json:"center"`
	AltRange   float64 `json:"alt_range"`
	FirstTime  string  `json:"first_time"`
	LastTime   string  `json:"last_time"`
	Last       Fix     `json:"last"`
	PathMeters float64 `json:"path_meters"`
	// Bearing from the first to the last fix, in degrees from north.
	Bearing float64 `json:"bearing"`
}

func Summarize(fixes []Fix) (s Summary, err error) {
	s.Bounds, err = ComputeBounds(fixes)
	if err != nil {
		return
	}

	first, last := fixes[0], fixes[len(fixes)-1]
	s.Count = len(fixes)
	s.Center = s.Bounds.Center()
	s.AltRange = s.Bounds.MaxAlt - s.Bounds.MinAlt
	s.FirstTime = first.Timestamp
	s.LastTime = last.Timestamp
	s.Last = last

	prev := golanggeo.NewPoint(first.Lat, first.Lon)
	for _, f := range fixes[1:] {
		p := golanggeo.NewPoint(f.Lat, f.Lon)
		// GreatCircleDistance is in kilometres
		s.PathMeters += prev.GreatCircleDistance(p) * 1000
		prev = p
	}
	if len(fixes) > 1 {
		s.Bearing = golanggeo.NewPoint(first.Lat, first.Lon).BearingTo(prev)
	}
	return
}
