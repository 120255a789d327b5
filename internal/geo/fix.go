// Copyright 2021 Clayton Craft <clayton@craftyguy.net>
// SPDX-License-Identifier: GPL-3.0-or-later

package geo

import "math"

// Fix is a single decoded position. It is never mutated after decoding.
type Fix struct {
	Timestamp string  `json:"time"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Alt       float64 `json:"alt"`
}

// Plausible reports whether the fix falls within ranges a ground receiver
// can actually produce.
func (f Fix) Plausible() bool {
	switch {
	case math.IsNaN(f.Lat) || f.Lat < -90 || f.Lat > 90:
		return false
	case math.IsNaN(f.Lon) || f.Lon < -180 || f.Lon > 180:
		return false
	case math.IsNaN(f.Alt) || f.Alt < -1000 || f.Alt > 10000:
		return false
	}
	return true
}

// Plausible returns the fixes that pass Fix.Plausible, in order.
func Plausible(fixes []Fix) []Fix {
	out := make([]Fix, 0, len(fixes))
	for _, f := range fixes {
		if f.Plausible() {
			out = append(out, f)
		}
	}
	return out
}
