// Copyright 2021 Clayton Craft <clayton@craftyguy.net>
// SPDX-License-Identifier: GPL-3.0-or-later

// Package export writes decoded tracks to self-contained files for offline
// viewing.
package export

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/tkrajina/gpxgo/gpx"

	"gitlab.com/postmarketOS/gnss_cloud/internal/geo"
	"gitlab.com/postmarketOS/gnss_cloud/internal/nmea"
	"gitlab.com/postmarketOS/gnss_cloud/internal/scene"
)

const creator = "gnss_cloud"

// Artifact is the JSON document written by WriteJSON.
type Artifact struct {
	Source  string      `json:"source"`
	Summary geo.Summary `json:"summary"`
	Frame   scene.Frame `json:"frame"`
	// Colors holds one "#rrggbb" per frame point, blue at the lowest
	// altitude through red at the highest.
	Colors []string `json:"colors"`
}

// AltColor maps an altitude ratio in [0, 1] onto a blue to red hue ramp.
func AltColor(ratio float64) string {
	if ratio < 0 {
		ratio = 0
	} else if ratio > 1 {
		ratio = 1
	}
	return colorful.Hsv(240*(1-ratio), 1, 1).Hex()
}

func NewArtifact(source string, s geo.Summary, f scene.Frame) Artifact {
	a := Artifact{
		Source:  source,
		Summary: s,
		Frame:   f,
		Colors:  make([]string, len(f.Points)),
	}
	for i, p := range f.Points {
		a.Colors[i] = AltColor(p.AltRatio)
	}
	return a
}

func WriteJSON(w io.Writer, a Artifact) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(a); err != nil {
		return fmt.Errorf("export.WriteJSON: %w", err)
	}
	return nil
}

// WriteGPX writes fixes as a single track segment. GGA carries no date, so
// the raw time of day is kept as each point's name.
func WriteGPX(w io.Writer, name string, fixes []geo.Fix) error {
	seg := gpx.GPXTrackSegment{
		Points: make([]gpx.GPXPoint, len(fixes)),
	}
	for i, f := range fixes {
		seg.Points[i] = gpx.GPXPoint{
			Point: gpx.Point{
				Latitude:  f.Lat,
				Longitude: f.Lon,
				Elevation: *gpx.NewNullableFloat64(f.Alt),
			},
			Name: f.Timestamp,
		}
	}

	g := gpx.GPX{
		Creator: creator,
		Tracks: []gpx.GPXTrack{{
			Name:     name,
			Segments: []gpx.GPXTrackSegment{seg},
		}},
	}
	b, err := g.ToXml(gpx.ToXmlParams{Version: "1.1", Indent: true})
	if err != nil {
		return fmt.Errorf("export.WriteGPX: %w", err)
	}
	if _, err = w.Write(b); err != nil {
		return fmt.Errorf("export.WriteGPX: %w", err)
	}
	return nil
}

// WriteNMEA writes the sentences that decode to a fix, one per line, with
// their checksums recomputed. With dropImplausible set, sentences whose fix
// fails geo.Fix.Plausible are left out too.
func WriteNMEA(w io.Writer, sentences []string, dropImplausible bool) (n int, err error) {
	bw := bufio.NewWriter(w)
	for _, raw := range sentences {
		fix, ok := nmea.DecodeGGA(raw)
		if !ok || (dropImplausible && !fix.Plausible()) {
			continue
		}
		s, _ := nmea.ParseSentence(raw)
		if _, err = fmt.Fprintf(bw, "%s\r\n", s); err != nil {
			err = fmt.Errorf("export.WriteNMEA: %w", err)
			return
		}
		n++
	}
	if err = bw.Flush(); err != nil {
		err = fmt.Errorf("export.WriteNMEA: %w", err)
	}
	return
}
