// Copyright 2021 Clayton Craft <clayton@craftyguy.net>
// SPDX-License-Identifier: GPL-3.0-or-later

package nmea

import (
	"math"
	"strconv"
	"strings"

	"gitlab.com/postmarketOS/gnss_cloud/internal/geo"
)

// GGAMinFields is the minimum number of comma separated fields, type token
// included, a GNGGA sentence needs to be decoded. Receivers logging UBX often
// truncate the optional trailing fields, so only the fields up to altitude
// are required.
const GGAMinFields = 10

// GGA field layout:
//
//	0: $GNGGA
//	1: time (hhmmss.ss)
//	2: latitude (ddmm.mmmm)
//	3: N/S
//	4: longitude (dddmm.mmmm)
//	5: E/W
//	6: fix quality (0=invalid)
//	7: number of satellites
//	8: HDOP
//	9: altitude (meters)
const (
	ggaTime = iota + 1
	ggaLat
	ggaLatHemi
	ggaLon
	ggaLonHemi
	ggaQuality
	ggaSats
	ggaHDOP
	ggaAlt
)

// DecodeGGA decodes one GNGGA sentence. ok is false when the sentence has no
// usable position; such sentences are meant to be skipped, not reported.
func DecodeGGA(sentence string) (fix geo.Fix, ok bool) {
	s, ok := ParseSentence(strings.TrimSpace(sentence))
	if !ok {
		return
	}
	f := s.Fields()
	ok = false
	if f[0] != ggaPrefix || len(f) < GGAMinFields {
		return
	}
	if q, err := strconv.Atoi(strings.TrimSpace(f[ggaQuality])); err == nil && q == 0 {
		return
	}

	lat, latOK := parseCoordinate(f[ggaLat], f[ggaLatHemi], "N", "S")
	lon, lonOK := parseCoordinate(f[ggaLon], f[ggaLonHemi], "E", "W")
	if !latOK || !lonOK {
		return
	}

	ts := strings.TrimSpace(f[ggaTime])
	if ts == "" {
		return
	}

	alt, err := strconv.ParseFloat(strings.TrimSpace(f[ggaAlt]), 64)
	if err != nil || math.IsNaN(alt) || math.IsInf(alt, 0) {
		alt = 0
	}

	return geo.Fix{Timestamp: ts, Lat: lat, Lon: lon, Alt: alt}, true
}

// parseCoordinate converts a ddmm.mmmm (or dddmm.mmmm) value and its
// hemisphere letter into signed decimal degrees.
func parseCoordinate(v, hemi, pos, neg string) (float64, bool) {
	hemi = strings.ToUpper(strings.TrimSpace(hemi))
	if hemi != pos && hemi != neg {
		return 0, false
	}
	v = strings.TrimSpace(v)
	// the hemisphere carries the sign
	if strings.HasPrefix(v, "-") || strings.HasPrefix(v, "+") {
		return 0, false
	}
	raw, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 0, false
	}

	deg := math.Floor(raw / 100)
	dec := deg + math.Mod(raw, 100)/60
	if hemi == neg {
		dec = -dec
	}
	return dec, true
}

// ExtractFixes decodes every GNGGA sentence in text, dropping the ones that
// cannot be decoded. Input order is preserved.
func ExtractFixes(text string) []geo.Fix {
	fixes, _ := ExtractFixesStats(text)
	return fixes
}

// Stats counts what happened to the sentences in a batch.
type Stats struct {
	Sentences int `json:"sentences"`
	Skipped   int `json:"skipped"`
}

func ExtractFixesStats(text string) (fixes []geo.Fix, st Stats) {
	return DecodeAll(Extract(text))
}

// DecodeAll decodes sentences in order and drops the undecodable ones.
func DecodeAll(sentences []string) (fixes []geo.Fix, st Stats) {
	fixes = make([]geo.Fix, 0, len(sentences))
	for _, s := range sentences {
		st.Sentences++
		f, ok := DecodeGGA(s)
		if !ok {
			st.Skipped++
			continue
		}
		fixes = append(fixes, f)
	}
	return
}
