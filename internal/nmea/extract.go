// Copyright 2021 Clayton Craft <clayton@craftyguy.net>
// SPDX-License-Identifier: GPL-3.0-or-later

package nmea

import (
	"strings"
)

const ggaPrefix = "$GNGGA"

// MaxSentenceLen bounds how long an unterminated candidate may grow while
// streaming before it is discarded.
const MaxSentenceLen = 1024

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('A' <= c && c <= 'F') || ('a' <= c && c <= 'f')
}

// Extract returns every GNGGA sentence in text, in order. A sentence starts at
// the literal "$GNGGA" and ends at the first '*' followed by two hex digits.
// Candidates do not cross line breaks, and a "$GNGGA" seen inside an open
// candidate starts a new one.
func Extract(text string) []string {
	sentences, _ := scan(text)
	return sentences
}

// scan runs the matcher over text in a single pass. rest is the offset of the
// first byte that could still belong to a sentence completed by more input.
func scan(text string) (sentences []string, rest int) {
	start := -1
	i := 0
	for i < len(text) {
		if start < 0 {
			j := strings.Index(text[i:], ggaPrefix)
			if j < 0 {
				break
			}
			start = i + j
			i = start + len(ggaPrefix)
			continue
		}

		switch c := text[i]; {
		case c == '$' && strings.HasPrefix(text[i:], ggaPrefix):
			start = i
			i += len(ggaPrefix)
			continue
		case c == '\n' || c == '\r':
			start = -1
		case c == '*' && i+2 < len(text) && isHex(text[i+1]) && isHex(text[i+2]):
			sentences = append(sentences, text[start:i+3])
			start = -1
			i += 3
			rest = i
			continue
		}
		i++
	}

	if start >= 0 {
		return sentences, start
	}
	// a "$GNGGA" split across chunks leaves at most len(ggaPrefix)-1 bytes
	if tail := len(text) - (len(ggaPrefix) - 1); tail > rest {
		rest = tail
	}
	return sentences, rest
}

// Scanner extracts sentences from a stream delivered in arbitrary chunks,
// such as a log file that is still being written.
type Scanner struct {
	pending []byte
}

// Feed appends chunk to the stream and returns the sentences it completed.
func (s *Scanner) Feed(chunk []byte) []string {
	s.pending = append(s.pending, chunk...)
	text := string(s.pending)

	sentences, rest := scan(text)
	if len(text)-rest > MaxSentenceLen {
		rest = len(text)
	}
	s.pending = append(s.pending[:0], text[rest:]...)
	return sentences
}

func (s *Scanner) Reset() {
	s.pending = s.pending[:0]
}
