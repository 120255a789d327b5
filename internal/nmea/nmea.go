// Copyright 2021 Clayton Craft <clayton@craftyguy.net>
// SPDX-License-Identifier: GPL-3.0-or-later

package nmea

import (
	"fmt"
	"strings"
)

type Sentence struct {
	Type string
	Data []string
}

func checksum(s string) string {
	var sum uint8
	for i := 0; i < len(s); i++ {
		sum ^= s[i]
	}

	return fmt.Sprintf("%02X", sum)
}

func (s Sentence) String() string {
	sentence := s.Type
	for _, d := range s.Data {
		sentence = fmt.Sprintf("%s,%s", sentence, d)
	}

	if len(s.Data) == 0 {
		// always make sure the type is followed by a comma if there is no data
		sentence = fmt.Sprintf("%s,", sentence)
	}

	str := fmt.Sprintf("$%s*%s", sentence, checksum(sentence))
	return str
}

func (s Sentence) Bytes() []byte {
	return []byte(s.String())
}

// Fields returns the sentence split the way it appears on the wire, with the
// '$'-prefixed type token first.
func (s Sentence) Fields() []string {
	return append([]string{"$" + s.Type}, s.Data...)
}

// ParseSentence splits a raw "$TYPE,d1,d2,...*HH" sentence. The checksum
// suffix only delimits the sentence and is not verified.
func ParseSentence(raw string) (s Sentence, ok bool) {
	if !strings.HasPrefix(raw, "$") {
		return
	}
	payload := raw[1:]
	if star := strings.LastIndexByte(payload, '*'); star != -1 && len(payload)-star == 3 &&
		isHex(payload[star+1]) && isHex(payload[star+2]) {
		payload = payload[:star]
	}

	parts := strings.Split(payload, ",")
	if parts[0] == "" {
		return
	}
	s.Type = parts[0]
	s.Data = parts[1:]
	ok = true
	return
}
