package bridge

import (
	"strings"
	"unicode/utf8"
)

// Truncation selects how a read value longer than the negotiated unit is
// shortened.
type Truncation uint8

const (
	// TruncateBytes cuts the value at the byte limit, possibly in the middle
	// of a multi-byte UTF-8 sequence.
	TruncateBytes Truncation = iota

	// TruncateRunes cuts the value at the last UTF-8 rune boundary that fits.
	TruncateRunes
)

func (t Truncation) String() string {
	switch t {
	case TruncateBytes:
		return "bytes"
	case TruncateRunes:
		return "runes"
	default:
		return "unknown"
	}
}

// ParseTruncation parses "bytes" or "runes".
func ParseTruncation(s string) (Truncation, error) {
	switch strings.ToLower(s) {
	case "bytes", "":
		return TruncateBytes, nil
	case "runes", "utf8":
		return TruncateRunes, nil
	}
	return 0, ErrInvalidTruncation
}

// apply returns b shortened to at most limit bytes.
func (t Truncation) apply(b []byte, limit int) []byte {
	if limit < 0 {
		limit = 0
	}
	if len(b) <= limit {
		return b
	}
	n := limit
	if t == TruncateRunes {
		for n > 0 && !utf8.RuneStart(b[n]) {
			n--
		}
	}
	return b[:n]
}
