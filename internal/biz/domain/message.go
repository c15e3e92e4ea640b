package domain

import (
	"strconv"
	"time"
)

// Message represents a channel message kept for analysis.
// TS is the platform timestamp token (a fractional-seconds string); it is
// the authoritative ordering key across the buffer and history paths.
// AddedAt is local ingestion time, used only for buffer expiry.
type Message struct {
	User    string
	Text    string
	TS      string
	AddedAt time.Time
}

// TSValue parses a platform timestamp token for numeric comparison.
// Malformed tokens compare as zero.
func TSValue(ts string) float64 {
	v, err := strconv.ParseFloat(ts, 64)
	if err != nil {
		return 0
	}
	return v
}

// TSLess reports whether token a orders strictly before token b.
func TSLess(a, b string) bool {
	return TSValue(a) < TSValue(b)
}

// FormatTS renders a wall-clock time as a platform timestamp token.
func FormatTS(t time.Time) string {
	return strconv.FormatFloat(float64(t.UnixMicro())/1e6, 'f', 6, 64)
}
