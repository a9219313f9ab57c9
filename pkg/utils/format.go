package utils

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// FormatFileSize renders a byte count the way attachment bubbles show it
// ("1.2 MB", "340 kB").
func FormatFileSize(n int64) string {
	if n < 0 {
		return "0 B"
	}
	return humanize.Bytes(uint64(n))
}

// FormatDuration renders an audio/video duration as m:ss or h:mm:ss.
func FormatDuration(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds + 0.5)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// FormatElapsed renders how long ago ts (unix nanoseconds) was, relative
// to now ("3 minutes ago").
func FormatElapsed(ts int64, now time.Time) string {
	return humanize.RelTime(time.Unix(0, ts), now, "ago", "from now")
}
