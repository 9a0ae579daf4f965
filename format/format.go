// Package format renders durations and relative times for chat replies and
// applies the cosmetic leet and yell text transforms.
package format

import (
	"fmt"
	"strings"
	"time"
)

const (
	secondsPerMinute = 60
	secondsPerHour   = 60 * secondsPerMinute
	secondsPerDay    = 24 * secondsPerHour
)

// Duration breaks a number of seconds into days, hours and minutes, e.g.
// 3661 -> "1 hour(s) and 1 minute(s)". Seconds are truncated and zero
// components omitted.
func Duration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	days := seconds / secondsPerDay
	hours := (seconds % secondsPerDay) / secondsPerHour
	minutes := (seconds % secondsPerHour) / secondsPerMinute

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%d day(s)", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%d hour(s)", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%d minute(s)", minutes))
	}
	switch len(parts) {
	case 0:
		return "less than a minute"
	case 1:
		return parts[0]
	default:
		return strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1]
	}
}

// Ago phrases t relative to now ("2 day(s) ago", "just now", "in 5 minute(s)").
func Ago(t, now time.Time) string {
	d := now.Sub(t)
	if d < 0 {
		if -d < time.Minute {
			return "just now"
		}
		return "in " + Duration(int64((-d).Seconds()))
	}
	if d < time.Minute {
		return "just now"
	}
	return Duration(int64(d.Seconds())) + " ago"
}

var leetReplacer = strings.NewReplacer(
	"a", "4", "A", "4",
	"b", "8", "B", "8",
	"e", "3", "E", "3",
	"g", "9", "G", "9",
	"i", "1", "I", "1",
	"o", "0", "O", "0",
	"s", "5", "S", "5",
	"t", "7", "T", "7",
)

// Leet substitutes look-alike digits for letters. Applying it to its own
// output changes nothing.
func Leet(text string) string {
	return leetReplacer.Replace(text)
}

// boldMarker is the IRC control code toggling bold text.
const boldMarker = "\x02"

// Yell upper-cases text and wraps it in bold markers.
func Yell(text string) string {
	return boldMarker + strings.ToUpper(text) + boldMarker
}
