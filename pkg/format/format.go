// Package format provides human-readable formatting for mythctl output.
package format

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Number formats a number with thousand separators.
// Example: Number(1234567) => "1,234,567"
func Number(n int64) string {
	return printer.Sprintf("%d", n)
}

// KiB formats a size reported in KiB, as MythTV reports disk space.
// Example: KiB(1536) => "1.5 MB"
func KiB(kib int64) string {
	return Bytes(kib * 1024)
}

// Bytes formats a byte count into human-readable format.
// Example: Bytes(1536) => "1.5 KB"
func Bytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit && exp < 4; m /= unit {
		div *= unit
		exp++
	}
	sizes := []string{"KB", "MB", "GB", "TB", "PB"}
	return fmt.Sprintf("%.1f %s", float64(n)/float64(div), sizes[exp])
}

// Percentage formats part as a percentage of total with one decimal.
// Example: Percentage(1, 3) => "33.3%"
func Percentage(part, total int64) string {
	if total <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", float64(part)*100/float64(total))
}

// Uptime formats a duration as days, hours and minutes.
// Example: Uptime(50*time.Hour + 3*time.Minute) => "2d 2h 3m"
func Uptime(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	days := int(d / (24 * time.Hour))
	d -= time.Duration(days) * 24 * time.Hour
	hours := int(d / time.Hour)
	d -= time.Duration(hours) * time.Hour
	mins := int(d / time.Minute)

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	parts = append(parts, fmt.Sprintf("%dm", mins))
	return strings.Join(parts, " ")
}

// Timestamp formats t in the local zone, or "-" when zero.
func Timestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

// RelativeTime formats t relative to now.
// Example: RelativeTime(now.Add(90*time.Minute), now) => "in 1 hour"
func RelativeTime(t, now time.Time) string {
	diff := t.Sub(now)
	if diff < 0 {
		return relative(-diff, "%s ago", "just now")
	}
	return relative(diff, "in %s", "in a moment")
}

func relative(d time.Duration, layout, moment string) string {
	var n int
	var unit string
	switch {
	case d < time.Minute:
		return moment
	case d < time.Hour:
		n, unit = int(d.Minutes()), "minute"
	case d < 24*time.Hour:
		n, unit = int(d.Hours()), "hour"
	default:
		n, unit = int(d.Hours()/24), "day"
	}
	if n != 1 {
		unit += "s"
	}
	return fmt.Sprintf(layout, fmt.Sprintf("%d %s", n, unit))
}

// Truncate shortens s to max runes, marking the cut with "...".
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max || max < 4 {
		return s
	}
	return string(r[:max-3]) + "..."
}
