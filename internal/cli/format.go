// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"
)

// FormatCount adds comma separators to a count.
// e.g., 4000 -> "4,000"
func FormatCount(n int) string {
	return humanize.Comma(int64(n))
}

// FormatMoney formats a currency amount with separators and no decimals.
// e.g., 1234567.8 -> "1,234,568"
func FormatMoney(v float64) string {
	return humanize.Comma(int64(math.Round(v)))
}

// FormatBytes formats a file size.
// e.g., 182734 -> "183 kB"
func FormatBytes(n int64) string {
	if n < 0 {
		return "?"
	}
	return humanize.Bytes(uint64(n))
}

// FormatAgo formats t relative to now, e.g. "3 hours ago".
func FormatAgo(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// FormatMonths formats a months-needed value to two decimals.
func FormatMonths(m float64) string {
	return fmt.Sprintf("%.2f", m)
}

// FormatPercent formats a 0-1 float as a percentage string.
func FormatPercent(f float64) string {
	return fmt.Sprintf("%.2f%%", f*100)
}

// FormatLoss formats a loss value.
func FormatLoss(v float64) string {
	if math.IsNaN(v) {
		return "nan"
	}
	return fmt.Sprintf("%.4f", v)
}

// FormatDuration formats a wall-clock duration.
// e.g., 3725s -> "1h 2m", 125s -> "2m 5s", 45s -> "45s"
func FormatDuration(d time.Duration) string {
	secs := int64(d.Round(time.Second) / time.Second)
	if secs <= 0 {
		return "0s"
	}

	hours := secs / 3600
	mins := (secs % 3600) / 60
	rem := secs % 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, mins)
	case mins > 0:
		return fmt.Sprintf("%dm %ds", mins, rem)
	default:
		return fmt.Sprintf("%ds", secs)
	}
}

// YesNo renders a boolean as the verdict token.
func YesNo(b bool) string {
	if b {
		return "YES"
	}
	return "NO"
}
