package monitor

import (
	"fmt"
	"math"
	"time"
)

// FormatDuration renders a duration the way the watcher reports waiting
// times: seconds under a minute, minutes and seconds under an hour, hours
// and minutes beyond that.
func FormatDuration(d time.Duration) string {
	seconds := d.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	if seconds < 60 {
		return fmt.Sprintf("%ds", int(math.Round(seconds)))
	}
	if seconds < 3600 {
		minutes := int(seconds) / 60
		rest := int(math.Round(math.Mod(seconds, 60)))
		if rest > 0 {
			return fmt.Sprintf("%dm %ds", minutes, rest)
		}
		return fmt.Sprintf("%dm", minutes)
	}
	hours := int(seconds) / 3600
	minutes := (int(seconds) % 3600) / 60
	if minutes > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dh", hours)
}

// effectiveThreshold doubles the pause threshold while a history
// summarization is pending, since the host rewrites the transcript without
// the dialog actually stalling.
func effectiveThreshold(pause time.Duration, summarization bool) time.Duration {
	if summarization {
		return pause * 2
	}
	return pause
}

// remainingWait returns how much of the maximum wait budget is left.
func remainingWait(elapsed, maxWait time.Duration) time.Duration {
	if elapsed >= maxWait {
		return 0
	}
	return maxWait - elapsed
}
