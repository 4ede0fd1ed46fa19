package utils

import "time"

// GetCurrentTimestampS returns the current Unix timestamp in seconds.
// Wire envelopes carry timestamps at this resolution.
func GetCurrentTimestampS() int64 {
	return time.Now().Unix()
}

// FormatTimeRFC3339 formats a time.Time into RFC3339 string form.
func FormatTimeRFC3339(t time.Time) string {
	return t.Format(time.RFC3339)
}
