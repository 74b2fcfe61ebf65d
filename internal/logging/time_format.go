package logging

import "time"

// TimestampLayout is the local-time layout of console log headers. The log
// reader uses it too so `hdmictl logs` matches what the daemon prints.
const TimestampLayout = "2006-01-02 15:04:05"

// FormatTimestamp renders ts in local time, or "" for the zero time.
func FormatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.Local().Format(TimestampLayout)
}
