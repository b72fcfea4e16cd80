package database

import "time"

// TimeLayout is the text form of every stored timestamp. Values are UTC with
// a fixed nanosecond width, so string comparison in SQL follows time order
// down to the nanosecond.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a stored timestamp. Second-precision RFC3339 values are
// accepted too.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
