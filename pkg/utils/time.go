package utils

import "time"

// ParseRFC3339 parses a timestamp in RFC3339 format, with or without fractional seconds
func ParseRFC3339(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
