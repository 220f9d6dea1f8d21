package utils

import (
	"fmt"
	"strings"
	"time"
)

const layoutDate = "2006-01-02"

// EncodeTime is the stored form of a timestamp: RFC 3339 with the explicit offset kept.
func EncodeTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

// DecodeTime parses EncodeTime output. The offset is preserved, never converted to local.
func DecodeTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}

// ParseDate parses YYYY-MM-DD as midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(layoutDate, strings.TrimSpace(s), loc)
}
