// Package clock provides the platform's notion of "now".
//
// All time-window filtering (search window, cancellation grace, pending-payment
// freshness) reads the current time through a Clock so it can be pinned in tests.
package clock

import (
	"fmt"
	"strings"
	"time"
)

type Clock interface {
	Now() time.Time
}

// FixedOffset reports wall time in a fixed UTC offset (the platform's local time).
type FixedOffset struct {
	Location *time.Location
}

func NewFixedOffset(offset time.Duration) FixedOffset {
	return FixedOffset{Location: time.FixedZone(FormatOffset(offset), int(offset.Seconds()))}
}

func (c FixedOffset) Now() time.Time {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	return time.Now().In(loc)
}

// Frozen always reports the same instant.
type Frozen struct {
	T time.Time
}

func (c Frozen) Now() time.Time { return c.T }

// ParseOffset parses "+03:00", "-05:30" or "Z".
func ParseOffset(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "Z") || strings.EqualFold(s, "UTC") {
		return 0, nil
	}
	t, err := time.Parse("-07:00", s)
	if err != nil {
		return 0, fmt.Errorf("invalid utc offset %q: %w", s, err)
	}
	_, secs := t.Zone()
	return time.Duration(secs) * time.Second, nil
}

func FormatOffset(d time.Duration) string {
	sign := "+"
	if d < 0 {
		sign = "-"
		d = -d
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%s%02d:%02d", sign, h, m)
}

// DayBounds returns [start, end) of the calendar day of t in loc.
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	y, m, d := t.In(loc).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}
