package utils

import (
	"fmt"
	"strings"
	"time"
)

// eventTimeLayouts are tried in order. The zone-less layouts cover what
// browsers send from datetime-local inputs and what older rows contain.
var eventTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseEventTime parses an organizer supplied date-time. Values without an
// offset are read in loc. The result is always UTC.
func ParseEventTime(raw string, loc *time.Location) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty event time")
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range eventTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised event time %q", raw)
}

// DayKey is the UTC calendar day of t, as used for daily sales counts.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
