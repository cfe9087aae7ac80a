package utils

import (
	"fmt"
	"strings"
	"time"
)

const (
	layoutDate       = "2006-01-02"
	layoutDateTime   = "2006-01-02 15:04:05"
	layoutDateMinute = "2006-01-02T15:04"
	layoutClock      = "15:04"
)

// ParseDate parses YYYY-MM-DD in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(layoutDate, strings.TrimSpace(s), orLocal(loc))
}

// ParseDateTime accepts RFC3339, "YYYY-MM-DD HH:MM:SS" and "YYYY-MM-DDTHH:MM".
// Values without an offset are read in loc.
func ParseDateTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range []string{layoutDateTime, layoutDateMinute} {
		if t, err := time.ParseInLocation(layout, s, orLocal(loc)); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized datetime %q", s)
}

// FormatDate formats time to YYYY-MM-DD in loc.
func FormatDate(t time.Time, loc *time.Location) string {
	return t.In(orLocal(loc)).Format(layoutDate)
}

// FormatClock formats time to HH:MM in loc.
func FormatClock(t time.Time, loc *time.Location) string {
	return t.In(orLocal(loc)).Format(layoutClock)
}

func orLocal(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}
