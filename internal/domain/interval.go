package domain

import "time"

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
// Touching endpoints do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// Interval is a half-open time range.
type Interval struct {
	Start time.Time
	End   time.Time
}

func (i Interval) Overlaps(other Interval) bool {
	return Overlaps(i.Start, i.End, other.Start, other.End)
}

// FreeOf reports whether i overlaps none of busy.
func (i Interval) FreeOf(busy []Interval) bool {
	for _, b := range busy {
		if i.Overlaps(b) {
			return false
		}
	}
	return true
}
