package domain

import "time"

// Clock returns the current instant.
type Clock func() time.Time

// Now falls back to the wall clock when c is nil.
func (c Clock) Now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Bounds returns the half-open instant range [Start 00:00, End+1 00:00) in loc.
func (r DateRange) Bounds(loc *time.Location) (time.Time, time.Time, error) {
	from := StartOfDay(r.Start, loc)
	to := StartOfDay(r.End, loc).AddDate(0, 0, 1)
	if !to.After(from) {
		return time.Time{}, time.Time{}, ValidationError{Field: "end_date", Msg: "end_date must not be before start_date"}
	}
	return from, to, nil
}

// RequestContext carries authenticated user info when available.
type RequestContext struct {
	UserID int64  `json:"userId"`
	Role   string `json:"role"`
}
