package domain

import (
	"fmt"
	"time"
)

// TimeOfDay is a wall-clock hour and minute, e.g. opening time.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return TimeOfDay{}, ValidationError{Field: "time", Msg: fmt.Sprintf("expected HH:MM, got %q", s), Err: err}
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// On anchors the time of day to the calendar date of day in loc.
func (t TimeOfDay) On(day time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := day.In(loc).Date()
	return time.Date(y, m, d, t.Hour, t.Minute, 0, 0, loc)
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// BusinessHours is the daily window in which slots are offered.
type BusinessHours struct {
	Open     TimeOfDay
	Close    TimeOfDay
	Step     time.Duration
	Location *time.Location
}

// DefaultBusinessHours is 09:00-17:00 probed every 30 minutes.
func DefaultBusinessHours(loc *time.Location) BusinessHours {
	return BusinessHours{
		Open:     TimeOfDay{Hour: 9},
		Close:    TimeOfDay{Hour: 17},
		Step:     30 * time.Minute,
		Location: loc,
	}
}

// SlotWindow is BusinessHours anchored to one date.
type SlotWindow struct {
	Open  time.Time
	Close time.Time
	Step  time.Duration
}

func (h BusinessHours) Window(day time.Time) SlotWindow {
	return SlotWindow{
		Open:  h.Open.On(day, h.Location),
		Close: h.Close.On(day, h.Location),
		Step:  h.Step,
	}
}

// StartOfDay returns midnight of day in loc.
func StartOfDay(day time.Time, loc *time.Location) time.Time {
	return TimeOfDay{}.On(day, loc)
}

// DeriveEndTime is the only way a booking gets its end time.
func DeriveEndTime(slot time.Time, duration time.Duration) (time.Time, error) {
	if slot.IsZero() {
		return time.Time{}, MissingPackageOrSlot()
	}
	if duration <= 0 {
		return time.Time{}, ValidationError{Field: "duration_minutes", Msg: "package duration must be positive"}
	}
	return slot.Add(duration), nil
}

// PlanSlots sweeps the window in Step increments and keeps every start t for
// which [t, t+duration) fits before Close and at least one technician has no
// overlapping busy interval. The result is ascending and never nil.
func PlanSlots(w SlotWindow, duration time.Duration, technicians []int64, busy map[int64][]Interval) []time.Time {
	out := []time.Time{}
	if duration <= 0 || w.Step <= 0 || len(technicians) == 0 {
		return out
	}
	for t := w.Open; !t.Add(duration).After(w.Close); t = t.Add(w.Step) {
		probe := Interval{Start: t, End: t.Add(duration)}
		for _, id := range technicians {
			if probe.FreeOf(busy[id]) {
				out = append(out, t)
				break
			}
		}
	}
	return out
}
