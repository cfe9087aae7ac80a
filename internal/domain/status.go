package domain

import "strings"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	StatusPending    BookingStatus = "PENDING"
	StatusConfirmed  BookingStatus = "CONFIRMED"
	StatusInProgress BookingStatus = "IN_PROGRESS"
	StatusCompleted  BookingStatus = "COMPLETED"
	StatusCancelled  BookingStatus = "CANCELLED"
)

// forward holds the single legal non-cancel successor of each open state.
var forward = map[BookingStatus]BookingStatus{
	StatusPending:    StatusConfirmed,
	StatusConfirmed:  StatusInProgress,
	StatusInProgress: StatusCompleted,
}

// ParseStatus accepts the canonical names case-insensitively.
func ParseStatus(raw string) (BookingStatus, error) {
	s := BookingStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", UnknownStatus(raw)
	}
	return s, nil
}

func (s BookingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func (s BookingStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransition reports whether from -> to is a legal edge. Same-state
// requests are not edges; callers treat them separately.
func CanTransition(from, to BookingStatus) bool {
	if from.IsTerminal() || !to.Valid() {
		return false
	}
	if to == StatusCancelled {
		return true
	}
	return forward[from] == to
}
