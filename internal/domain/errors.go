package domain

import (
	"errors"
	"fmt"
)

// Sentinel causes carried inside the typed errors below. Handlers use them to
// pick a stable error code; callers match with errors.Is.
var (
	ErrSlotConflict           = errors.New("slot conflict")
	ErrNoTechniciansAvailable = errors.New("no technicians available")
	ErrInvalidTransition      = errors.New("invalid status transition")
	ErrUnknownStatus          = errors.New("unknown status")
	ErrMissingPackageOrSlot   = errors.New("missing package or time slot")
	ErrBookingClosed          = errors.New("booking is closed")
	ErrChemicalNotFound       = errors.New("chemical not found")
)

type NotFoundError struct {
	Resource string
	Err      error
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e NotFoundError) Unwrap() error { return e.Err }

type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e ValidationError) Error() string {
	if e.Msg != "" && e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Field != "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return "validation error"
}

func (e ValidationError) Unwrap() error { return e.Err }

type ConflictError struct {
	Resource string
	Msg      string
	Err      error
}

func (e ConflictError) Error() string {
	switch {
	case e.Msg != "" && e.Resource != "":
		return fmt.Sprintf("%s conflict: %s", e.Resource, e.Msg)
	case e.Msg != "":
		return e.Msg
	case e.Resource != "":
		return fmt.Sprintf("%s conflict", e.Resource)
	default:
		return "conflict"
	}
}

func (e ConflictError) Unwrap() error { return e.Err }

type InternalError struct {
	Msg string
	Err error
}

func (e InternalError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "internal error"
}

func (e InternalError) Unwrap() error { return e.Err }

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target ConflictError
	return errors.As(err, &target)
}

func IsInternal(err error) bool {
	var target InternalError
	return errors.As(err, &target)
}

// SlotConflict reports that technicianID already holds bookingID over the requested interval.
func SlotConflict(technicianID, bookingID int64) error {
	return ConflictError{
		Resource: "booking",
		Msg:      fmt.Sprintf("technician %d already has booking %d in this slot", technicianID, bookingID),
		Err:      ErrSlotConflict,
	}
}

func NoTechniciansAvailable() error {
	return ValidationError{Field: "technician", Msg: "no active technicians", Err: ErrNoTechniciansAvailable}
}

func InvalidTransition(from, to BookingStatus) error {
	return ValidationError{
		Field: "status",
		Msg:   fmt.Sprintf("cannot move booking from %s to %s", from, to),
		Err:   ErrInvalidTransition,
	}
}

func UnknownStatus(raw string) error {
	return ValidationError{Field: "status", Msg: fmt.Sprintf("unknown status %q", raw), Err: ErrUnknownStatus}
}

func MissingPackageOrSlot() error {
	return ValidationError{Field: "service_package_id", Msg: "service package and time slot are required", Err: ErrMissingPackageOrSlot}
}

func BookingClosed(id int64, status BookingStatus) error {
	return ConflictError{Resource: "booking", Msg: fmt.Sprintf("booking %d is %s", id, status), Err: ErrBookingClosed}
}
