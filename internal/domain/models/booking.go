package models

import (
	"time"

	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/domain"
)

// Booking is one scheduled job. EndTime is derived from TimeSlot and the
// package duration and is never taken from clients.
type Booking struct {
	ID               int64                `json:"id"`
	CustomerID       int64                `json:"customer_id"`
	VehicleID        int64                `json:"vehicle_id"`
	TechnicianID     *int64               `json:"technician_id"`
	ServicePackageID *int64               `json:"service_package_id"`
	TimeSlot         time.Time            `json:"time_slot"`
	EndTime          *time.Time           `json:"end_time"`
	Status           domain.BookingStatus `json:"status"`
	Address          string               `json:"address"`
	Latitude         *float64             `json:"latitude,omitempty"`
	Longitude        *float64             `json:"longitude,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

// Interval returns the occupied range; ok is false for bookings without a derived end.
func (b Booking) Interval() (domain.Interval, bool) {
	if b.EndTime == nil || b.TimeSlot.IsZero() {
		return domain.Interval{}, false
	}
	return domain.Interval{Start: b.TimeSlot, End: *b.EndTime}, true
}

// BookingUpdate supports PATCH-style updates via key presence.
type BookingUpdate struct {
	TimeSlot         *time.Time
	ServicePackageID *int64
}

func (u BookingUpdate) Empty() bool {
	return u.TimeSlot == nil && u.ServicePackageID == nil
}

// Fulfillment step names, in execution order.
const (
	StepInvoice    = "invoice"
	StepInventory  = "inventory"
	StepCommission = "commission"
	StepLoyalty    = "loyalty"
)

// Step outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// FulfillmentStep is the audit record of one completion side effect.
type FulfillmentStep struct {
	BookingID int64     `json:"booking_id"`
	Step      string    `json:"step"`
	Outcome   string    `json:"outcome"`
	Detail    string    `json:"detail"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Booking lifecycle events handed to the notification service.
const (
	EventBookingCreated   = "booking.created"
	EventBookingCompleted = "booking.completed"
)

type BookingEvent struct {
	Type       string               `json:"type"`
	BookingID  int64                `json:"booking_id"`
	CustomerID int64                `json:"customer_id"`
	Status     domain.BookingStatus `json:"status"`
	TimeSlot   time.Time            `json:"time_slot"`
	OccurredAt time.Time            `json:"occurred_at"`
}

func NewBookingEvent(kind string, b Booking, at time.Time) BookingEvent {
	return BookingEvent{
		Type:       kind,
		BookingID:  b.ID,
		CustomerID: b.CustomerID,
		Status:     b.Status,
		TimeSlot:   b.TimeSlot,
		OccurredAt: at,
	}
}
