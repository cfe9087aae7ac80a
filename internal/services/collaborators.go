package services

import (
	"context"
	"time"

	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/domain"
	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/domain/models"

	"github.com/shopspring/decimal"
)

// BookingStore is the persistence the ledger and state machine need.
// Implementations must run the check-then-write methods atomically.
type BookingStore interface {
	GetByID(ctx context.Context, id int64) (models.Booking, error)
	CreateWithNoOverlap(ctx context.Context, b models.Booking) (models.Booking, error)
	Reschedule(ctx context.Context, id int64, apply func(models.Booking) (models.Booking, error)) (models.Booking, error)
	Assign(ctx context.Context, id int64, candidates []int64, at time.Time) (models.Booking, error)
	UpdateStatus(ctx context.Context, id int64, at time.Time, decide func(models.Booking) (domain.BookingStatus, error)) (models.Booking, domain.BookingStatus, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]models.Booking, error)
	ListForTechnician(ctx context.Context, technicianID int64, from, to time.Time) ([]models.Booking, error)
	ListActiveForTechnicians(ctx context.Context, technicianIDs []int64, from, to time.Time) ([]models.Booking, error)
}

type PackageCatalog interface {
	GetByID(ctx context.Context, id int64) (models.ServicePackage, error)
}

type TechnicianPool interface {
	ListActive(ctx context.Context, category string) ([]models.Technician, error)
}

type Invoicing interface {
	CreateIfAbsent(ctx context.Context, bookingID int64, amount decimal.Decimal, at time.Time) (models.Invoice, bool, error)
}

// Inventory returns a NotFound error for unknown chemicals.
type Inventory interface {
	Deduct(ctx context.Context, chemical string, qty decimal.Decimal, bookingID int64, at time.Time) (models.InventoryDeduction, error)
}

type Payroll interface {
	AccumulateCommission(ctx context.Context, technicianID int64, date time.Time, amount decimal.Decimal, bookingID int64) (bool, error)
}

// LoyaltyTrigger is fire-and-forget: the caller does not wait for points.
type LoyaltyTrigger interface {
	OnBookingCompleted(ctx context.Context, bookingID int64) error
}

type LoyaltyLedger interface {
	Award(ctx context.Context, award models.LoyaltyAward) (bool, error)
}

type StepRecorder interface {
	Record(ctx context.Context, step models.FulfillmentStep) error
	ListByBooking(ctx context.Context, bookingID int64) ([]models.FulfillmentStep, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event models.BookingEvent) error
}

// AvailabilityCache memoizes planner output per (date, package). A miss
// reports the date's generation; Set must drop the write once Invalidate has
// moved the date past that generation.
type AvailabilityCache interface {
	Get(ctx context.Context, date string, packageID int64) (slots []time.Time, gen int64, hit bool, err error)
	Set(ctx context.Context, date string, packageID, gen int64, slots []time.Time) error
	Invalidate(ctx context.Context, dates ...string) error
}
