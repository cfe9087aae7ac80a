package handlers

import (
	"context"
	"time"

	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/domain"
	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/domain/models"
	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/services"
)

type BookingLedger interface {
	CreateBooking(ctx context.Context, in services.CreateBookingInput) (models.Booking, error)
	UpdateSchedule(ctx context.Context, id int64, upd models.BookingUpdate) (models.Booking, error)
	AssignTechnician(ctx context.Context, id, technicianID int64) (models.Booking, error)
	GetBooking(ctx context.Context, id int64) (models.Booking, error)
	Calendar(ctx context.Context, r domain.DateRange) ([]models.Booking, error)
	TechnicianJobs(ctx context.Context, technicianID int64, day time.Time) ([]models.Booking, error)
}

type StatusMachine interface {
	Transition(ctx context.Context, bookingID int64, requested string) (models.Booking, error)
	Steps(ctx context.Context, bookingID int64) ([]models.FulfillmentStep, error)
}

type SlotPlanner interface {
	AvailableSlots(ctx context.Context, day time.Time, packageID int64) ([]time.Time, error)
}

type PackageReader interface {
	GetByID(ctx context.Context, id int64) (models.ServicePackage, error)
	List(ctx context.Context) ([]models.ServicePackage, error)
}

type TechnicianLister interface {
	ListActive(ctx context.Context, category string) ([]models.Technician, error)
}

type PayrollReader interface {
	GetEntry(ctx context.Context, technicianID int64, date time.Time) (models.PayrollEntry, error)
}

// Handler serves the booking API. Location is the business timezone used to
// read dates and render slot times.
type Handler struct {
	Bookings    BookingLedger
	Status      StatusMachine
	Slots       SlotPlanner
	Packages    PackageReader
	Technicians TechnicianLister
	Payroll     PayrollReader
	Location    *time.Location
}

func (h Handler) loc() *time.Location {
	if h.Location == nil {
		return time.Local
	}
	return h.Location
}
