package services

import (
	"context"
	"errors"
	"time"

	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/domain"
	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/domain/models"
	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/utils"

	"go.uber.org/zap"
)

// BookingService is the booking ledger: it creates and reschedules bookings
// without ever letting one technician hold two overlapping jobs.
type BookingService struct {
	Bookings BookingStore
	Packages PackageCatalog
	Pool     TechnicianPool
	Cache    AvailabilityCache
	Events   EventPublisher
	Clock    domain.Clock
	Location *time.Location

	// SkillMatching limits auto-assignment to technicians registered for the package category.
	SkillMatching bool
}

type CreateBookingInput struct {
	CustomerID       int64
	VehicleID        int64
	TechnicianID     *int64
	ServicePackageID *int64
	TimeSlot         *time.Time
	Address          string
	Latitude         *float64
	Longitude        *float64
}

func (in CreateBookingInput) validate() error {
	if in.CustomerID <= 0 {
		return domain.ValidationError{Field: "customer_id", Msg: "required"}
	}
	if in.VehicleID <= 0 {
		return domain.ValidationError{Field: "vehicle_id", Msg: "required"}
	}
	if in.ServicePackageID == nil || *in.ServicePackageID <= 0 || in.TimeSlot == nil || in.TimeSlot.IsZero() {
		return domain.MissingPackageOrSlot()
	}
	if in.TechnicianID != nil && *in.TechnicianID <= 0 {
		return domain.ValidationError{Field: "technician_id", Msg: "must be positive"}
	}
	return nil
}

// CreateBooking derives the end time from the package and stores the booking
// as PENDING. With a technician the overlap check and insert are one atomic step.
func (s BookingService) CreateBooking(ctx context.Context, in CreateBookingInput) (models.Booking, error) {
	if err := in.validate(); err != nil {
		return models.Booking{}, err
	}

	pkg, err := s.Packages.GetByID(ctx, *in.ServicePackageID)
	if err != nil {
		return models.Booking{}, err
	}
	end, err := domain.DeriveEndTime(*in.TimeSlot, pkg.Duration())
	if err != nil {
		return models.Booking{}, err
	}

	now := s.Clock.Now()
	pkgID := pkg.ID
	b := models.Booking{
		CustomerID:       in.CustomerID,
		VehicleID:        in.VehicleID,
		TechnicianID:     in.TechnicianID,
		ServicePackageID: &pkgID,
		TimeSlot:         *in.TimeSlot,
		EndTime:          &end,
		Status:           domain.StatusPending,
		Address:          in.Address,
		Latitude:         in.Latitude,
		Longitude:        in.Longitude,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	created, err := s.Bookings.CreateWithNoOverlap(ctx, b)
	if err != nil {
		if errors.Is(err, domain.ErrSlotConflict) {
			utils.LogEvent(utils.RequestID(ctx), "booking", "create", "slot conflict", zap.Error(err))
		}
		return models.Booking{}, err
	}

	utils.LogEvent(utils.RequestID(ctx), "booking", "create", "booking created",
		zap.Int64("booking_id", created.ID),
		zap.Time("time_slot", created.TimeSlot),
	)
	invalidateDays(ctx, s.Cache, s.Location, created.TimeSlot)
	publish(ctx, s.Events, models.NewBookingEvent(models.EventBookingCreated, created, now))
	return created, nil
}

// UpdateSchedule moves a booking to a new slot and/or package. The end time
// is re-derived and the overlap check repeated, excluding the booking itself.
func (s BookingService) UpdateSchedule(ctx context.Context, id int64, upd models.BookingUpdate) (models.Booking, error) {
	if upd.Empty() {
		return models.Booking{}, domain.ValidationError{Field: "booking", Msg: "nothing to update"}
	}
	if upd.TimeSlot != nil && upd.TimeSlot.IsZero() {
		return models.Booking{}, domain.MissingPackageOrSlot()
	}

	var newPkg *models.ServicePackage
	if upd.ServicePackageID != nil {
		pkg, err := s.Packages.GetByID(ctx, *upd.ServicePackageID)
		if err != nil {
			return models.Booking{}, err
		}
		newPkg = &pkg
	}

	var oldSlot time.Time
	now := s.Clock.Now()
	updated, err := s.Bookings.Reschedule(ctx, id, func(current models.Booking) (models.Booking, error) {
		if current.Status.IsTerminal() {
			return models.Booking{}, domain.BookingClosed(current.ID, current.Status)
		}
		oldSlot = current.TimeSlot

		pkg := newPkg
		if pkg == nil {
			if current.ServicePackageID == nil {
				return models.Booking{}, domain.MissingPackageOrSlot()
			}
			p, err := s.Packages.GetByID(ctx, *current.ServicePackageID)
			if err != nil {
				return models.Booking{}, err
			}
			pkg = &p
		}

		next := current
		if upd.TimeSlot != nil {
			next.TimeSlot = *upd.TimeSlot
		}
		end, err := domain.DeriveEndTime(next.TimeSlot, pkg.Duration())
		if err != nil {
			return models.Booking{}, err
		}
		pkgID := pkg.ID
		next.ServicePackageID = &pkgID
		next.EndTime = &end
		next.UpdatedAt = now
		return next, nil
	})
	if err != nil {
		return models.Booking{}, err
	}

	utils.LogEvent(utils.RequestID(ctx), "booking", "reschedule", "booking rescheduled",
		zap.Int64("booking_id", updated.ID),
		zap.Time("time_slot", updated.TimeSlot),
	)
	invalidateDays(ctx, s.Cache, s.Location, oldSlot, updated.TimeSlot)
	return updated, nil
}

// AssignTechnician runs the deferred overlap check. technicianID 0 picks the
// first free active technician in id order.
func (s BookingService) AssignTechnician(ctx context.Context, id, technicianID int64) (models.Booking, error) {
	if technicianID < 0 {
		return models.Booking{}, domain.ValidationError{Field: "technician_id", Msg: "must not be negative"}
	}

	candidates := []int64{technicianID}
	if technicianID == 0 {
		category := ""
		if s.SkillMatching {
			b, err := s.Bookings.GetByID(ctx, id)
			if err != nil {
				return models.Booking{}, err
			}
			if b.ServicePackageID != nil {
				pkg, err := s.Packages.GetByID(ctx, *b.ServicePackageID)
				if err != nil {
					return models.Booking{}, err
				}
				category = pkg.Category
			}
		}
		pool, err := s.Pool.ListActive(ctx, category)
		if err != nil {
			return models.Booking{}, err
		}
		if len(pool) == 0 {
			return models.Booking{}, domain.NoTechniciansAvailable()
		}
		candidates = candidates[:0]
		for _, t := range pool {
			candidates = append(candidates, t.ID)
		}
	}

	assigned, err := s.Bookings.Assign(ctx, id, candidates, s.Clock.Now())
	if err != nil {
		return models.Booking{}, err
	}
	utils.LogEvent(utils.RequestID(ctx), "booking", "assign", "technician assigned",
		zap.Int64("booking_id", assigned.ID),
		zap.Int64("technician_id", *assigned.TechnicianID),
	)
	invalidateDays(ctx, s.Cache, s.Location, assigned.TimeSlot)
	return assigned, nil
}

func (s BookingService) GetBooking(ctx context.Context, id int64) (models.Booking, error) {
	if id <= 0 {
		return models.Booking{}, domain.ValidationError{Field: "id", Msg: "invalid id"}
	}
	return s.Bookings.GetByID(ctx, id)
}

// Calendar lists bookings starting on any day of r.
func (s BookingService) Calendar(ctx context.Context, r domain.DateRange) ([]models.Booking, error) {
	from, to, err := r.Bounds(s.Location)
	if err != nil {
		return nil, err
	}
	return s.Bookings.ListBetween(ctx, from, to)
}

// TechnicianJobs is one technician's job sheet for a day, ordered by slot.
func (s BookingService) TechnicianJobs(ctx context.Context, technicianID int64, day time.Time) ([]models.Booking, error) {
	if technicianID <= 0 {
		return nil, domain.ValidationError{Field: "technician_id", Msg: "invalid id"}
	}
	from, to, err := domain.DateRange{Start: day, End: day}.Bounds(s.Location)
	if err != nil {
		return nil, err
	}
	return s.Bookings.ListForTechnician(ctx, technicianID, from, to)
}

func invalidateDays(ctx context.Context, cache AvailabilityCache, loc *time.Location, times ...time.Time) {
	if cache == nil {
		return
	}
	seen := map[string]bool{}
	days := make([]string, 0, len(times))
	for _, t := range times {
		if t.IsZero() {
			continue
		}
		d := utils.FormatDate(t, loc)
		if !seen[d] {
			seen[d] = true
			days = append(days, d)
		}
	}
	if len(days) == 0 {
		return
	}
	if err := cache.Invalidate(ctx, days...); err != nil {
		utils.LogWarn(utils.RequestID(ctx), "availability", "invalidate", "cache invalidation failed", zap.Error(err))
	}
}

func publish(ctx context.Context, events EventPublisher, ev models.BookingEvent) {
	if events == nil {
		return
	}
	if err := events.Publish(ctx, ev); err != nil {
		utils.LogWarn(utils.RequestID(ctx), "booking", "publish", "booking event not queued",
			zap.String("type", ev.Type),
			zap.Int64("booking_id", ev.BookingID),
			zap.Error(err),
		)
	}
}
