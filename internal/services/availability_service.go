package services

import (
	"context"
	"time"

	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/domain"
	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/domain/models"
	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/utils"

	"go.uber.org/zap"
)

// AvailabilityService answers "which start times can this package still be
// booked at on this date". It never writes.
type AvailabilityService struct {
	Bookings      BookingStore
	Packages      PackageCatalog
	Pool          TechnicianPool
	Cache         AvailabilityCache
	Hours         domain.BusinessHours
	SkillMatching bool
}

// AvailableSlots returns ascending start times within business hours at which
// at least one active technician is free for the package duration. An empty
// pool is an error; a fully booked day is an empty slice.
func (s AvailabilityService) AvailableSlots(ctx context.Context, day time.Time, packageID int64) ([]time.Time, error) {
	if packageID <= 0 || day.IsZero() {
		return nil, domain.MissingPackageOrSlot()
	}

	pkg, err := s.Packages.GetByID(ctx, packageID)
	if err != nil {
		return nil, err
	}

	category := ""
	if s.SkillMatching {
		category = pkg.Category
	}
	pool, err := s.Pool.ListActive(ctx, category)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, domain.NoTechniciansAvailable()
	}

	dateKey := utils.FormatDate(day, s.Hours.Location)
	fill := false
	var gen int64
	if s.Cache != nil {
		// the generation is taken before the window read so a write
		// landing in between voids the fill below
		slots, g, hit, err := s.Cache.Get(ctx, dateKey, packageID)
		switch {
		case err != nil:
			utils.LogWarn(utils.RequestID(ctx), "availability", "cache_get", "cache read failed", zap.Error(err))
		case hit:
			return slots, nil
		default:
			fill, gen = true, g
		}
	}

	window := s.Hours.Window(day)
	ids := make([]int64, 0, len(pool))
	for _, t := range pool {
		ids = append(ids, t.ID)
	}

	held, err := s.Bookings.ListActiveForTechnicians(ctx, ids, window.Open, window.Close)
	if err != nil {
		return nil, err
	}
	slots := domain.PlanSlots(window, pkg.Duration(), ids, busyByTechnician(held))

	if fill {
		if err := s.Cache.Set(ctx, dateKey, packageID, gen, slots); err != nil {
			utils.LogWarn(utils.RequestID(ctx), "availability", "cache_set", "cache write failed", zap.Error(err))
		}
	}
	return slots, nil
}

func busyByTechnician(bookings []models.Booking) map[int64][]domain.Interval {
	busy := make(map[int64][]domain.Interval)
	for _, b := range bookings {
		if b.TechnicianID == nil || b.Status == domain.StatusCancelled {
			continue
		}
		if iv, ok := b.Interval(); ok {
			busy[*b.TechnicianID] = append(busy[*b.TechnicianID], iv)
		}
	}
	return busy
}
