package services

import (
	"context"

	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/domain"
	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/domain/models"
	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LoyaltyService converts a completed booking's price into customer points.
type LoyaltyService struct {
	Bookings BookingStore
	Packages PackageCatalog
	Ledger   LoyaltyLedger
	Rate     decimal.Decimal
	Clock    domain.Clock
}

func (s LoyaltyService) rate() decimal.Decimal {
	if s.Rate.IsZero() {
		return domain.DefaultLoyaltyRate
	}
	return s.Rate
}

// AwardForBooking grants points once per booking. Bookings that are not
// COMPLETED, or whose price earns no points, are skipped without error.
func (s LoyaltyService) AwardForBooking(ctx context.Context, bookingID int64) (models.LoyaltyAward, bool, error) {
	b, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return models.LoyaltyAward{}, false, err
	}
	if b.Status != domain.StatusCompleted {
		utils.LogWarn(utils.RequestID(ctx), "loyalty", "award", "booking not completed, skipping",
			zap.Int64("booking_id", b.ID),
			zap.String("status", string(b.Status)),
		)
		return models.LoyaltyAward{}, false, nil
	}

	price := decimal.Zero
	if b.ServicePackageID != nil {
		pkg, err := s.Packages.GetByID(ctx, *b.ServicePackageID)
		if err != nil && !domain.IsNotFound(err) {
			return models.LoyaltyAward{}, false, err
		}
		price = pkg.Price
	}

	award := models.LoyaltyAward{
		BookingID:  b.ID,
		CustomerID: b.CustomerID,
		Points:     domain.LoyaltyPoints(price, s.rate()),
		CreatedAt:  s.Clock.Now(),
	}
	if award.Points == 0 {
		return award, false, nil
	}

	applied, err := s.Ledger.Award(ctx, award)
	if err != nil {
		return models.LoyaltyAward{}, false, err
	}
	if applied {
		utils.LogEvent(utils.RequestID(ctx), "loyalty", "award", "points awarded",
			zap.Int64("booking_id", b.ID),
			zap.Int64("customer_id", b.CustomerID),
			zap.Int64("points", award.Points),
		)
	}
	return award, applied, nil
}

// InlineLoyaltyTrigger awards points in the caller's goroutine. It is used
// when no task queue is configured.
type InlineLoyaltyTrigger struct {
	Service LoyaltyService
}

func (t InlineLoyaltyTrigger) OnBookingCompleted(ctx context.Context, bookingID int64) error {
	_, _, err := t.Service.AwardForBooking(ctx, bookingID)
	return err
}
