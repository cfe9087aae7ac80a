package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/domain"
	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/domain/models"
	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// FulfillmentService owns booking status changes and the side effects a
// completed booking triggers.
type FulfillmentService struct {
	Bookings  BookingStore
	Packages  PackageCatalog
	Invoices  Invoicing
	Inventory Inventory
	Payroll   Payroll
	Loyalty   LoyaltyTrigger
	Audit     StepRecorder
	Cache     AvailabilityCache
	Events    EventPublisher
	Clock     domain.Clock
	Location  *time.Location
}

// completion carries what every fan-out step needs.
type completion struct {
	booking models.Booking
	pkg     *models.ServicePackage
	pkgErr  error
	date    time.Time
	at      time.Time
}

func (c completion) price() decimal.Decimal {
	if c.pkg == nil {
		return decimal.Zero
	}
	return c.pkg.Price
}

type fanoutStep struct {
	name string
	run  func(ctx context.Context, c completion) (outcome, detail string, err error)
}

// Transition validates and applies a status change. Completing a booking
// runs invoice, inventory, commission and loyalty in that order; step
// failures are logged and recorded but never undo the status.
func (s FulfillmentService) Transition(ctx context.Context, bookingID int64, requested string) (models.Booking, error) {
	next, err := domain.ParseStatus(requested)
	if err != nil {
		return models.Booking{}, err
	}
	if bookingID <= 0 {
		return models.Booking{}, domain.ValidationError{Field: "id", Msg: "invalid id"}
	}

	now := s.Clock.Now()
	booking, prev, err := s.Bookings.UpdateStatus(ctx, bookingID, now, func(current models.Booking) (domain.BookingStatus, error) {
		if current.Status == next {
			return next, nil
		}
		if !domain.CanTransition(current.Status, next) {
			return "", domain.InvalidTransition(current.Status, next)
		}
		return next, nil
	})
	if err != nil {
		return models.Booking{}, err
	}

	changed := prev != booking.Status
	if changed {
		utils.LogEvent(utils.RequestID(ctx), "fulfillment", "transition", "status changed",
			zap.Int64("booking_id", booking.ID),
			zap.String("from", string(prev)),
			zap.String("to", string(booking.Status)),
		)
		if booking.Status == domain.StatusCancelled {
			invalidateDays(ctx, s.Cache, s.Location, booking.TimeSlot)
		}
	}

	if booking.Status == domain.StatusCompleted {
		// The status is committed; side effects must finish even if the caller goes away.
		bg := context.WithoutCancel(ctx)
		s.fanOut(bg, booking, now, changed || s.loyaltyFailed(bg, booking.ID))
		if changed {
			publish(ctx, s.Events, models.NewBookingEvent(models.EventBookingCompleted, booking, now))
		}
	}
	return booking, nil
}

// Steps returns the recorded fan-out outcomes of a booking in execution order.
func (s FulfillmentService) Steps(ctx context.Context, bookingID int64) ([]models.FulfillmentStep, error) {
	if bookingID <= 0 {
		return nil, domain.ValidationError{Field: "id", Msg: "invalid id"}
	}
	if _, err := s.Bookings.GetByID(ctx, bookingID); err != nil {
		return nil, err
	}
	return s.audit().ListByBooking(ctx, bookingID)
}

func (s FulfillmentService) audit() StepRecorder {
	if s.Audit == nil {
		return noopRecorder{}
	}
	return s.Audit
}

// steps is the completion fan-out in execution order. Loyalty runs on the
// edge into COMPLETED, and on a replay only if its last attempt failed.
func (s FulfillmentService) steps(withLoyalty bool) []fanoutStep {
	list := []fanoutStep{
		{name: models.StepInvoice, run: s.issueInvoice},
		{name: models.StepInventory, run: s.deductInventory},
		{name: models.StepCommission, run: s.postCommission},
	}
	if withLoyalty {
		list = append(list, fanoutStep{name: models.StepLoyalty, run: s.triggerLoyalty})
	}
	return list
}

func (s FulfillmentService) fanOut(ctx context.Context, b models.Booking, now time.Time, withLoyalty bool) {
	c := completion{
		booking: b,
		date:    domain.StartOfDay(now, s.Location),
		at:      now,
	}
	if b.ServicePackageID != nil {
		pkg, err := s.Packages.GetByID(ctx, *b.ServicePackageID)
		switch {
		case err == nil:
			c.pkg = &pkg
		case domain.IsNotFound(err):
			utils.LogWarn(utils.RequestID(ctx), "fulfillment", "package", "package missing, completing at zero price",
				zap.Int64("booking_id", b.ID))
		default:
			c.pkgErr = err
		}
	}

	for _, step := range s.steps(withLoyalty) {
		outcome, detail, err := runStep(ctx, step, c)
		if err != nil {
			outcome = models.OutcomeFailed
			detail = err.Error()
			utils.LogWarn(utils.RequestID(ctx), "fulfillment", step.name, "fan-out step failed",
				zap.Int64("booking_id", b.ID),
				zap.Error(err),
			)
		}
		rec := models.FulfillmentStep{
			BookingID: b.ID,
			Step:      step.name,
			Outcome:   outcome,
			Detail:    detail,
			UpdatedAt: now,
		}
		if err := s.audit().Record(ctx, rec); err != nil {
			utils.LogWarn(utils.RequestID(ctx), "fulfillment", step.name, "step outcome not recorded",
				zap.Int64("booking_id", b.ID),
				zap.Error(err),
			)
		}
	}
}

func runStep(ctx context.Context, step fanoutStep, c completion) (outcome, detail string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = domain.InternalError{Msg: fmt.Sprintf("%s step panicked: %v", step.name, r)}
		}
	}()
	return step.run(ctx, c)
}

func (s FulfillmentService) issueInvoice(ctx context.Context, c completion) (string, string, error) {
	if c.pkgErr != nil {
		return "", "", fmt.Errorf("load package: %w", c.pkgErr)
	}
	inv, created, err := s.Invoices.CreateIfAbsent(ctx, c.booking.ID, c.price(), c.at)
	if err != nil {
		return "", "", err
	}
	if !created {
		return models.OutcomeOK, fmt.Sprintf("invoice %d already issued", inv.ID), nil
	}
	return models.OutcomeOK, fmt.Sprintf("invoice %d issued for %s", inv.ID, utils.FormatMoney(inv.Amount)), nil
}

func (s FulfillmentService) deductInventory(ctx context.Context, c completion) (string, string, error) {
	if c.pkgErr != nil {
		return "", "", fmt.Errorf("load package: %w", c.pkgErr)
	}
	if c.pkg == nil || len(c.pkg.Recipe) == 0 {
		return models.OutcomeSkipped, "no chemical recipe", nil
	}

	var (
		notes    []string
		firstErr error
	)
	for _, e := range c.pkg.Recipe.Entries() {
		d, err := s.Inventory.Deduct(ctx, e.Chemical, e.Quantity, c.booking.ID, c.at)
		if err != nil {
			if errors.Is(err, domain.ErrChemicalNotFound) || domain.IsNotFound(err) {
				utils.LogWarn(utils.RequestID(ctx), "inventory", "deduct", "chemical not stocked",
					zap.Int64("booking_id", c.booking.ID),
					zap.String("chemical", e.Chemical),
				)
				notes = append(notes, e.Chemical+" not stocked")
				continue
			}
			if firstErr == nil {
				firstErr = fmt.Errorf("deduct %s: %w", e.Chemical, err)
			}
			continue
		}
		if d.AlreadyApplied {
			notes = append(notes, e.Chemical+" already deducted")
			continue
		}
		if d.BelowReorder() {
			utils.LogWarn(utils.RequestID(ctx), "inventory", "deduct", "stock below reorder level",
				zap.String("chemical", e.Chemical),
				zap.String("remaining", d.Remaining.String()),
				zap.String("reorder_level", d.ReorderLevel.String()),
			)
			notes = append(notes, e.Chemical+" below reorder level")
		}
	}
	if firstErr != nil {
		return "", "", firstErr
	}
	return models.OutcomeOK, strings.Join(notes, "; "), nil
}

func (s FulfillmentService) loyaltyFailed(ctx context.Context, bookingID int64) bool {
	steps, err := s.audit().ListByBooking(ctx, bookingID)
	if err != nil {
		utils.LogWarn(utils.RequestID(ctx), "fulfillment", models.StepLoyalty, "audit trail unreadable, loyalty not retried",
			zap.Int64("booking_id", bookingID), zap.Error(err))
		return false
	}
	for _, st := range steps {
		if st.Step == models.StepLoyalty {
			return st.Outcome == models.OutcomeFailed
		}
	}
	return false
}

func (s FulfillmentService) postCommission(ctx context.Context, c completion) (string, string, error) {
	if c.booking.TechnicianID == nil {
		return models.OutcomeSkipped, "no technician assigned", nil
	}
	if c.pkgErr != nil {
		return "", "", fmt.Errorf("load package: %w", c.pkgErr)
	}
	if c.pkg == nil || c.pkg.CommissionRule == nil {
		return models.OutcomeSkipped, "no commission rule", nil
	}

	amount := c.pkg.CommissionRule.For(c.pkg.Price)
	if !amount.IsPositive() {
		return models.OutcomeSkipped, "commission computes to zero", nil
	}
	applied, err := s.Payroll.AccumulateCommission(ctx, *c.booking.TechnicianID, c.date, amount, c.booking.ID)
	if err != nil {
		return "", "", err
	}
	if !applied {
		return models.OutcomeOK, "commission already posted", nil
	}
	return models.OutcomeOK, fmt.Sprintf("commission %s posted to technician %d on %s",
		utils.FormatMoney(amount), *c.booking.TechnicianID, utils.FormatDate(c.date, s.Location)), nil
}

func (s FulfillmentService) triggerLoyalty(ctx context.Context, c completion) (string, string, error) {
	if s.Loyalty == nil {
		return models.OutcomeSkipped, "loyalty disabled", nil
	}
	if err := s.Loyalty.OnBookingCompleted(ctx, c.booking.ID); err != nil {
		return "", "", err
	}
	return models.OutcomeOK, "loyalty award requested", nil
}

type noopRecorder struct{}

func (noopRecorder) Record(context.Context, models.FulfillmentStep) error { return nil }

func (noopRecorder) ListByBooking(context.Context, int64) ([]models.FulfillmentStep, error) {
	return []models.FulfillmentStep{}, nil
}
