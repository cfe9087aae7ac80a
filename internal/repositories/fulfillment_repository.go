package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/domain/models"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"
)

type stepRow struct {
	BookingID int64     `db:"booking_id"`
	Step      string    `db:"step"`
	Outcome   string    `db:"outcome"`
	Detail    string    `db:"detail"`
	UpdatedAt time.Time `db:"updated_at"`
}

// FulfillmentRepository is the audit trail of completion side effects.
type FulfillmentRepository struct {
	DB *sqlx.DB
}

func (r FulfillmentRepository) db() *sqlx.DB { return orShared(r.DB) }

// Record upserts the latest outcome of one step.
func (r FulfillmentRepository) Record(ctx context.Context, s models.FulfillmentStep) error {
	detail := s.Detail
	if len(detail) > 500 {
		detail = detail[:500]
	}
	_, err := r.db().ExecContext(ctx, `
		INSERT INTO booking_fulfillment_steps (booking_id, step, outcome, detail, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE outcome = VALUES(outcome), detail = VALUES(detail), updated_at = VALUES(updated_at)`,
		s.BookingID, s.Step, s.Outcome, detail, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("record fulfillment step %s: %w", s.Step, err)
	}
	return nil
}

func (r FulfillmentRepository) ListByBooking(ctx context.Context, bookingID int64) ([]models.FulfillmentStep, error) {
	query, args, err := dialect.From("booking_fulfillment_steps").Prepared(true).
		Select("booking_id", "step", "outcome", "detail", "updated_at").
		Where(goqu.C("booking_id").Eq(bookingID)).
		Order(goqu.L("FIELD(step, ?, ?, ?, ?)",
			models.StepInvoice, models.StepInventory, models.StepCommission, models.StepLoyalty).Asc()).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build step query: %w", err)
	}
	var rows []stepRow
	if err := r.db().SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list fulfillment steps: %w", err)
	}
	out := make([]models.FulfillmentStep, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.FulfillmentStep(row))
	}
	return out, nil
}
