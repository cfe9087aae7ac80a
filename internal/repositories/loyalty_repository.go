package repositories

import (
	"context"
	"fmt"

	intdb "github.com/muhammed-shimlal/Kallayi-car-spa/internal/db"
	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/domain"
	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/domain/models"

	"github.com/jmoiron/sqlx"
)

// LoyaltyRepository keeps customer point balances and the per-booking award log.
type LoyaltyRepository struct {
	DB *sqlx.DB
}

func (r LoyaltyRepository) db() *sqlx.DB { return orShared(r.DB) }

// Award records award and credits the customer. It returns false when the
// booking was already awarded.
func (r LoyaltyRepository) Award(ctx context.Context, award models.LoyaltyAward) (bool, error) {
	var applied bool
	err := intdb.WithTx(ctx, r.db(), func(tx *sqlx.Tx) error {
		applied = false
		_, err := tx.ExecContext(ctx,
			`INSERT INTO loyalty_awards (booking_id, customer_id, points, created_at) VALUES (?, ?, ?, ?)`,
			award.BookingID, award.CustomerID, award.Points, award.CreatedAt,
		)
		if intdb.IsDuplicateKey(err) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("log loyalty award: %w", err)
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE customers SET loyalty_points = loyalty_points + ? WHERE id = ?`,
			award.Points, award.CustomerID,
		)
		if err != nil {
			return fmt.Errorf("credit loyalty points: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return domain.NotFoundError{Resource: "customer"}
		}
		applied = true
		return nil
	})
	return applied, err
}
