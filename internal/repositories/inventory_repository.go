package repositories

import (
	"context"
	"fmt"
	"time"

	intdb "github.com/muhammed-shimlal/Kallayi-car-spa/internal/db"
	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/domain"
	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/domain/models"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type stockRow struct {
	ID            int64           `db:"id"`
	Name          string          `db:"name"`
	CurrentVolume decimal.Decimal `db:"current_volume"`
	ReorderLevel  decimal.Decimal `db:"reorder_level"`
}

// InventoryRepository owns chemical stock and its usage log.
type InventoryRepository struct {
	DB *sqlx.DB
}

func (r InventoryRepository) db() *sqlx.DB { return orShared(r.DB) }

// Deduct consumes qty of chemical for bookingID. The (inventory, booking)
// usage log row is written first, so a repeated call finds it and leaves
// stock untouched. Names match case-insensitively.
func (r InventoryRepository) Deduct(ctx context.Context, chemical string, qty decimal.Decimal, bookingID int64, at time.Time) (models.InventoryDeduction, error) {
	var out models.InventoryDeduction
	err := intdb.WithTx(ctx, r.db(), func(tx *sqlx.Tx) error {
		var stock stockRow
		err := tx.GetContext(ctx, &stock, `
			SELECT id, name, current_volume, reorder_level
			FROM chemical_inventory
			WHERE LOWER(name) = ?
			LIMIT 1
			FOR UPDATE`,
			domain.NormalizeChemical(chemical),
		)
		if intdb.IsNoRows(err) {
			return domain.NotFoundError{Resource: "chemical " + chemical, Err: domain.ErrChemicalNotFound}
		}
		if err != nil {
			return fmt.Errorf("lock chemical %s: %w", chemical, err)
		}

		out = models.InventoryDeduction{
			InventoryID:  stock.ID,
			Chemical:     stock.Name,
			Used:         qty,
			Remaining:    stock.CurrentVolume,
			ReorderLevel: stock.ReorderLevel,
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO chemical_usage_logs (inventory_id, booking_id, amount_used, created_at) VALUES (?, ?, ?, ?)`,
			stock.ID, bookingID, qty, at,
		)
		if intdb.IsDuplicateKey(err) {
			out.AlreadyApplied = true
			return nil
		}
		if err != nil {
			return fmt.Errorf("log chemical usage: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE chemical_inventory SET current_volume = current_volume - ? WHERE id = ?`,
			qty, stock.ID,
		); err != nil {
			return fmt.Errorf("deduct chemical %s: %w", stock.Name, err)
		}
		out.Remaining = stock.CurrentVolume.Sub(qty)
		return nil
	})
	if err != nil {
		return models.InventoryDeduction{}, err
	}
	return out, nil
}
