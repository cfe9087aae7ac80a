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

const dateLayout = "2006-01-02"

type payrollRow struct {
	ID               int64           `db:"id"`
	StaffID          int64           `db:"staff_id"`
	EntryDate        time.Time       `db:"entry_date"`
	BaseWage         decimal.Decimal `db:"base_wage"`
	CommissionEarned decimal.Decimal `db:"commission_earned"`
	TipsEarned       decimal.Decimal `db:"tips_earned"`
}

// PayrollRepository aggregates earnings per (staff, date).
type PayrollRepository struct {
	DB *sqlx.DB
}

func (r PayrollRepository) db() *sqlx.DB { return orShared(r.DB) }

// AccumulateCommission adds amount to the (technicianID, date) entry,
// creating it when absent. A booking is posted at most once; applied is
// false when bookingID was already posted.
func (r PayrollRepository) AccumulateCommission(ctx context.Context, technicianID int64, date time.Time, amount decimal.Decimal, bookingID int64) (bool, error) {
	day := date.Format(dateLayout)
	var applied bool
	err := intdb.WithTx(ctx, r.db(), func(tx *sqlx.Tx) error {
		applied = false
		_, err := tx.ExecContext(ctx,
			`INSERT INTO commission_postings (booking_id, staff_id, entry_date, amount) VALUES (?, ?, ?, ?)`,
			bookingID, technicianID, day, amount,
		)
		if intdb.IsDuplicateKey(err) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("post commission: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO payroll_entries (staff_id, entry_date, base_wage, commission_earned, tips_earned)
			VALUES (?, ?, 0, ?, 0)
			ON DUPLICATE KEY UPDATE commission_earned = commission_earned + VALUES(commission_earned)`,
			technicianID, day, amount,
		); err != nil {
			return fmt.Errorf("accumulate payroll: %w", err)
		}
		applied = true
		return nil
	})
	return applied, err
}

func (r PayrollRepository) GetEntry(ctx context.Context, technicianID int64, date time.Time) (models.PayrollEntry, error) {
	var row payrollRow
	err := r.db().GetContext(ctx, &row, `
		SELECT id, staff_id, entry_date, base_wage, commission_earned, tips_earned
		FROM payroll_entries
		WHERE staff_id = ? AND entry_date = ?
		LIMIT 1`,
		technicianID, date.Format(dateLayout),
	)
	if intdb.IsNoRows(err) {
		return models.PayrollEntry{}, domain.NotFoundError{Resource: "payroll entry", Err: err}
	}
	if err != nil {
		return models.PayrollEntry{}, fmt.Errorf("get payroll entry: %w", err)
	}
	return models.PayrollEntry{
		ID:               row.ID,
		StaffID:          row.StaffID,
		Date:             row.EntryDate,
		BaseWage:         row.BaseWage,
		CommissionEarned: row.CommissionEarned,
		TipsEarned:       row.TipsEarned,
	}, nil
}
