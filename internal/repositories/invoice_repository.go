package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	intdb "github.com/muhammed-shimlal/Kallayi-car-spa/internal/db"
	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/domain"
	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/domain/models"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type invoiceRow struct {
	ID            int64           `db:"id"`
	BookingID     int64           `db:"booking_id"`
	Amount        decimal.Decimal `db:"amount"`
	IsPaid        bool            `db:"is_paid"`
	PaymentMethod sql.NullString  `db:"payment_method"`
	CreatedAt     time.Time       `db:"created_at"`
}

func (r invoiceRow) model() models.Invoice {
	return models.Invoice{
		ID:            r.ID,
		BookingID:     r.BookingID,
		Amount:        r.Amount,
		IsPaid:        r.IsPaid,
		PaymentMethod: r.PaymentMethod.String,
		CreatedAt:     r.CreatedAt,
	}
}

// InvoiceRepository keeps at most one invoice per booking (unique booking_id).
type InvoiceRepository struct {
	DB *sqlx.DB
}

func (r InvoiceRepository) db() *sqlx.DB { return orShared(r.DB) }

// CreateIfAbsent inserts the booking's invoice, or returns the existing one.
// created reports whether this call inserted it.
func (r InvoiceRepository) CreateIfAbsent(ctx context.Context, bookingID int64, amount decimal.Decimal, at time.Time) (models.Invoice, bool, error) {
	res, err := r.db().ExecContext(ctx,
		`INSERT INTO invoices (booking_id, amount, is_paid, created_at) VALUES (?, ?, 0, ?)`,
		bookingID, amount, at,
	)
	if intdb.IsDuplicateKey(err) {
		inv, getErr := r.GetByBooking(ctx, bookingID)
		return inv, false, getErr
	}
	if err != nil {
		return models.Invoice{}, false, fmt.Errorf("insert invoice: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Invoice{}, false, fmt.Errorf("insert invoice id: %w", err)
	}
	return models.Invoice{ID: id, BookingID: bookingID, Amount: amount, CreatedAt: at}, true, nil
}

func (r InvoiceRepository) GetByBooking(ctx context.Context, bookingID int64) (models.Invoice, error) {
	var row invoiceRow
	err := r.db().GetContext(ctx, &row,
		`SELECT id, booking_id, amount, is_paid, payment_method, created_at FROM invoices WHERE booking_id = ? LIMIT 1`,
		bookingID,
	)
	if intdb.IsNoRows(err) {
		return models.Invoice{}, domain.NotFoundError{Resource: "invoice", Err: err}
	}
	if err != nil {
		return models.Invoice{}, fmt.Errorf("get invoice for booking %d: %w", bookingID, err)
	}
	return row.model(), nil
}
