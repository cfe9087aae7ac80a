package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	intdb "github.com/muhammed-shimlal/Kallayi-car-spa/internal/db"
	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/domain"
	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/domain/models"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"
)

const bookingColumns = `id, customer_id, vehicle_id, technician_id, service_package_id,
	time_slot, end_time, status, address, latitude, longitude, created_at, updated_at`

var bookingSelect = []any{
	"id", "customer_id", "vehicle_id", "technician_id", "service_package_id",
	"time_slot", "end_time", "status", "address", "latitude", "longitude", "created_at", "updated_at",
}

type bookingRow struct {
	ID               int64           `db:"id"`
	CustomerID       int64           `db:"customer_id"`
	VehicleID        int64           `db:"vehicle_id"`
	TechnicianID     sql.NullInt64   `db:"technician_id"`
	ServicePackageID sql.NullInt64   `db:"service_package_id"`
	TimeSlot         time.Time       `db:"time_slot"`
	EndTime          sql.NullTime    `db:"end_time"`
	Status           string          `db:"status"`
	Address          string          `db:"address"`
	Latitude         sql.NullFloat64 `db:"latitude"`
	Longitude        sql.NullFloat64 `db:"longitude"`
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"`
}

func (r bookingRow) model() models.Booking {
	b := models.Booking{
		ID:         r.ID,
		CustomerID: r.CustomerID,
		VehicleID:  r.VehicleID,
		TimeSlot:   r.TimeSlot,
		Status:     domain.BookingStatus(r.Status),
		Address:    r.Address,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if r.TechnicianID.Valid {
		id := r.TechnicianID.Int64
		b.TechnicianID = &id
	}
	if r.ServicePackageID.Valid {
		id := r.ServicePackageID.Int64
		b.ServicePackageID = &id
	}
	if r.EndTime.Valid {
		end := r.EndTime.Time
		b.EndTime = &end
	}
	if r.Latitude.Valid {
		v := r.Latitude.Float64
		b.Latitude = &v
	}
	if r.Longitude.Valid {
		v := r.Longitude.Float64
		b.Longitude = &v
	}
	return b
}

func rowsToBookings(rows []bookingRow) []models.Booking {
	out := make([]models.Booking, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.model())
	}
	return out
}

// BookingRepository owns the bookings table. Every write that can change a
// technician's occupied time goes through a transaction holding that
// technician's row lock.
type BookingRepository struct {
	DB *sqlx.DB
}

func (r BookingRepository) db() *sqlx.DB { return orShared(r.DB) }

func (r BookingRepository) GetByID(ctx context.Context, id int64) (models.Booking, error) {
	var row bookingRow
	err := r.db().GetContext(ctx, &row, `SELECT `+bookingColumns+` FROM bookings WHERE id = ? LIMIT 1`, id)
	if intdb.IsNoRows(err) {
		return models.Booking{}, domain.NotFoundError{Resource: "booking", Err: err}
	}
	if err != nil {
		return models.Booking{}, fmt.Errorf("get booking %d: %w", id, err)
	}
	return row.model(), nil
}

// CreateWithNoOverlap inserts b as one atomic check-then-insert. Unassigned
// bookings are inserted without a check.
func (r BookingRepository) CreateWithNoOverlap(ctx context.Context, b models.Booking) (models.Booking, error) {
	err := intdb.WithTx(ctx, r.db(), func(tx *sqlx.Tx) error {
		if b.TechnicianID != nil {
			if err := lockTechnician(ctx, tx, *b.TechnicianID); err != nil {
				return err
			}
			if err := ensureFree(ctx, tx, *b.TechnicianID, b, 0); err != nil {
				return err
			}
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO bookings (customer_id, vehicle_id, technician_id, service_package_id,
				time_slot, end_time, status, address, latitude, longitude, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			b.CustomerID, b.VehicleID, b.TechnicianID, b.ServicePackageID,
			b.TimeSlot, b.EndTime, string(b.Status), b.Address, b.Latitude, b.Longitude,
			b.CreatedAt, b.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("insert booking id: %w", err)
		}
		b.ID = id
		return nil
	})
	if err != nil {
		return models.Booking{}, err
	}
	return b, nil
}

// Reschedule locks the booking (and its technician, first), lets apply
// compute the new schedule, re-validates it and persists it.
func (r BookingRepository) Reschedule(ctx context.Context, id int64, apply func(models.Booking) (models.Booking, error)) (models.Booking, error) {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return models.Booking{}, err
	}

	var out models.Booking
	err = intdb.WithTx(ctx, r.db(), func(tx *sqlx.Tx) error {
		if current.TechnicianID != nil {
			if err := lockTechnician(ctx, tx, *current.TechnicianID); err != nil {
				return err
			}
		}
		locked, err := getForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if !sameTechnician(locked.TechnicianID, current.TechnicianID) {
			return domain.ConflictError{Resource: "booking", Msg: "technician changed concurrently, retry"}
		}

		next, err := apply(locked)
		if err != nil {
			return err
		}
		if next.TechnicianID != nil {
			if err := ensureFree(ctx, tx, *next.TechnicianID, next, next.ID); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE bookings
			SET service_package_id = ?, time_slot = ?, end_time = ?, updated_at = ?
			WHERE id = ?`,
			next.ServicePackageID, next.TimeSlot, next.EndTime, next.UpdatedAt, next.ID,
		); err != nil {
			return fmt.Errorf("update booking schedule: %w", err)
		}
		out = next
		return nil
	})
	if err != nil {
		return models.Booking{}, err
	}
	return out, nil
}

// Assign gives the booking to the first candidate technician that is free
// over its interval. Candidates are locked in the order given.
func (r BookingRepository) Assign(ctx context.Context, id int64, candidates []int64, at time.Time) (models.Booking, error) {
	var out models.Booking
	err := intdb.WithTx(ctx, r.db(), func(tx *sqlx.Tx) error {
		var lastErr error
		for _, techID := range candidates {
			if err := lockTechnician(ctx, tx, techID); err != nil {
				if domain.IsNotFound(err) && len(candidates) > 1 {
					lastErr = err
					continue
				}
				return err
			}
			current, err := getForUpdate(ctx, tx, id)
			if err != nil {
				return err
			}
			if current.Status.IsTerminal() {
				return domain.BookingClosed(current.ID, current.Status)
			}
			if current.EndTime == nil {
				return domain.MissingPackageOrSlot()
			}
			if err := ensureFree(ctx, tx, techID, current, current.ID); err != nil {
				lastErr = err
				continue
			}

			if _, err := tx.ExecContext(ctx,
				`UPDATE bookings SET technician_id = ?, updated_at = ? WHERE id = ?`,
				techID, at, current.ID,
			); err != nil {
				return fmt.Errorf("assign technician: %w", err)
			}
			assigned := techID
			current.TechnicianID = &assigned
			current.UpdatedAt = at
			out = current
			return nil
		}
		if lastErr != nil {
			return lastErr
		}
		return domain.NoTechniciansAvailable()
	})
	if err != nil {
		return models.Booking{}, err
	}
	return out, nil
}

// UpdateStatus locks the booking row, asks decide for the next status and
// writes it when it differs. It returns the updated booking and the status it
// had before.
func (r BookingRepository) UpdateStatus(ctx context.Context, id int64, at time.Time, decide func(models.Booking) (domain.BookingStatus, error)) (models.Booking, domain.BookingStatus, error) {
	var (
		out  models.Booking
		prev domain.BookingStatus
	)
	err := intdb.WithTx(ctx, r.db(), func(tx *sqlx.Tx) error {
		current, err := getForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		prev = current.Status

		next, err := decide(current)
		if err != nil {
			return err
		}
		if next != current.Status {
			if _, err := tx.ExecContext(ctx,
				`UPDATE bookings SET status = ?, updated_at = ? WHERE id = ?`,
				string(next), at, current.ID,
			); err != nil {
				return fmt.Errorf("update booking status: %w", err)
			}
			current.Status = next
			current.UpdatedAt = at
		}
		out = current
		return nil
	})
	if err != nil {
		return models.Booking{}, "", err
	}
	return out, prev, nil
}

// ListBetween returns bookings whose slot starts in [from, to), by slot.
func (r BookingRepository) ListBetween(ctx context.Context, from, to time.Time) ([]models.Booking, error) {
	ds := dialect.From("bookings").Prepared(true).
		Select(bookingSelect...).
		Where(goqu.C("time_slot").Gte(from), goqu.C("time_slot").Lt(to)).
		Order(goqu.C("time_slot").Asc(), goqu.C("id").Asc())
	return r.selectBookings(ctx, ds)
}

// ListForTechnician is the technician's job sheet for [from, to).
func (r BookingRepository) ListForTechnician(ctx context.Context, technicianID int64, from, to time.Time) ([]models.Booking, error) {
	ds := dialect.From("bookings").Prepared(true).
		Select(bookingSelect...).
		Where(
			goqu.C("technician_id").Eq(technicianID),
			goqu.C("time_slot").Gte(from),
			goqu.C("time_slot").Lt(to),
		).
		Order(goqu.C("time_slot").Asc(), goqu.C("id").Asc())
	return r.selectBookings(ctx, ds)
}

// ListActiveForTechnicians returns non-cancelled bookings of the given
// technicians that overlap [from, to).
func (r BookingRepository) ListActiveForTechnicians(ctx context.Context, technicianIDs []int64, from, to time.Time) ([]models.Booking, error) {
	if len(technicianIDs) == 0 {
		return []models.Booking{}, nil
	}
	ds := dialect.From("bookings").Prepared(true).
		Select(bookingSelect...).
		Where(
			goqu.C("technician_id").In(technicianIDs),
			goqu.C("status").Neq(string(domain.StatusCancelled)),
			goqu.C("time_slot").Lt(to),
			goqu.C("end_time").Gt(from),
		).
		Order(goqu.C("technician_id").Asc(), goqu.C("time_slot").Asc())
	return r.selectBookings(ctx, ds)
}

func (r BookingRepository) selectBookings(ctx context.Context, ds *goqu.SelectDataset) ([]models.Booking, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build booking query: %w", err)
	}
	var rows []bookingRow
	if err := r.db().SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return rowsToBookings(rows), nil
}

func lockTechnician(ctx context.Context, tx *sqlx.Tx, technicianID int64) error {
	var id int64
	// same predicate as the technician pool, so the ledger never books
	// someone the planner does not count
	err := tx.GetContext(ctx, &id,
		`SELECT id FROM technicians WHERE id = ? AND is_active = 1 AND role = ? FOR UPDATE`,
		technicianID, models.RoleWasher)
	if intdb.IsNoRows(err) {
		return domain.NotFoundError{Resource: "technician", Err: err}
	}
	if err != nil {
		return fmt.Errorf("lock technician %d: %w", technicianID, err)
	}
	return nil
}

func getForUpdate(ctx context.Context, tx *sqlx.Tx, id int64) (models.Booking, error) {
	var row bookingRow
	err := tx.GetContext(ctx, &row, `SELECT `+bookingColumns+` FROM bookings WHERE id = ? FOR UPDATE`, id)
	if intdb.IsNoRows(err) {
		return models.Booking{}, domain.NotFoundError{Resource: "booking", Err: err}
	}
	if err != nil {
		return models.Booking{}, fmt.Errorf("lock booking %d: %w", id, err)
	}
	return row.model(), nil
}

// ensureFree fails with SlotConflict when the technician holds another
// non-cancelled booking overlapping b. excludeID skips b's own row.
func ensureFree(ctx context.Context, tx *sqlx.Tx, technicianID int64, b models.Booking, excludeID int64) error {
	want, ok := b.Interval()
	if !ok {
		return domain.MissingPackageOrSlot()
	}
	var rows []bookingRow
	err := tx.SelectContext(ctx, &rows, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE technician_id = ? AND status <> ? AND id <> ?
		  AND time_slot < ? AND end_time > ?
		FOR UPDATE`,
		technicianID, string(domain.StatusCancelled), excludeID, want.End, want.Start,
	)
	if err != nil {
		return fmt.Errorf("check technician %d schedule: %w", technicianID, err)
	}
	for _, row := range rows {
		held, ok := row.model().Interval()
		if ok && held.Overlaps(want) {
			return domain.SlotConflict(technicianID, row.ID)
		}
	}
	return nil
}

func sameTechnician(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
