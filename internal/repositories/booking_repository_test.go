package repositories

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/domain"
	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/domain/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

var bookingCols = []string{
	"id", "customer_id", "vehicle_id", "technician_id", "service_package_id",
	"time_slot", "end_time", "status", "address", "latitude", "longitude", "created_at", "updated_at",
}

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })
	return sqlx.NewDb(mockDB, "sqlmock"), mock
}

func slot(h, m int) time.Time {
	return time.Date(2024, 6, 1, h, m, 0, 0, time.UTC)
}

func bookingValues(id, technicianID int64, start, end time.Time, status domain.BookingStatus) []driver.Value {
	return []driver.Value{
		id, int64(11), int64(21), technicianID, int64(3),
		start, end, string(status), "Marina Walk", nil, nil, slot(8, 0), slot(8, 0),
	}
}

func newBooking(technicianID int64, start time.Time, minutes int) models.Booking {
	end := start.Add(time.Duration(minutes) * time.Minute)
	pkg := int64(3)
	return models.Booking{
		CustomerID:       11,
		VehicleID:        21,
		TechnicianID:     &technicianID,
		ServicePackageID: &pkg,
		TimeSlot:         start,
		EndTime:          &end,
		Status:           domain.StatusPending,
		CreatedAt:        slot(8, 0),
		UpdatedAt:        slot(8, 0),
	}
}

func TestCreateWithNoOverlapInsertsWhenFree(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM technicians WHERE id = \\? AND is_active = 1 AND role = \\? FOR UPDATE").
		WithArgs(7, models.RoleWasher).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery("FROM bookings\\s+WHERE technician_id = \\? AND status <> \\? AND id <> \\?").
		WithArgs(7, "CANCELLED", 0, slot(11, 0), slot(10, 0)).
		WillReturnRows(sqlmock.NewRows(bookingCols))
	mock.ExpectExec("INSERT INTO bookings").
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectCommit()

	repo := BookingRepository{DB: db}
	got, err := repo.CreateWithNoOverlap(context.Background(), newBooking(7, slot(10, 0), 60))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.ID != 42 {
		t.Fatalf("expected id 42, got %d", got.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateWithNoOverlapRejectsContainedBooking(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM technicians").
		WithArgs(7, models.RoleWasher).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery("FROM bookings\\s+WHERE technician_id = \\?").
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(bookingValues(5, 7, slot(10, 0), slot(11, 0), domain.StatusConfirmed)...))
	mock.ExpectRollback()

	repo := BookingRepository{DB: db}
	_, err := repo.CreateWithNoOverlap(context.Background(), newBooking(7, slot(10, 15), 30))
	if !errors.Is(err, domain.ErrSlotConflict) {
		t.Fatalf("expected slot conflict, got %v", err)
	}
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict category, got %T", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateWithNoOverlapAllowsTouchingBooking(t *testing.T) {
	db, mock := newMock(t)

	// A row ending exactly at the new start does not block it.
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM technicians").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery("FROM bookings\\s+WHERE technician_id = \\?").
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(bookingValues(5, 7, slot(10, 0), slot(11, 0), domain.StatusConfirmed)...))
	mock.ExpectExec("INSERT INTO bookings").
		WillReturnResult(sqlmock.NewResult(43, 1))
	mock.ExpectCommit()

	repo := BookingRepository{DB: db}
	got, err := repo.CreateWithNoOverlap(context.Background(), newBooking(7, slot(11, 0), 60))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.ID != 43 {
		t.Fatalf("expected id 43, got %d", got.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateWithNoOverlapUnknownTechnician(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM technicians").
		WithArgs(9, models.RoleWasher).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	repo := BookingRepository{DB: db}
	_, err := repo.CreateWithNoOverlap(context.Background(), newBooking(9, slot(10, 0), 60))
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateUnassignedSkipsCheck(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO bookings").
		WillReturnResult(sqlmock.NewResult(44, 1))
	mock.ExpectCommit()

	b := newBooking(0, slot(10, 0), 60)
	b.TechnicianID = nil

	repo := BookingRepository{DB: db}
	if _, err := repo.CreateWithNoOverlap(context.Background(), b); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateStatusWritesNewStatus(t *testing.T) {
	db, mock := newMock(t)
	now := slot(12, 0)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM bookings WHERE id = \\? FOR UPDATE").
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(bookingValues(5, 7, slot(10, 0), slot(11, 0), domain.StatusInProgress)...))
	mock.ExpectExec("UPDATE bookings SET status = \\?, updated_at = \\? WHERE id = \\?").
		WithArgs("COMPLETED", now, 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := BookingRepository{DB: db}
	got, prev, err := repo.UpdateStatus(context.Background(), 5, now, func(b models.Booking) (domain.BookingStatus, error) {
		return domain.StatusCompleted, nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if prev != domain.StatusInProgress || got.Status != domain.StatusCompleted {
		t.Fatalf("unexpected transition %s -> %s", prev, got.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateStatusRollsBackRejectedTransition(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM bookings WHERE id = \\? FOR UPDATE").
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(bookingValues(5, 7, slot(10, 0), slot(11, 0), domain.StatusCancelled)...))
	mock.ExpectRollback()

	repo := BookingRepository{DB: db}
	_, _, err := repo.UpdateStatus(context.Background(), 5, slot(12, 0), func(b models.Booking) (domain.BookingStatus, error) {
		return "", domain.InvalidTransition(b.Status, domain.StatusPending)
	})
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func moveTo(start time.Time, minutes int, now time.Time) func(models.Booking) (models.Booking, error) {
	return func(b models.Booking) (models.Booking, error) {
		end := start.Add(time.Duration(minutes) * time.Minute)
		b.TimeSlot = start
		b.EndTime = &end
		b.UpdatedAt = now
		return b, nil
	}
}

func TestRescheduleWithinOwnIntervalExcludesItself(t *testing.T) {
	db, mock := newMock(t)
	now := slot(9, 0)

	mock.ExpectQuery("FROM bookings WHERE id = \\? LIMIT 1").WithArgs(5).
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(bookingValues(5, 7, slot(10, 0), slot(11, 0), domain.StatusConfirmed)...))
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM technicians").WithArgs(7, models.RoleWasher).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery("FROM bookings WHERE id = \\? FOR UPDATE").WithArgs(5).
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(bookingValues(5, 7, slot(10, 0), slot(11, 0), domain.StatusConfirmed)...))
	// the booking's own row is excluded by id, so nothing comes back
	mock.ExpectQuery("FROM bookings\\s+WHERE technician_id = \\? AND status <> \\? AND id <> \\?").
		WithArgs(7, "CANCELLED", 5, slot(11, 30), slot(10, 30)).
		WillReturnRows(sqlmock.NewRows(bookingCols))
	mock.ExpectExec("UPDATE bookings\\s+SET service_package_id = \\?, time_slot = \\?, end_time = \\?, updated_at = \\?\\s+WHERE id = \\?").
		WithArgs(3, slot(10, 30), slot(11, 30), now, 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	got, err := BookingRepository{DB: db}.Reschedule(context.Background(), 5, moveTo(slot(10, 30), 60, now))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !got.TimeSlot.Equal(slot(10, 30)) || got.EndTime == nil || !got.EndTime.Equal(slot(11, 30)) {
		t.Fatalf("unexpected schedule %v - %v", got.TimeSlot, got.EndTime)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRescheduleOntoOtherBookingConflicts(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery("FROM bookings WHERE id = \\? LIMIT 1").WithArgs(5).
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(bookingValues(5, 7, slot(10, 0), slot(11, 0), domain.StatusConfirmed)...))
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM technicians").WithArgs(7, models.RoleWasher).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery("FROM bookings WHERE id = \\? FOR UPDATE").WithArgs(5).
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(bookingValues(5, 7, slot(10, 0), slot(11, 0), domain.StatusConfirmed)...))
	mock.ExpectQuery("FROM bookings\\s+WHERE technician_id = \\?").
		WithArgs(7, "CANCELLED", 5, slot(11, 30), slot(10, 30)).
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(bookingValues(6, 7, slot(11, 0), slot(12, 0), domain.StatusPending)...))
	mock.ExpectRollback()

	_, err := BookingRepository{DB: db}.Reschedule(context.Background(), 5, moveTo(slot(10, 30), 60, slot(9, 0)))
	if !errors.Is(err, domain.ErrSlotConflict) {
		t.Fatalf("expected slot conflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRescheduleRejectsTechnicianChangedBeforeLock(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery("FROM bookings WHERE id = \\? LIMIT 1").WithArgs(5).
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(bookingValues(5, 7, slot(10, 0), slot(11, 0), domain.StatusConfirmed)...))
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM technicians").WithArgs(7, models.RoleWasher).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	// reassigned to technician 8 between the read and the lock
	mock.ExpectQuery("FROM bookings WHERE id = \\? FOR UPDATE").WithArgs(5).
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(bookingValues(5, 8, slot(10, 0), slot(11, 0), domain.StatusConfirmed)...))
	mock.ExpectRollback()

	applied := false
	_, err := BookingRepository{DB: db}.Reschedule(context.Background(), 5, func(b models.Booking) (models.Booking, error) {
		applied = true
		return b, nil
	})
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if applied {
		t.Fatalf("schedule must not be recomputed against a stale technician")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAssignSkipsBusyTechnician(t *testing.T) {
	db, mock := newMock(t)
	now := slot(9, 0)

	unassigned := bookingValues(8, 0, slot(10, 0), slot(11, 0), domain.StatusPending)
	unassigned[3] = nil

	mock.ExpectBegin()
	// technician 1 is busy
	mock.ExpectQuery("SELECT id FROM technicians").WithArgs(1, models.RoleWasher).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery("FROM bookings WHERE id = \\? FOR UPDATE").WithArgs(8).
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(unassigned...))
	mock.ExpectQuery("FROM bookings\\s+WHERE technician_id = \\?").WithArgs(1, "CANCELLED", 8, slot(11, 0), slot(10, 0)).
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(bookingValues(3, 1, slot(10, 30), slot(11, 30), domain.StatusConfirmed)...))
	// technician 2 is free
	mock.ExpectQuery("SELECT id FROM technicians").WithArgs(2, models.RoleWasher).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectQuery("FROM bookings WHERE id = \\? FOR UPDATE").WithArgs(8).
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(unassigned...))
	mock.ExpectQuery("FROM bookings\\s+WHERE technician_id = \\?").WithArgs(2, "CANCELLED", 8, slot(11, 0), slot(10, 0)).
		WillReturnRows(sqlmock.NewRows(bookingCols))
	mock.ExpectExec("UPDATE bookings SET technician_id = \\?").WithArgs(2, now, 8).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := BookingRepository{DB: db}
	got, err := repo.Assign(context.Background(), 8, []int64{1, 2}, now)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.TechnicianID == nil || *got.TechnicianID != 2 {
		t.Fatalf("expected technician 2, got %v", got.TechnicianID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListActiveForTechniciansBuildsWindowQuery(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery("SELECT .+ FROM `bookings` WHERE \\(\\(`technician_id` IN \\(\\?, \\?\\)\\) AND \\(`status` != \\?\\)").
		WithArgs(1, 2, "CANCELLED", slot(17, 0), slot(9, 0)).
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(bookingValues(5, 1, slot(10, 0), slot(11, 0), domain.StatusPending)...))

	repo := BookingRepository{DB: db}
	got, err := repo.ListActiveForTechnicians(context.Background(), []int64{1, 2}, slot(9, 0), slot(17, 0))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(got) != 1 || got[0].EndTime == nil || !got[0].EndTime.Equal(slot(11, 0)) {
		t.Fatalf("unexpected bookings %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery("FROM bookings WHERE id = \\? LIMIT 1").
		WithArgs(99).
		WillReturnRows(sqlmock.NewRows(bookingCols))

	_, err := BookingRepository{DB: db}.GetByID(context.Background(), 99)
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}
