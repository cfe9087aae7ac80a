package repositories

import (
	"context"
	"testing"

	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/domain"
	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/domain/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
)

func TestAccumulateCommissionCreatesOrAddsToEntry(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO commission_postings").
		WithArgs(5, 7, "2024-06-01", "10").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO payroll_entries .+ ON DUPLICATE KEY UPDATE commission_earned = commission_earned \\+ VALUES\\(commission_earned\\)").
		WithArgs(7, "2024-06-01", "10").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	applied, err := PayrollRepository{DB: db}.AccumulateCommission(context.Background(), 7, slot(0, 0), decimal.NewFromInt(10), 5)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !applied {
		t.Fatalf("expected commission to be applied")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccumulateCommissionPostsBookingOnce(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO commission_postings").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectCommit()

	applied, err := PayrollRepository{DB: db}.AccumulateCommission(context.Background(), 7, slot(0, 0), decimal.NewFromInt(10), 5)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if applied {
		t.Fatalf("duplicate posting must not accumulate again")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetPayrollEntry(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery("SELECT .+ FROM payroll_entries").
		WithArgs(7, "2024-06-01").
		WillReturnRows(sqlmock.NewRows([]string{"id", "staff_id", "entry_date", "base_wage", "commission_earned", "tips_earned"}).
			AddRow(1, 7, slot(0, 0), "40.00", "12.50", "0.00"))

	entry, err := PayrollRepository{DB: db}.GetEntry(context.Background(), 7, slot(0, 0))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !entry.Total().Equal(decimal.RequireFromString("52.5")) {
		t.Fatalf("expected total 52.5, got %s", entry.Total())
	}

	mock.ExpectQuery("SELECT .+ FROM payroll_entries").WillReturnRows(sqlmock.NewRows([]string{"id"}))
	if _, err := (PayrollRepository{DB: db}).GetEntry(context.Background(), 8, slot(0, 0)); !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLoyaltyAwardOncePerBooking(t *testing.T) {
	db, mock := newMock(t)
	award := models.LoyaltyAward{BookingID: 5, CustomerID: 11, Points: 5, CreatedAt: slot(12, 0)}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO loyalty_awards").
		WithArgs(5, 11, 5, slot(12, 0)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE customers SET loyalty_points = loyalty_points \\+ \\?").
		WithArgs(5, 11).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO loyalty_awards").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectCommit()

	repo := LoyaltyRepository{DB: db}
	first, err := repo.Award(context.Background(), award)
	if err != nil || !first {
		t.Fatalf("expected first award to apply, got %v %v", first, err)
	}
	second, err := repo.Award(context.Background(), award)
	if err != nil || second {
		t.Fatalf("expected second award to be a no-op, got %v %v", second, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
