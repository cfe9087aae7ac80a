package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const RoleWasher = "WASHER"

// Technician is a staff member who can be dispatched to jobs.
type Technician struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

// PayrollEntry aggregates one technician's earnings for one business date.
type PayrollEntry struct {
	ID               int64           `json:"id"`
	StaffID          int64           `json:"staff_id"`
	Date             time.Time       `json:"date"`
	BaseWage         decimal.Decimal `json:"base_wage"`
	CommissionEarned decimal.Decimal `json:"commission_earned"`
	TipsEarned       decimal.Decimal `json:"tips_earned"`
}

func (e PayrollEntry) Total() decimal.Decimal {
	return e.BaseWage.Add(e.CommissionEarned).Add(e.TipsEarned)
}
