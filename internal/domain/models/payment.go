package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice is created once per completed booking.
type Invoice struct {
	ID            int64           `json:"id"`
	BookingID     int64           `json:"booking_id"`
	Amount        decimal.Decimal `json:"amount"`
	IsPaid        bool            `json:"is_paid"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// InventoryDeduction describes the stock movement for one recipe line.
type InventoryDeduction struct {
	InventoryID    int64           `json:"inventory_id"`
	Chemical       string          `json:"chemical"`
	Used           decimal.Decimal `json:"used"`
	Remaining      decimal.Decimal `json:"remaining"`
	ReorderLevel   decimal.Decimal `json:"reorder_level"`
	AlreadyApplied bool            `json:"already_applied"`
}

func (d InventoryDeduction) BelowReorder() bool {
	return d.Remaining.LessThan(d.ReorderLevel)
}

// LoyaltyAward is the single points grant a completed booking earns.
type LoyaltyAward struct {
	BookingID  int64     `json:"booking_id"`
	CustomerID int64     `json:"customer_id"`
	Points     int64     `json:"points"`
	CreatedAt  time.Time `json:"created_at"`
}
