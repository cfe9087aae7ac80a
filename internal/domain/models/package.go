package models

import (
	"time"

	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/domain"

	"github.com/shopspring/decimal"
)

// CommissionRule pays technicians flat + price*percentage/100 per job.
type CommissionRule struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	FlatAmount decimal.Decimal `json:"flat_amount"`
	Percentage decimal.Decimal `json:"percentage"`
}

func (r CommissionRule) For(price decimal.Decimal) decimal.Decimal {
	return domain.Commission(price, r.FlatAmount, r.Percentage)
}

// ServicePackage is a sellable wash product.
type ServicePackage struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	Category        string          `json:"category"`
	Description     string          `json:"description"`
	Price           decimal.Decimal `json:"price"`
	DurationMinutes int             `json:"duration_minutes"`
	Recipe          domain.Recipe   `json:"chemical_recipe"`
	CommissionRule  *CommissionRule `json:"commission_rule,omitempty"`
}

func (p ServicePackage) Duration() time.Duration {
	return time.Duration(p.DurationMinutes) * time.Minute
}
