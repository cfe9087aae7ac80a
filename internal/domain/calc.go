package domain

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// DefaultLoyaltyRate awards one point per ten currency units.
var DefaultLoyaltyRate = decimal.RequireFromString("0.10")

// Commission is flat + price*percentage/100, rounded to cents.
func Commission(price, flat, percentage decimal.Decimal) decimal.Decimal {
	return flat.Add(price.Mul(percentage).Div(hundred)).Round(2)
}

// LoyaltyPoints truncates price*rate to whole points.
func LoyaltyPoints(price, rate decimal.Decimal) int64 {
	if price.IsNegative() || rate.IsNegative() {
		return 0
	}
	return price.Mul(rate).Floor().IntPart()
}
