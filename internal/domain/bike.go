package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type BikeStatus string

const (
	BikeStatusAvailable   BikeStatus = "AVAILABLE"
	BikeStatusRented      BikeStatus = "RENTED"
	BikeStatusMaintenance BikeStatus = "MAINTENANCE"
)

func ParseBikeStatus(s string) (BikeStatus, error) {
	switch st := BikeStatus(s); st {
	case BikeStatusAvailable, BikeStatusRented, BikeStatusMaintenance:
		return st, nil
	}
	return "", Validation("unknown bike status %q", s)
}

type Bike struct {
	ID           int64           `json:"id"`
	Description  string          `json:"description"`
	Status       BikeStatus      `json:"status"`
	DailyRateEur decimal.Decimal `json:"daily_rate_eur"`
	Provider     ProviderRef     `json:"provider"`
	CreatedAt    time.Time       `json:"created_at"`
}

// RentalTotal is the daily rate times the number of days, rounded to cents.
func (b Bike) RentalTotal(days int) decimal.Decimal {
	return b.DailyRateEur.Mul(decimal.NewFromInt(int64(days))).Round(2)
}
