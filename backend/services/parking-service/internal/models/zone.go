package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LocationType classifies where a zone is.
type LocationType string

const (
	LocationStreet LocationType = "street"
	LocationLot    LocationType = "lot"
	LocationGarage LocationType = "garage"
)

// Valid reports whether t is a known location type.
func (t LocationType) Valid() bool {
	switch t {
	case LocationStreet, LocationLot, LocationGarage:
		return true
	}
	return false
}

// Zone is a priced parking area.
type Zone struct {
	ID               int64           `db:"id" json:"id"`
	Code             string          `db:"code" json:"code"`
	Name             string          `db:"name" json:"name"`
	RatePerHour      decimal.Decimal `db:"rate_per_hour" json:"rate_per_hour"`
	MaxDurationHours decimal.Decimal `db:"max_duration_hours" json:"max_duration_hours"`
	LocationType     LocationType    `db:"location_type" json:"location_type"`
	Active           bool            `db:"active" json:"active"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}
