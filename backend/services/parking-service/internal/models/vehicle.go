package models

import (
	"strings"
	"time"
)

// Vehicle is a car registered by a driver.
type Vehicle struct {
	ID           int64     `db:"id" json:"id"`
	UserID       int64     `db:"user_id" json:"user_id"`
	LicensePlate string    `db:"license_plate" json:"license_plate"`
	State        string    `db:"state" json:"state"`
	Nickname     string    `db:"nickname" json:"nickname,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// NormalizePlate upper-cases a plate and strips spaces and dashes.
func NormalizePlate(plate string) string {
	plate = strings.ToUpper(strings.TrimSpace(plate))
	return strings.NewReplacer(" ", "", "-", "").Replace(plate)
}
