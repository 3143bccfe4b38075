package repository

import (
	"context"
	"database/sql"
	"errors"

	"parkpay/backend/services/parking-service/internal/models"
)

// VehicleRepository stores driver vehicles.
type VehicleRepository struct {
	db *sql.DB
}

// NewVehicleRepository returns repository.
func NewVehicleRepository(db *sql.DB) *VehicleRepository {
	return &VehicleRepository{db: db}
}

// Create registers a vehicle. A plate can be registered once per user.
func (r *VehicleRepository) Create(ctx context.Context, v *models.Vehicle) error {
	const query = `
		INSERT INTO vehicles (user_id, license_plate, state, nickname)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, v.UserID, v.LicensePlate, v.State, v.Nickname).
		Scan(&v.ID, &v.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// Get returns a vehicle by id.
func (r *VehicleRepository) Get(ctx context.Context, id int64) (*models.Vehicle, error) {
	const query = `
		SELECT id, user_id, license_plate, state, nickname, created_at
		FROM vehicles
		WHERE id = $1
	`
	var v models.Vehicle
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&v.ID, &v.UserID, &v.LicensePlate, &v.State, &v.Nickname, &v.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ListByUser returns the user's vehicles, newest first.
func (r *VehicleRepository) ListByUser(ctx context.Context, userID int64) ([]models.Vehicle, error) {
	const query = `
		SELECT id, user_id, license_plate, state, nickname, created_at
		FROM vehicles
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vehicles []models.Vehicle
	for rows.Next() {
		var v models.Vehicle
		if err := rows.Scan(&v.ID, &v.UserID, &v.LicensePlate, &v.State, &v.Nickname, &v.CreatedAt); err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, rows.Err()
}
