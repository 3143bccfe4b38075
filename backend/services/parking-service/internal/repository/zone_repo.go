package repository

import (
	"context"
	"database/sql"
	"errors"

	"parkpay/backend/services/parking-service/internal/models"
)

const zoneColumns = `id, code, name, rate_per_hour, max_duration_hours, location_type, active, created_at, updated_at`

// ZoneRepository stores priced parking zones.
type ZoneRepository struct {
	db *sql.DB
}

// NewZoneRepository returns repository.
func NewZoneRepository(db *sql.DB) *ZoneRepository {
	return &ZoneRepository{db: db}
}

func scanZone(row interface{ Scan(...any) error }) (*models.Zone, error) {
	var z models.Zone
	if err := row.Scan(
		&z.ID,
		&z.Code,
		&z.Name,
		&z.RatePerHour,
		&z.MaxDurationHours,
		&z.LocationType,
		&z.Active,
		&z.CreatedAt,
		&z.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &z, nil
}

// Create inserts a zone.
func (r *ZoneRepository) Create(ctx context.Context, z *models.Zone) error {
	const query = `
		INSERT INTO zones (code, name, rate_per_hour, max_duration_hours, location_type, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		z.Code,
		z.Name,
		z.RatePerHour,
		z.MaxDurationHours,
		string(z.LocationType),
		z.Active,
	).Scan(&z.ID, &z.CreatedAt, &z.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// Update overwrites the editable zone fields.
func (r *ZoneRepository) Update(ctx context.Context, z *models.Zone) error {
	const query = `
		UPDATE zones
		SET name = $2,
		    rate_per_hour = $3,
		    max_duration_hours = $4,
		    location_type = $5,
		    active = $6,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING code, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		z.ID,
		z.Name,
		z.RatePerHour,
		z.MaxDurationHours,
		string(z.LocationType),
		z.Active,
	).Scan(&z.Code, &z.CreatedAt, &z.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// Get returns a zone by id.
func (r *ZoneRepository) Get(ctx context.Context, id int64) (*models.Zone, error) {
	query := `SELECT ` + zoneColumns + ` FROM zones WHERE id = $1`
	return scanZone(r.db.QueryRowContext(ctx, query, id))
}

// List returns zones ordered by code, optionally only active ones.
func (r *ZoneRepository) List(ctx context.Context, activeOnly bool) ([]models.Zone, error) {
	query := `SELECT ` + zoneColumns + ` FROM zones WHERE ($1 = false OR active) ORDER BY code`
	rows, err := r.db.QueryContext(ctx, query, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var zones []models.Zone
	for rows.Next() {
		z, err := scanZone(rows)
		if err != nil {
			return nil, err
		}
		zones = append(zones, *z)
	}
	return zones, rows.Err()
}
