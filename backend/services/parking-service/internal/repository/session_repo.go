package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"parkpay/backend/services/parking-service/internal/models"
)

const sessionColumns = `id, reference, user_id, vehicle_id, zone_id, rate_per_hour, duration_hours,
	start_time, scheduled_end_time, end_time, base_cost, tax_amount, processing_fee, total_cost,
	refund_amount, status, payment_ref, version, created_at, updated_at`

// SessionRepository handles persistence of parking sessions.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository returns repository.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func scanSession(row interface{ Scan(...any) error }) (*models.Session, error) {
	var s models.Session
	if err := row.Scan(
		&s.ID,
		&s.Reference,
		&s.UserID,
		&s.VehicleID,
		&s.ZoneID,
		&s.RatePerHour,
		&s.DurationHours,
		&s.StartTime,
		&s.ScheduledEndTime,
		&s.EndTime,
		&s.BaseCost,
		&s.TaxAmount,
		&s.ProcessingFee,
		&s.TotalCost,
		&s.RefundAmount,
		&s.Status,
		&s.PaymentRef,
		&s.Version,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func collectSessions(rows *sql.Rows) ([]models.Session, error) {
	defer rows.Close()
	var sessions []models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// Create inserts a new session.
func (r *SessionRepository) Create(ctx context.Context, s *models.Session) error {
	const query = `
		INSERT INTO parking_sessions (reference, user_id, vehicle_id, zone_id, rate_per_hour, duration_hours,
			start_time, scheduled_end_time, base_cost, tax_amount, processing_fee, total_cost,
			refund_amount, status, payment_ref, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW(), NOW())
		RETURNING id, version, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		s.Reference,
		s.UserID,
		s.VehicleID,
		s.ZoneID,
		s.RatePerHour,
		s.DurationHours,
		s.StartTime,
		s.ScheduledEndTime,
		s.BaseCost,
		s.TaxAmount,
		s.ProcessingFee,
		s.TotalCost,
		s.RefundAmount,
		string(s.Status),
		s.PaymentRef,
	).Scan(&s.ID, &s.Version, &s.CreatedAt, &s.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// Get returns a session by id.
func (r *SessionRepository) Get(ctx context.Context, id int64) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM parking_sessions WHERE id = $1`
	return scanSession(r.db.QueryRowContext(ctx, query, id))
}

// Update writes the mutable session fields, but only while the stored status is one of
// expected and the stored version still matches s.Version. ErrStaleStatus is returned when
// another writer changed the session first; on success s.Version is advanced.
func (r *SessionRepository) Update(ctx context.Context, s *models.Session, expected ...models.SessionStatus) error {
	const query = `
		UPDATE parking_sessions
		SET duration_hours = $2,
		    start_time = $3,
		    scheduled_end_time = $4,
		    end_time = $5,
		    base_cost = $6,
		    tax_amount = $7,
		    processing_fee = $8,
		    total_cost = $9,
		    refund_amount = $10,
		    status = $11,
		    payment_ref = $12,
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = $1 AND status = ANY($13) AND version = $14
		RETURNING version, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		s.ID,
		s.DurationHours,
		s.StartTime,
		s.ScheduledEndTime,
		s.EndTime,
		s.BaseCost,
		s.TaxAmount,
		s.ProcessingFee,
		s.TotalCost,
		s.RefundAmount,
		string(s.Status),
		s.PaymentRef,
		statusStrings(expected),
		s.Version,
	).Scan(&s.Version, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrStaleStatus
	}
	return err
}

// ListByUser returns last N sessions for user.
func (r *SessionRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]models.Session, error) {
	query := `SELECT ` + sessionColumns + `
		FROM parking_sessions
		WHERE user_id = $1
		ORDER BY start_time DESC
		LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, userID, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	return collectSessions(rows)
}

// ListRunning returns ACTIVE and EXTENDED sessions that have not reached their end at now.
func (r *SessionRepository) ListRunning(ctx context.Context, now time.Time, limit int) ([]models.Session, error) {
	query := `SELECT ` + sessionColumns + `
		FROM parking_sessions
		WHERE status IN ('ACTIVE', 'EXTENDED') AND scheduled_end_time > $1
		ORDER BY scheduled_end_time
		LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, now, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	return collectSessions(rows)
}

// ListEndingBetween returns running sessions scheduled to end in (from, to].
func (r *SessionRepository) ListEndingBetween(ctx context.Context, from, to time.Time) ([]models.Session, error) {
	query := `SELECT ` + sessionColumns + `
		FROM parking_sessions
		WHERE status IN ('ACTIVE', 'EXTENDED') AND scheduled_end_time > $1 AND scheduled_end_time <= $2
		ORDER BY scheduled_end_time`
	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	return collectSessions(rows)
}

// ExpireOverdue marks every open session whose scheduled end is at or before now as EXPIRED
// and returns the rows it changed.
func (r *SessionRepository) ExpireOverdue(ctx context.Context, now time.Time) ([]models.Session, error) {
	query := `
		UPDATE parking_sessions
		SET status = 'EXPIRED', version = version + 1, updated_at = NOW()
		WHERE status IN ('PENDING', 'ACTIVE', 'EXTENDED') AND scheduled_end_time <= $1
		RETURNING ` + sessionColumns
	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, err
	}
	return collectSessions(rows)
}

func statusStrings(statuses []models.SessionStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}
