package repository

import (
	"context"
	"database/sql"

	"parkpay/backend/services/parking-service/internal/models"
)

// TransactionRepository persists charges and refunds.
type TransactionRepository struct {
	db *sql.DB
}

// NewTransactionRepository returns repository.
func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create inserts a new transaction.
func (r *TransactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	const query = `
		INSERT INTO payment_transactions (session_id, user_id, kind, amount, processor_ref, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id, created_at
	`
	return r.db.QueryRowContext(ctx, query,
		tx.SessionID,
		tx.UserID,
		string(tx.Kind),
		tx.Amount,
		tx.ProcessorRef,
		tx.Status,
	).Scan(&tx.ID, &tx.CreatedAt)
}

// ListByUser returns the latest transactions of a user.
func (r *TransactionRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]models.Transaction, error) {
	const query = `
		SELECT id, session_id, user_id, kind, amount, processor_ref, status, created_at
		FROM payment_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	return r.list(ctx, query, userID, clampLimit(limit))
}

// ListBySession returns the transactions of one session, oldest first.
func (r *TransactionRepository) ListBySession(ctx context.Context, sessionID int64) ([]models.Transaction, error) {
	const query = `
		SELECT id, session_id, user_id, kind, amount, processor_ref, status, created_at
		FROM payment_transactions
		WHERE session_id = $1
		ORDER BY created_at, id
	`
	return r.list(ctx, query, sessionID)
}

// ListAll returns the latest transactions across users.
func (r *TransactionRepository) ListAll(ctx context.Context, limit int) ([]models.Transaction, error) {
	const query = `
		SELECT id, session_id, user_id, kind, amount, processor_ref, status, created_at
		FROM payment_transactions
		ORDER BY created_at DESC
		LIMIT $1
	`
	return r.list(ctx, query, clampLimit(limit))
}

func (r *TransactionRepository) list(ctx context.Context, query string, args ...any) ([]models.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		var tx models.Transaction
		if err := rows.Scan(
			&tx.ID,
			&tx.SessionID,
			&tx.UserID,
			&tx.Kind,
			&tx.Amount,
			&tx.ProcessorRef,
			&tx.Status,
			&tx.CreatedAt,
		); err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}
