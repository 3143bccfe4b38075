package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind tells what a money movement was for.
type TransactionKind string

const (
	TransactionCharge    TransactionKind = "charge"
	TransactionExtension TransactionKind = "extension"
	TransactionRefund    TransactionKind = "refund"
)

// Transaction records one charge or refund against a parking session.
type Transaction struct {
	ID           int64           `db:"id" json:"id"`
	SessionID    int64           `db:"session_id" json:"session_id"`
	UserID       int64           `db:"user_id" json:"user_id"`
	Kind         TransactionKind `db:"kind" json:"kind"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`
	ProcessorRef string          `db:"processor_ref" json:"processor_ref"`
	Status       string          `db:"status" json:"status"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}
