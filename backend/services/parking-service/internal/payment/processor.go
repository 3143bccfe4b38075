package payment

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrDeclined is returned when the processor refuses a charge.
	ErrDeclined = errors.New("payment: declined")
	// ErrUnknownCharge is returned when refunding a charge the processor does not know.
	ErrUnknownCharge = errors.New("payment: unknown charge")
)

// ChargeRequest asks the processor to capture an amount from the customer's card.
type ChargeRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Reference      string          `json:"reference"`
	Description    string          `json:"description"`
	IdempotencyKey string          `json:"-"`
}

// Processor is the card processor used to take and return money.
type Processor interface {
	Charge(ctx context.Context, req ChargeRequest) (transactionID string, err error)
	Refund(ctx context.Context, transactionID string, amount decimal.Decimal) (refundID string, err error)
}
