package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SimulatedProcessor approves every charge up to an optional limit and keeps the ledger in
// memory. It backs local development and tests.
type SimulatedProcessor struct {
	mu       sync.Mutex
	limit    decimal.Decimal
	charges  map[string]decimal.Decimal
	refunded map[string]decimal.Decimal
	byKey    map[string]string
}

// NewSimulatedProcessor returns a processor that declines charges above limit. A zero limit
// approves everything.
func NewSimulatedProcessor(limit decimal.Decimal) *SimulatedProcessor {
	return &SimulatedProcessor{
		limit:    limit,
		charges:  make(map[string]decimal.Decimal),
		refunded: make(map[string]decimal.Decimal),
		byKey:    make(map[string]string),
	}
}

// Charge records the charge and returns its id. Repeating an idempotency key returns the
// original id.
func (p *SimulatedProcessor) Charge(_ context.Context, req ChargeRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if req.IdempotencyKey != "" {
		if id, ok := p.byKey[req.IdempotencyKey]; ok {
			return id, nil
		}
	}
	if !req.Amount.IsPositive() {
		return "", fmt.Errorf("payment: amount must be positive, got %s", req.Amount)
	}
	if p.limit.IsPositive() && req.Amount.GreaterThan(p.limit) {
		return "", fmt.Errorf("%w: amount %s over limit", ErrDeclined, req.Amount.StringFixed(2))
	}

	id := "ch_" + uuid.NewString()
	p.charges[id] = req.Amount
	if req.IdempotencyKey != "" {
		p.byKey[req.IdempotencyKey] = id
	}
	return id, nil
}

// Refund returns part of a charge. The total refunded can never exceed the charge.
func (p *SimulatedProcessor) Refund(_ context.Context, transactionID string, amount decimal.Decimal) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	charged, ok := p.charges[transactionID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownCharge, transactionID)
	}
	total := p.refunded[transactionID].Add(amount)
	if total.GreaterThan(charged) {
		return "", fmt.Errorf("payment: refund %s exceeds charge %s", total.StringFixed(2), charged.StringFixed(2))
	}
	p.refunded[transactionID] = total
	return "re_" + uuid.NewString(), nil
}

// Refunded returns how much of a charge has been refunded.
func (p *SimulatedProcessor) Refunded(transactionID string) decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.refunded[transactionID]
}

// Charges returns the number of distinct charges taken.
func (p *SimulatedProcessor) Charges() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.charges)
}
