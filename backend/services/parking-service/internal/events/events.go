// Package events publishes parking session lifecycle events for downstream consumers such
// as receipt mailers and enforcement dashboards.
package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"parkpay/backend/services/parking-service/internal/models"
)

// Type names a lifecycle event; it doubles as the AMQP routing key.
type Type string

const (
	SessionActivated Type = "session.activated"
	SessionExtended  Type = "session.extended"
	SessionCompleted Type = "session.completed"
	SessionExpired   Type = "session.expired"
	SessionExpiring  Type = "session.expiring"
)

// Event is the message body published for every transition.
type Event struct {
	Type             Type                 `json:"type"`
	SessionID        int64                `json:"session_id"`
	Reference        string               `json:"reference"`
	UserID           int64                `json:"user_id"`
	ZoneID           int64                `json:"zone_id"`
	Status           models.SessionStatus `json:"status"`
	ScheduledEndTime time.Time            `json:"scheduled_end_time"`
	Amount           decimal.Decimal      `json:"amount"`
	OccurredAt       time.Time            `json:"occurred_at"`
}

// FromSession builds an event of type t describing s. Amount is the money moved by the
// transition, zero when none.
func FromSession(t Type, s *models.Session, amount decimal.Decimal, at time.Time) Event {
	return Event{
		Type:             t,
		SessionID:        s.ID,
		Reference:        s.Reference,
		UserID:           s.UserID,
		ZoneID:           s.ZoneID,
		Status:           s.Status,
		ScheduledEndTime: s.ScheduledEndTime,
		Amount:           amount,
		OccurredAt:       at.UTC(),
	}
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, Event) error { return nil }
