package handlers

import (
	"time"

	"github.com/shopspring/decimal"

	"parkpay/backend/services/parking-service/internal/lifecycle"
	"parkpay/backend/services/parking-service/internal/models"
	"parkpay/backend/services/parking-service/internal/pricing"
	redisstore "parkpay/backend/services/parking-service/internal/redis"
	"parkpay/backend/services/parking-service/internal/service"
)

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

type breakdownResponse struct {
	BaseCost      string `json:"base_cost"`
	TaxAmount     string `json:"tax_amount"`
	ProcessingFee string `json:"processing_fee"`
	TotalCost     string `json:"total_cost"`
}

func toBreakdown(b pricing.Breakdown) breakdownResponse {
	return breakdownResponse{
		BaseCost:      money(b.BaseCost),
		TaxAmount:     money(b.TaxAmount),
		ProcessingFee: money(b.ProcessingFee),
		TotalCost:     money(b.TotalCost),
	}
}

type sessionResponse struct {
	ID               int64      `json:"id"`
	Reference        string     `json:"reference"`
	VehicleID        int64      `json:"vehicle_id"`
	ZoneID           int64      `json:"zone_id"`
	Status           string     `json:"status"`
	RatePerHour      string     `json:"rate_per_hour"`
	DurationHours    string     `json:"duration_hours"`
	StartTime        time.Time  `json:"start_time"`
	ScheduledEndTime time.Time  `json:"scheduled_end_time"`
	EndTime          *time.Time `json:"end_time,omitempty"`
	RemainingSeconds int64      `json:"remaining_seconds"`
	RefundAmount     string     `json:"refund_amount"`
	breakdownResponse
}

func toSession(s *models.Session, now time.Time) sessionResponse {
	var remaining int64
	if s.Status.Running() {
		remaining = int64(s.Remaining(now) / time.Second)
	}
	return sessionResponse{
		ID:                s.ID,
		Reference:         s.Reference,
		VehicleID:         s.VehicleID,
		ZoneID:            s.ZoneID,
		Status:            string(s.Status),
		RatePerHour:       money(s.RatePerHour),
		DurationHours:     s.DurationHours.String(),
		StartTime:         s.StartTime,
		ScheduledEndTime:  s.ScheduledEndTime,
		EndTime:           s.EndTime,
		RemainingSeconds:  remaining,
		RefundAmount:      money(s.RefundAmount),
		breakdownResponse: toBreakdown(s.Paid()),
	}
}

func toSessions(sessions []models.Session, now time.Time) []sessionResponse {
	out := make([]sessionResponse, 0, len(sessions))
	for i := range sessions {
		out = append(out, toSession(&sessions[i], now))
	}
	return out
}

type extensionOptionResponse struct {
	Hours string            `json:"hours"`
	Cost  breakdownResponse `json:"cost"`
}

type extensionOffersResponse struct {
	MaxAdditionalHours string                    `json:"max_additional_hours"`
	Options            []extensionOptionResponse `json:"options"`
}

func toOffer(o *service.ExtensionOffer) extensionOffersResponse {
	resp := extensionOffersResponse{
		MaxAdditionalHours: o.MaxAdditionalHours.String(),
		Options:            make([]extensionOptionResponse, 0, len(o.Options)),
	}
	for _, opt := range o.Options {
		resp.Options = append(resp.Options, extensionOptionResponse{Hours: opt.Hours.String(), Cost: toBreakdown(opt.Cost)})
	}
	return resp
}

type refundResponse struct {
	TimeUsedHours   string            `json:"time_used_hours"`
	ChargeableHours string            `json:"chargeable_hours"`
	ShouldPay       breakdownResponse `json:"should_pay"`
	RefundAmount    string            `json:"refund_amount"`
}

func toRefund(r *lifecycle.Refund) refundResponse {
	return refundResponse{
		TimeUsedHours:   r.TimeUsedHours.StringFixed(2),
		ChargeableHours: r.ChargeableHours.StringFixed(2),
		ShouldPay:       toBreakdown(r.ShouldPay),
		RefundAmount:    money(r.Amount),
	}
}

type zoneResponse struct {
	ID               int64  `json:"id"`
	Code             string `json:"code"`
	Name             string `json:"name"`
	RatePerHour      string `json:"rate_per_hour"`
	MaxDurationHours string `json:"max_duration_hours"`
	LocationType     string `json:"location_type"`
	Active           bool   `json:"active"`
}

func toZone(z *models.Zone) zoneResponse {
	return zoneResponse{
		ID:               z.ID,
		Code:             z.Code,
		Name:             z.Name,
		RatePerHour:      money(z.RatePerHour),
		MaxDurationHours: z.MaxDurationHours.String(),
		LocationType:     string(z.LocationType),
		Active:           z.Active,
	}
}

type transactionResponse struct {
	ID           int64     `json:"id"`
	SessionID    int64     `json:"session_id"`
	UserID       int64     `json:"user_id"`
	Kind         string    `json:"kind"`
	Amount       string    `json:"amount"`
	ProcessorRef string    `json:"processor_ref"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

func toTransactions(txs []models.Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, transactionResponse{
			ID:           tx.ID,
			SessionID:    tx.SessionID,
			UserID:       tx.UserID,
			Kind:         string(tx.Kind),
			Amount:       money(tx.Amount),
			ProcessorRef: tx.ProcessorRef,
			Status:       tx.Status,
			CreatedAt:    tx.CreatedAt,
		})
	}
	return out
}

type statusResponse struct {
	SessionID        int64     `json:"session_id"`
	Status           string    `json:"status"`
	ScheduledEndTime time.Time `json:"scheduled_end_time"`
	RemainingSeconds int64     `json:"remaining_seconds"`
}

func toStatus(v *redisstore.ActiveSession, now time.Time) statusResponse {
	var remaining int64
	if v.Status.Running() && v.ScheduledEndTime.After(now) {
		remaining = int64(v.ScheduledEndTime.Sub(now) / time.Second)
	}
	return statusResponse{
		SessionID:        v.SessionID,
		Status:           string(v.Status),
		ScheduledEndTime: v.ScheduledEndTime,
		RemainingSeconds: remaining,
	}
}
