package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// HTTPDoer defines http.Client interface subset.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// HTTPProcessor talks to a card-processing gateway over JSON/HTTP.
type HTTPProcessor struct {
	baseURL string
	apiKey  string
	client  HTTPDoer
	logger  *zap.Logger
}

// NewHTTPProcessor returns a processor client. A nil client gets a default one with timeout.
func NewHTTPProcessor(baseURL, apiKey string, timeout time.Duration, client HTTPDoer, logger *zap.Logger) *HTTPProcessor {
	if client == nil {
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPProcessor{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
		logger:  logger,
	}
}

type chargeResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Reason string `json:"decline_reason,omitempty"`
}

type refundRequest struct {
	ChargeID string          `json:"charge_id"`
	Amount   decimal.Decimal `json:"amount"`
}

type refundResponse struct {
	ID string `json:"id"`
}

// Charge captures req.Amount.
func (p *HTTPProcessor) Charge(ctx context.Context, req ChargeRequest) (string, error) {
	if req.Currency == "" {
		req.Currency = "usd"
	}
	var resp chargeResponse
	status, err := p.post(ctx, "/v1/charges", req, req.IdempotencyKey, &resp)
	if err != nil {
		return "", err
	}
	if status == http.StatusPaymentRequired || resp.Status == "declined" {
		return "", fmt.Errorf("%w: %s", ErrDeclined, resp.Reason)
	}
	if status >= 300 || resp.ID == "" {
		return "", fmt.Errorf("payment: charge failed with status %d", status)
	}
	return resp.ID, nil
}

// Refund returns amount from a previous charge.
func (p *HTTPProcessor) Refund(ctx context.Context, transactionID string, amount decimal.Decimal) (string, error) {
	var resp refundResponse
	status, err := p.post(ctx, "/v1/refunds", refundRequest{ChargeID: transactionID, Amount: amount}, "refund-"+transactionID+"-"+amount.StringFixed(2), &resp)
	if err != nil {
		return "", err
	}
	if status == http.StatusNotFound {
		return "", fmt.Errorf("%w: %s", ErrUnknownCharge, transactionID)
	}
	if status >= 300 || resp.ID == "" {
		return "", fmt.Errorf("payment: refund failed with status %d", status)
	}
	return resp.ID, nil
}

func (p *HTTPProcessor) post(ctx context.Context, path string, body interface{}, idempotencyKey string, out interface{}) (int, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Warn("payment processor request failed", zap.String("path", path), zap.Error(err))
		return 0, fmt.Errorf("payment: %s: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, err
	}
	if resp.StatusCode >= 300 {
		p.logger.Warn("payment processor returned non-success",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
	}
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil && resp.StatusCode < 300 {
			return resp.StatusCode, fmt.Errorf("payment: decode %s response: %w", path, err)
		}
	}
	return resp.StatusCode, nil
}
