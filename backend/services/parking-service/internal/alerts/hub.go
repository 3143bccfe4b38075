// Package alerts pushes session alerts to drivers over websockets.
package alerts

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Alert is the message sent to a driver's open connections.
type Alert struct {
	Type             string    `json:"type"`
	SessionID        int64     `json:"session_id"`
	Message          string    `json:"message"`
	ScheduledEndTime time.Time `json:"scheduled_end_time"`
	RemainingSeconds int64     `json:"remaining_seconds"`
	SentAt           time.Time `json:"sent_at"`
}

// Client is one connected websocket.
type Client interface {
	Send(msg []byte) bool
	Ping() error
}

// Hub tracks connections per user.
type Hub struct {
	mu           sync.RWMutex
	clients      map[int64]map[Client]struct{}
	pingInterval time.Duration
	logger       *zap.Logger
}

// NewHub builds an alert hub.
func NewHub(pingInterval time.Duration, logger *zap.Logger) *Hub {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Hub{
		clients:      make(map[int64]map[Client]struct{}),
		pingInterval: pingInterval,
		logger:       logger,
	}
}

// Register adds a client for userID.
func (h *Hub) Register(userID int64, c Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[userID]
	if !ok {
		set = make(map[Client]struct{})
		h.clients[userID] = set
	}
	set[c] = struct{}{}
}

// Unregister removes a client.
func (h *Hub) Unregister(userID int64, c Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.clients[userID]
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, userID)
	}
}

// Connected returns the number of open connections for userID.
func (h *Hub) Connected(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Notify sends alert to every connection of userID and returns how many accepted it.
func (h *Hub) Notify(userID int64, alert Alert) int {
	if alert.SentAt.IsZero() {
		alert.SentAt = time.Now().UTC()
	}
	payload, err := json.Marshal(alert)
	if err != nil {
		h.logger.Warn("failed to encode alert", zap.Error(err))
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for c := range h.clients[userID] {
		if c.Send(payload) {
			delivered++
		}
	}
	return delivered
}

// Start pings every connection until ctx is done.
func (h *Hub) Start(ctx context.Context) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.mu.RLock()
			for _, set := range h.clients {
				for c := range set {
					_ = c.Ping()
				}
			}
			h.mu.RUnlock()
		}
	}
}
