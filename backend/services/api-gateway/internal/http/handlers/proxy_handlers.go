package handlers

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"parkpay/backend/services/api-gateway/internal/clients"
	"parkpay/backend/services/api-gateway/internal/http/middleware"
)

// Forwarder replays a request against a backend service.
type Forwarder interface {
	Name() string
	Forward(ctx context.Context, r *http.Request, path string) (*clients.Response, error)
}

// ProxyHandlers forward /api traffic to auth-service and parking-service.
type ProxyHandlers struct {
	auth    Forwarder
	parking Forwarder
	logger  *zap.Logger
}

// NewProxyHandlers returns handler struct.
func NewProxyHandlers(auth, parking Forwarder, logger *zap.Logger) *ProxyHandlers {
	return &ProxyHandlers{auth: auth, parking: parking, logger: logger}
}

// Auth handles /api/auth/*.
func (h *ProxyHandlers) Auth(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, h.auth)
}

// Parking handles the remaining /api/* routes.
func (h *ProxyHandlers) Parking(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, h.parking)
}

func (h *ProxyHandlers) forward(w http.ResponseWriter, r *http.Request, upstream Forwarder) {
	path := strings.TrimPrefix(r.URL.Path, "/api")
	resp, err := upstream.Forward(r.Context(), r, path)
	if err != nil {
		fields := []zap.Field{
			zap.String("upstream", upstream.Name()),
			zap.String("path", path),
			zap.Error(err),
		}
		if userID, ok := middleware.UserIDFromContext(r.Context()); ok {
			fields = append(fields, zap.Int64("user_id", userID))
		}
		h.logger.Error("proxy failed", fields...)
		writeError(w, http.StatusBadGateway, upstream.Name()+" unavailable")
		return
	}
	writeUpstream(w, resp)
}
