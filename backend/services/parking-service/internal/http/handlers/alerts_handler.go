package handlers

import (
	"net/http"
)

// AlertStream upgrades a request into a driver's alert connection.
type AlertStream interface {
	Serve(w http.ResponseWriter, r *http.Request, userID int64)
}

// NewAlertsHandler returns GET /ws/alerts handler.
func NewAlertsHandler(stream AlertStream) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}
		stream.Serve(w, r, p.UserID)
	}
}
