package httpserver

import (
	"net/http"
	"strings"

	"parkpay/backend/services/auth-service/internal/models"
	"parkpay/backend/services/auth-service/internal/service"
)

// Routes aggregates handlers for HTTP server.
type Routes struct {
	Signup http.HandlerFunc
	Login  http.HandlerFunc
	Users  http.HandlerFunc
	Health http.HandlerFunc
}

// TokenValidator decodes access tokens.
type TokenValidator interface {
	ValidateToken(token string) (*service.Claims, error)
}

// NewRouter wires all HTTP routes.
func NewRouter(routes Routes, tokens TokenValidator) http.Handler {
	mux := http.NewServeMux()
	if routes.Signup != nil {
		mux.Handle("/auth/signup", method(http.MethodPost, routes.Signup))
	}
	if routes.Login != nil {
		mux.Handle("/auth/login", method(http.MethodPost, routes.Login))
	}
	if routes.Users != nil {
		mux.Handle("/admin/users", method(http.MethodGet, adminOnly(tokens, routes.Users)))
	}
	if routes.Health != nil {
		mux.Handle("/health", method(http.MethodGet, routes.Health))
	}
	return mux
}

func method(expected string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != expected {
			w.Header().Set("Allow", expected)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler(w, r)
	}
}

func adminOnly(tokens TokenValidator, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		claims, err := tokens.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		if claims.Role != models.RoleAdmin {
			http.Error(w, "admin role required", http.StatusForbidden)
			return
		}
		handler(w, r)
	}
}
