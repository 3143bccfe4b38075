package httpserver

import (
	"net/http"

	"parkpay/backend/services/api-gateway/internal/http/handlers"
	"parkpay/backend/services/api-gateway/internal/http/middleware"
)

// RouterDeps collects handler dependencies.
type RouterDeps struct {
	Proxy         *handlers.ProxyHandlers
	HealthHandler http.HandlerFunc
}

// NewRouter wires HTTP routes with middleware. Token checks happen here so anonymous
// traffic never reaches parking-service; role checks stay with the upstream.
func NewRouter(deps RouterDeps, authMiddleware func(http.Handler) http.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/health", method(http.MethodGet, deps.HealthHandler))

	mux.Handle("/api/auth/signup", method(http.MethodPost, http.HandlerFunc(deps.Proxy.Auth)))
	mux.Handle("/api/auth/login", method(http.MethodPost, http.HandlerFunc(deps.Proxy.Auth)))
	mux.Handle("/api/admin/users", method(http.MethodGet, http.HandlerFunc(deps.Proxy.Auth)))

	mux.Handle("/api/zones", method(http.MethodGet, http.HandlerFunc(deps.Proxy.Parking)))
	mux.Handle("/api/", middleware.Chain(http.HandlerFunc(deps.Proxy.Parking), authMiddleware))

	return mux
}

func method(expected string, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != expected {
			w.Header().Set("Allow", expected)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
