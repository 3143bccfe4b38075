package httpserver

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"parkpay/backend/services/api-gateway/internal/clients"
	"parkpay/backend/services/api-gateway/internal/http/handlers"
	"parkpay/backend/services/api-gateway/internal/http/middleware"
)

const secret = "gateway-secret"

type seen struct {
	path  string
	query string
	auth  string
	body  string
}

func upstream(t *testing.T, status int, got *seen) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		*got = seen{path: r.URL.Path, query: r.URL.RawQuery, auth: r.Header.Get("Authorization"), body: string(body)}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func claims() jwt.MapClaims {
	return jwt.MapClaims{
		"user_id": 5,
		"role":    "driver",
		"iss":     middleware.Issuer,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
}

func signWith(t *testing.T, method jwt.SigningMethod, c jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, c).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func signed(t *testing.T) string {
	return signWith(t, jwt.SigningMethodHS256, claims())
}

func newGateway(authURL, parkingURL string) http.Handler {
	client := clients.NewDefaultHTTPClient(time.Second)
	return NewRouter(RouterDeps{
		Proxy: handlers.NewProxyHandlers(
			clients.NewUpstream("auth service", authURL, client),
			clients.NewUpstream("parking service", parkingURL, client),
			zap.NewNop(),
		),
		HealthHandler: handlers.NewHealthHandler(),
	}, middleware.AuthMiddleware(secret))
}

func TestGatewayForwardsAuth(t *testing.T) {
	var authSeen, parkingSeen seen
	gw := newGateway(upstream(t, http.StatusCreated, &authSeen).URL, upstream(t, http.StatusOK, &parkingSeen).URL)

	rec := httptest.NewRecorder()
	gw.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/signup", strings.NewReader(`{"email":"a@b.com"}`)))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "/auth/signup", authSeen.path)
	assert.Equal(t, `{"email":"a@b.com"}`, authSeen.body)
	assert.Empty(t, parkingSeen.path)
}

func TestGatewayForwardsParking(t *testing.T) {
	var authSeen, parkingSeen seen
	gw := newGateway(upstream(t, http.StatusOK, &authSeen).URL, upstream(t, http.StatusOK, &parkingSeen).URL)
	token := signed(t)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/me?limit=5", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	gw.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/sessions/me", parkingSeen.path)
	assert.Equal(t, "limit=5", parkingSeen.query)
	assert.Equal(t, "Bearer "+token, parkingSeen.auth)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func TestGatewayRejectsAnonymousParking(t *testing.T) {
	var authSeen, parkingSeen seen
	gw := newGateway(upstream(t, http.StatusOK, &authSeen).URL, upstream(t, http.StatusOK, &parkingSeen).URL)

	rec := httptest.NewRecorder()
	gw.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sessions", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"missing authorization header"}`, rec.Body.String())
	assert.Empty(t, parkingSeen.path)

	rec = httptest.NewRecorder()
	gw.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/zones", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/zones", parkingSeen.path)
}

func TestGatewayRejectsUntrustedTokens(t *testing.T) {
	noExp := claims()
	delete(noExp, "exp")
	noIss := claims()
	delete(noIss, "iss")
	foreign := claims()
	foreign["iss"] = "elsewhere"

	cases := map[string]string{
		"no expiry":      signWith(t, jwt.SigningMethodHS256, noExp),
		"no issuer":      signWith(t, jwt.SigningMethodHS256, noIss),
		"foreign issuer": signWith(t, jwt.SigningMethodHS256, foreign),
		"hs512":          signWith(t, jwt.SigningMethodHS512, claims()),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			var authSeen, parkingSeen seen
			gw := newGateway(upstream(t, http.StatusOK, &authSeen).URL, upstream(t, http.StatusOK, &parkingSeen).URL)

			req := httptest.NewRequest(http.MethodGet, "/api/sessions/me", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			gw.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.JSONEq(t, `{"error":"invalid token"}`, rec.Body.String())
			assert.Empty(t, parkingSeen.path)
		})
	}
}

func TestGatewayUpstreamDown(t *testing.T) {
	var authSeen seen
	gw := newGateway(upstream(t, http.StatusOK, &authSeen).URL, "http://127.0.0.1:1")

	rec := httptest.NewRecorder()
	gw.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/zones", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"error":"parking service unavailable"}`, rec.Body.String())
}
