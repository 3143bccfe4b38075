package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"parkpay/backend/services/parking-service/internal/models"
)

const secret = "test-secret"

func sign(t *testing.T, key string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return token
}

func signWith(t *testing.T, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validClaims(role string) jwt.MapClaims {
	return jwt.MapClaims{
		"user_id": 42,
		"role":    role,
		"iss":     Issuer,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
}

func without(claims jwt.MapClaims, key string) jwt.MapClaims {
	delete(claims, key)
	return claims
}

func echoPrincipal(t *testing.T, got *models.Principal) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		assert.True(t, ok)
		*got = p
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAuthMiddleware(t *testing.T) {
	var got models.Principal
	handler := AuthMiddleware(secret)(echoPrincipal(t, &got))

	cases := []struct {
		name   string
		header string
		query  string
		status int
	}{
		{"bearer header", "Bearer " + sign(t, secret, validClaims(models.RoleAdmin)), "", http.StatusNoContent},
		{"query fallback", "", sign(t, secret, validClaims(models.RoleAdmin)), http.StatusNoContent},
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", "", http.StatusUnauthorized},
		{"wrong key", "Bearer " + sign(t, "other", validClaims(models.RoleAdmin)), "", http.StatusUnauthorized},
		{"expired", "Bearer " + sign(t, secret, jwt.MapClaims{"user_id": 42, "exp": time.Now().Add(-time.Minute).Unix()}), "", http.StatusUnauthorized},
		{"no user", "Bearer " + sign(t, secret, jwt.MapClaims{"role": "admin"}), "", http.StatusUnauthorized},
		{"no expiry", "Bearer " + sign(t, secret, without(validClaims(models.RoleAdmin), "exp")), "", http.StatusUnauthorized},
		{"no issuer", "Bearer " + sign(t, secret, without(validClaims(models.RoleAdmin), "iss")), "", http.StatusUnauthorized},
		{"foreign issuer", "Bearer " + sign(t, secret, jwt.MapClaims{"user_id": 42, "iss": "elsewhere", "exp": time.Now().Add(time.Hour).Unix()}), "", http.StatusUnauthorized},
		{"hs384", "Bearer " + signWith(t, jwt.SigningMethodHS384, validClaims(models.RoleAdmin)), "", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got = models.Principal{}
			target := "/sessions/me"
			if tc.query != "" {
				target += "?access_token=" + tc.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			if tc.status == http.StatusNoContent {
				assert.Equal(t, models.Principal{UserID: 42, Role: models.RoleAdmin}, got)
			}
		})
	}
}

func TestAuthMiddlewareDefaultsToDriver(t *testing.T) {
	var got models.Principal
	handler := AuthMiddleware(secret)(echoPrincipal(t, &got))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+sign(t, secret, jwt.MapClaims{"user_id": "7", "iss": Issuer, "exp": time.Now().Add(time.Hour).Unix()}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, int64(7), got.UserID)
	assert.Equal(t, models.RoleDriver, got.Role)
}

func TestRequireAdmin(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	handler := RequireAdmin(ok)

	serve := func(p *models.Principal) int {
		req := httptest.NewRequest(http.MethodGet, "/admin/transactions", nil)
		if p != nil {
			req = req.WithContext(WithPrincipal(req.Context(), *p))
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, serve(nil))
	assert.Equal(t, http.StatusForbidden, serve(&models.Principal{UserID: 1, Role: models.RoleDriver}))
	assert.Equal(t, http.StatusOK, serve(&models.Principal{UserID: 1, Role: models.RoleAdmin}))
}

func TestRecoveryAndLogging(t *testing.T) {
	panicky := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })
	handler := Chain(panicky, LoggingMiddleware(zap.NewNop()), RecoveryMiddleware(zap.NewNop()))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/zones", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
}
