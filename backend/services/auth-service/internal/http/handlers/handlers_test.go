package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"parkpay/backend/services/auth-service/internal/models"
	"parkpay/backend/services/auth-service/internal/password"
	"parkpay/backend/services/auth-service/internal/repository"
	"parkpay/backend/services/auth-service/internal/service"
)

type users struct {
	byEmail map[string]models.User
}

func (u *users) Create(_ context.Context, user *models.User) error {
	if _, ok := u.byEmail[user.Email]; ok {
		return repository.ErrEmailTaken
	}
	user.ID = int64(len(u.byEmail) + 1)
	u.byEmail[user.Email] = *user
	return nil
}

func (u *users) GetByEmail(_ context.Context, email string) (*models.User, error) {
	user, ok := u.byEmail[email]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &user, nil
}

func (u *users) List(context.Context, int) ([]models.User, error) {
	out := []models.User{}
	for _, user := range u.byEmail {
		out = append(out, user)
	}
	return out, nil
}

func (u *users) SetRole(context.Context, int64, string) error { return nil }

func newAuthService() *service.AuthService {
	return service.NewAuthService(
		&users{byEmail: map[string]models.User{}},
		password.NewBcryptHasher(bcrypt.MinCost),
		service.NewTokenService("secret", time.Hour),
		zap.NewNop(),
	)
}

func post(h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
	return rec
}

func TestSignupThenLogin(t *testing.T) {
	svc := newAuthService()
	signup := NewSignupHandler(svc, zap.NewNop())
	login := NewLoginHandler(svc, time.Hour, zap.NewNop())

	rec := post(signup, `{"email":"driver@example.com","password":"hunter2hunter2"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"driver"`)

	assert.Equal(t, http.StatusConflict, post(signup, `{"email":"driver@example.com","password":"hunter2hunter2"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(signup, `{"email":"driver@example.com","password":"short"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(signup, `{"email":`).Code)

	rec = post(login, `{"email":"driver@example.com","password":"hunter2hunter2"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body["token"])
	assert.Equal(t, "Bearer", body["token_type"])
	assert.Equal(t, float64(3600), body["expires_in"])

	assert.Equal(t, http.StatusUnauthorized, post(login, `{"email":"driver@example.com","password":"nope-nope"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(login, `{"email":""}`).Code)
}

func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler(func(context.Context) error { return nil })(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	NewHealthHandler(func(context.Context) error { return errors.New("refused") })(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
