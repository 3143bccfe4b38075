package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"parkpay/backend/services/auth-service/internal/models"
	"parkpay/backend/services/auth-service/internal/service"
)

// NewUsersHandler handles GET /admin/users.
func NewUsersHandler(authService *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		users, err := authService.Users(r.Context(), limit)
		if err != nil {
			logger.Error("list users failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to list users")
			return
		}
		if users == nil {
			users = []models.User{}
		}
		writeJSON(w, http.StatusOK, users)
	}
}
