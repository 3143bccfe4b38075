package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"parkpay/backend/services/auth-service/internal/models"
	"parkpay/backend/services/auth-service/internal/password"
	"parkpay/backend/services/auth-service/internal/repository"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 72
)

var (
	// ErrEmailInUse is returned when attempting to register duplicate email.
	ErrEmailInUse = errors.New("auth: email already registered")
	// ErrInvalidCredentials represents login failure.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrInvalidInput wraps signup validation failures.
	ErrInvalidInput = errors.New("auth: invalid input")
)

// UserRepository defines storage contract used by the service.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, limit int) ([]models.User, error)
	SetRole(ctx context.Context, id int64, role string) error
}

// AuthService contains registration/login logic.
type AuthService struct {
	repo      UserRepository
	hasher    password.Hasher
	tokenizer *TokenService
	logger    *zap.Logger
}

// NewAuthService builds AuthService.
func NewAuthService(repo UserRepository, hasher password.Hasher, tokenizer *TokenService, logger *zap.Logger) *AuthService {
	return &AuthService{
		repo:      repo,
		hasher:    hasher,
		tokenizer: tokenizer,
		logger:    logger,
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", fmt.Errorf("%w: email required", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", fmt.Errorf("%w: malformed email", ErrInvalidInput)
	}
	return email, nil
}

// Signup registers a new driver account. Admins are only created through EnsureAdmin.
func (s *AuthService) Signup(ctx context.Context, email, password string) (*models.User, error) {
	return s.create(ctx, email, password, models.RoleDriver)
}

func (s *AuthService) create(ctx context.Context, email, password, role string) (*models.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return nil, fmt.Errorf("%w: password must be %d to %d characters", ErrInvalidInput, minPasswordLength, maxPasswordLength)
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailInUse
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, ErrEmailInUse
		}
		return nil, err
	}

	s.logger.Info("user signed up", zap.Int64("user_id", user.ID), zap.String("email", user.Email), zap.String("role", role))
	return user, nil
}

// EnsureAdmin makes sure an admin account exists for email, promoting an existing user.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) error {
	existing, err := s.repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role == models.RoleAdmin {
			return nil
		}
		if err := s.repo.SetRole(ctx, existing.ID, models.RoleAdmin); err != nil {
			return err
		}
		s.logger.Info("user promoted to admin", zap.Int64("user_id", existing.ID))
		return nil
	case errors.Is(err, repository.ErrUserNotFound):
		_, err := s.create(ctx, email, password, models.RoleAdmin)
		return err
	default:
		return err
	}
}

// Login authenticates a user and produces a JWT.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", nil, ErrInvalidCredentials
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		s.logger.Info("login rejected", zap.Int64("user_id", user.ID))
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.tokenizer.GenerateToken(user.ID, user.Role)
	if err != nil {
		return "", nil, err
	}

	return token, user, nil
}

// Users lists accounts for administrators.
func (s *AuthService) Users(ctx context.Context, limit int) ([]models.User, error) {
	return s.repo.List(ctx, limit)
}
