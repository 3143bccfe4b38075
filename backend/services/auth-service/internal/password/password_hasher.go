package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt ignores input past this many bytes, so longer passwords are refused.
const maxPasswordBytes = 72

var (
	// ErrEmptyPassword is returned when hashing an empty string.
	ErrEmptyPassword = errors.New("password: empty password")
	// ErrTooLong is returned for passwords bcrypt would truncate.
	ErrTooLong = errors.New("password: longer than 72 bytes")
	// ErrMismatch means the password does not match the stored hash.
	ErrMismatch = errors.New("password: mismatch")
)

// Hasher defines password hashing contract.
type Hasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// BcryptHasher implements Hasher using bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a bcrypt-backed hasher; out-of-range costs fall back to the default.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash converts plain password into hash.
func (h *BcryptHasher) Hash(password string) (string, error) {
	switch {
	case password == "":
		return "", ErrEmptyPassword
	case len(password) > maxPasswordBytes:
		return "", ErrTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Compare checks if provided password matches stored hash.
func (h *BcryptHasher) Compare(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatch
	}
	return err
}
