package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
	assert.True(t, IsUniqueViolation(dup))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert user: %w", dup)))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestNewPostgresDBRejectsEmptyDSN(t *testing.T) {
	_, err := NewPostgresDB("  ", Options{})
	assert.Error(t, err)
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{MaxOpenConns: 3}.withDefaults()
	assert.Equal(t, 3, o.MaxOpenConns)
	assert.Equal(t, 5, o.MaxIdleConns)
	assert.NotZero(t, o.PingTimeout)
}
