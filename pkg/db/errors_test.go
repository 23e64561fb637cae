package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "ux_lead_unlocks_vendor_request", Message: "duplicate key value violates unique constraint"}

	assert.True(t, IsUniqueViolation(pgErr, ""))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", pgErr), "ux_lead_unlocks_vendor_request"))
	assert.False(t, IsUniqueViolation(pgErr, "ux_other"))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}, ""))

	assert.True(t, IsUniqueViolation(gorm.ErrDuplicatedKey, ""))
	assert.True(t, IsUniqueViolation(errors.New("UNIQUE constraint failed: lead_unlocks.vendor_id, lead_unlocks.service_request_id"), "lead_unlocks.vendor_id"))
	assert.False(t, IsUniqueViolation(errors.New("connection reset"), ""))
	assert.False(t, IsUniqueViolation(nil, ""))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(fmt.Errorf("load: %w", gorm.ErrRecordNotFound)))
	assert.False(t, IsNotFound(errors.New("other")))
}
