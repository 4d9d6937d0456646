package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMissing(t *testing.T) {
	badUUID := &pgconn.PgError{Code: "22P02", Message: `invalid input syntax for type uuid: "abc"`}

	assert.True(t, missing(sql.ErrNoRows))
	assert.True(t, missing(badUUID))
	assert.True(t, missing(fmt.Errorf("query: %w", badUUID)), "wrapped")
	assert.False(t, missing(nil))
	assert.False(t, missing(errors.New("connection reset")))
	assert.False(t, missing(&pgconn.PgError{Code: "23505"}))
}

func TestIsPgCode_UniqueViolation(t *testing.T) {
	err := fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23505", ConstraintName: "notifications_one_pending_idx"})
	assert.True(t, isPgCode(err, pgUniqueViolation))
	assert.False(t, isPgCode(err, pgInvalidText))
	assert.False(t, isPgCode(errors.New("23505"), pgUniqueViolation))
}
