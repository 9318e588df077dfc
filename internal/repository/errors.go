package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ErrDuplicate is returned when an insert or update violates a unique constraint.
var ErrDuplicate = errors.New("duplicate record")

const (
	uniqueViolation           = pq.ErrorCode("23505")
	invalidTextRepresentation = pq.ErrorCode("22P02")
)

// wrapWrite maps unique violations onto ErrDuplicate, malformed keys onto
// sql.ErrNoRows and wraps everything else.
func wrapWrite(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case uniqueViolation:
			return fmt.Errorf("%s: %w", op, ErrDuplicate)
		case invalidTextRepresentation:
			return sql.ErrNoRows
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// wrapRead passes sql.ErrNoRows through, treats a key postgres cannot parse
// as a missing row and wraps everything else.
func wrapRead(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sql.ErrNoRows
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == invalidTextRepresentation {
		return sql.ErrNoRows
	}
	return fmt.Errorf("%s: %w", op, err)
}

// validIDs reports whether every id is a UUID. Empty ids are rejected.
func validIDs(ids ...string) bool {
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return false
		}
	}
	return true
}
