package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapReadTreatsUnparsableKeysAsMissing(t *testing.T) {
	malformed := &pq.Error{Code: invalidTextRepresentation, Message: `invalid input syntax for type uuid: "abc"`}

	assert.Same(t, sql.ErrNoRows, wrapRead("find test", malformed))
	assert.Same(t, sql.ErrNoRows, wrapRead("find test", sql.ErrNoRows))

	boom := errors.New("connection reset")
	err := wrapRead("find test", boom)
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, sql.ErrNoRows)
}

func TestWrapWriteMapsConstraintCodes(t *testing.T) {
	assert.ErrorIs(t, wrapWrite("create test", &pq.Error{Code: uniqueViolation}), ErrDuplicate)
	assert.ErrorIs(t, wrapWrite("update test", &pq.Error{Code: invalidTextRepresentation}), sql.ErrNoRows)
}

func TestLookupsRejectMalformedIDsWithoutQuerying(t *testing.T) {
	db, mock := newRepoMock(t)
	ctx := context.Background()
	const bad = "not-a-uuid"

	_, err := NewLabTestRepository(db).FindByID(ctx, bad)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.ErrorIs(t, NewLabTestRepository(db).Delete(ctx, bad), sql.ErrNoRows)

	_, err = NewTestWindowRepository(db).FindForSchedule(ctx, bad, fixtureTestID, fixtureScheduleID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	windows, err := NewTestWindowRepository(db).ListByTest(ctx, bad)
	require.NoError(t, err)
	assert.Empty(t, windows)

	_, err = NewDoctorRepository(db).FindByID(ctx, bad)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	_, err = NewBookingRepository(db).FindByID(ctx, bad)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.ErrorIs(t, NewBookingRepository(db).Delete(ctx, "'; DROP TABLE bookings; --"), sql.ErrNoRows)

	_, err = NewTestScheduleRepository(db).FindByID(ctx, nil, bad)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	_, err = NewTestScheduleRepository(db).FindByTestAndDay(ctx, nil, bad, 0)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	_, err = NewExportJobRepository(db).GetByID(ctx, bad)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	_, err = NewAssignmentRepository(db).CurrentForTest(ctx, bad)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	exists, err := NewAssignmentRepository(db).Exists(ctx, bad, fixtureMissingID)
	require.NoError(t, err)
	assert.False(t, exists)

	assert.NoError(t, mock.ExpectationsWereMet())
}
