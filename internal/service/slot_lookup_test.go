package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lab-booking-api/internal/models"
	"github.com/noah-isme/lab-booking-api/internal/repository"
	appErrors "github.com/noah-isme/lab-booking-api/pkg/errors"
)

// newMalformedIDFixture serves tests, windows and doctors from postgres repositories
// backed by sqlmock; everything else comes from the in-memory store.
func newMalformedIDFixture(t *testing.T) (*bookingFixture, *sqlx.DB, sqlmock.Sqlmock, BookingDeps) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := sqlx.NewDb(raw, "postgres")
	t.Cleanup(func() { _ = db.Close() })

	f := newBookingFixture()
	store := f.store
	deps := BookingDeps{
		Tests:          testRepoStub{store},
		Schedules:      scheduleRepoStub{store},
		Windows:        windowRepoStub{store},
		LabHolidays:    holidayRepoStub{store, models.HolidayScopeLab},
		TestHolidays:   holidayRepoStub{store, models.HolidayScopeTest},
		DoctorHolidays: holidayRepoStub{store, models.HolidayScopeDoctor},
		Assignments:    assignmentRepoStub{store},
		Doctors:        repository.NewDoctorRepository(db),
		Bookings:       bookingRepoStub{store},
		Tx:             &txRunnerStub{},
	}
	return f, db, mock, deps
}

func TestBookingCreateTreatsMalformedIDsAsMissing(t *testing.T) {
	f, db, mock, deps := newMalformedIDFixture(t)
	ctx := context.Background()

	t.Run("test id", func(t *testing.T) {
		d := deps
		d.Tests = repository.NewLabTestRepository(db)
		svc := NewBookingService(d, time.Second, nil, nil, nil)
		req := f.request("cbc", 0, monday)
		req.TestID = "cbc' OR '1'='1"
		_, err := svc.Create(ctx, req)
		assertAppCode(t, err, appErrors.ErrTestNotFound.Code)
	})

	t.Run("window id", func(t *testing.T) {
		d := deps
		d.Windows = repository.NewTestWindowRepository(db)
		svc := NewBookingService(d, time.Second, nil, nil, nil)
		req := f.request("cbc", 0, monday)
		req.WindowID = "window-7"
		_, err := svc.Create(ctx, req)
		assertAppCode(t, err, appErrors.ErrInvalidWindow.Code)
	})

	t.Run("doctor id", func(t *testing.T) {
		svc := NewBookingService(deps, time.Second, nil, nil, nil)
		req := f.request("ecg", 0, monday)
		req.DoctorID = strPointer("dr-nobody")
		_, err := svc.Create(ctx, req)
		assertAppCode(t, err, appErrors.ErrDoctorNotFound.Code)
	})

	assert.Empty(t, f.store.bookings)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func assertAppCode(t *testing.T, err error, code string) {
	t.Helper()
	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr, "expected an app error, got %v", err)
	assert.Equal(t, code, appErr.Code)
}
