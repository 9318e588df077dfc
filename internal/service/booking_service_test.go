package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lab-booking-api/internal/models"
	appErrors "github.com/noah-isme/lab-booking-api/pkg/errors"
)

type bookingFixture struct {
	store   *labStoreStub
	svc     *BookingService
	windows map[string][]models.TestWindow
}

// newBookingFixture seeds a test without a doctor (cbc) and one that needs a doctor (ecg),
// both open on Mondays with two windows.
func newBookingFixture() *bookingFixture {
	store := newLabStoreStub()
	store.addTest("cbc", "complete blood count", "30", false)
	store.addTest("ecg", "ecg", "15", true)
	store.addDoctor("doc-1", "dr. rao")
	store.addDoctor("doc-2", "dr. mehta")
	store.assign("ecg", "doc-1")

	f := &bookingFixture{store: store, windows: make(map[string][]models.TestWindow)}
	for _, id := range []string{"cbc", "ecg"} {
		schedule := store.addSchedule(id, 0, "08:00", "12:00", false)
		f.windows[id] = []models.TestWindow{
			store.addWindow(schedule, 0, "08:00", "10:00", 2),
			store.addWindow(schedule, 1, "10:00", "12:00", 2),
		}
		store.addSchedule(id, 6, "", "", true)
	}
	f.svc = newBookingServiceForTest(store)
	return f
}

func (f *bookingFixture) request(testID string, window int, date string) models.CreateBookingRequest {
	return models.CreateBookingRequest{
		TestID:        testID,
		WindowID:      f.windows[testID][window].ID,
		BookingDate:   date,
		PatientName:   "Ravi Shankar",
		PatientMobile: "9876543210",
	}
}

func strPointer(v string) *string { return &v }

func TestBookingCreateDerivesFieldsFromWindow(t *testing.T) {
	f := newBookingFixture()
	req := f.request("cbc", 1, monday)
	req.PatientName = "  Ravi SHANKAR "
	req.DoctorID = strPointer("doc-2")

	result, err := f.svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.NotEmpty(t, result.BookingID)
	assert.Equal(t, "complete blood count", result.TestName)
	assert.Nil(t, result.DoctorName)
	assert.Equal(t, "10:00", result.BookingTime.String())
	assert.Equal(t, "12:00", result.WindowEnd.String())
	assert.Equal(t, monday, result.BookingDate.String())

	stored, err := f.svc.Get(context.Background(), result.BookingID)
	require.NoError(t, err)
	assert.Equal(t, "ravi shankar", stored.PatientName)
	assert.Nil(t, stored.DoctorID)
}

func TestBookingCreateResolvesDoctor(t *testing.T) {
	f := newBookingFixture()

	assigned, err := f.svc.Create(context.Background(), f.request("ecg", 0, monday))
	require.NoError(t, err)
	require.NotNil(t, assigned.DoctorName)
	assert.Equal(t, "dr. rao", *assigned.DoctorName)

	req := f.request("ecg", 0, monday)
	req.DoctorID = strPointer("doc-2")
	requested, err := f.svc.Create(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, requested.DoctorName)
	assert.Equal(t, "dr. mehta", *requested.DoctorName)

	req.DoctorID = strPointer("doc-404")
	_, err = f.svc.Create(context.Background(), req)
	assert.ErrorIs(t, err, appErrors.ErrDoctorNotFound)
}

func TestBookingCreateRequiresResolvableDoctor(t *testing.T) {
	store := newLabStoreStub()
	store.addTest("ecg", "ecg", "15", true)
	schedule := store.addSchedule("ecg", 0, "08:00", "10:00", false)
	window := store.addWindow(schedule, 0, "08:00", "10:00", 4)
	svc := newBookingServiceForTest(store)

	_, err := svc.Create(context.Background(), models.CreateBookingRequest{
		TestID: "ecg", WindowID: window.ID, BookingDate: monday, PatientName: "a", PatientMobile: "9876543210",
	})
	assert.ErrorIs(t, err, appErrors.ErrDoctorNotFound)
}

func TestBookingCreateRefusals(t *testing.T) {
	f := newBookingFixture()
	f.store.addHoliday(models.HolidayScopeLab, "", "2025-01-13", true, "", "")
	f.store.addHoliday(models.HolidayScopeTest, "cbc", "2025-01-20", true, "", "")
	f.store.addHoliday(models.HolidayScopeDoctor, "doc-1", "2025-01-27", true, "", "")

	cases := []struct {
		name   string
		mutate func(*models.CreateBookingRequest)
		want   *appErrors.Error
	}{
		{"unknown test", func(r *models.CreateBookingRequest) { r.TestID = "nope" }, appErrors.ErrTestNotFound},
		{"no schedule", func(r *models.CreateBookingRequest) { r.BookingDate = "2025-01-07" }, appErrors.ErrNotScheduledThisDay},
		{"closed schedule", func(r *models.CreateBookingRequest) { r.BookingDate = "2025-01-12" }, appErrors.ErrClosedThisDay},
		{"foreign window", func(r *models.CreateBookingRequest) { r.WindowID = f.windows["ecg"][0].ID }, appErrors.ErrInvalidWindow},
		{"lab closed", func(r *models.CreateBookingRequest) { r.BookingDate = "2025-01-13" }, appErrors.ErrLabClosed},
		{"test closed", func(r *models.CreateBookingRequest) { r.BookingDate = "2025-01-20" }, appErrors.ErrTestClosed},
		{"bad mobile", func(r *models.CreateBookingRequest) { r.PatientMobile = "12" }, appErrors.ErrValidation},
		{"bad date", func(r *models.CreateBookingRequest) { r.BookingDate = "2025-13-01" }, appErrors.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := f.request("cbc", 0, monday)
			tc.mutate(&req)
			_, err := f.svc.Create(context.Background(), req)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, err := f.svc.Create(context.Background(), f.request("ecg", 0, "2025-01-27"))
	assert.ErrorIs(t, err, appErrors.ErrDoctorUnavailable)
	assert.Empty(t, f.store.bookings)
}

func TestBookingCreateSlotFull(t *testing.T) {
	f := newBookingFixture()
	for i := 0; i < 2; i++ {
		_, err := f.svc.Create(context.Background(), f.request("cbc", 0, monday))
		require.NoError(t, err)
	}
	_, err := f.svc.Create(context.Background(), f.request("cbc", 0, monday))
	assert.ErrorIs(t, err, appErrors.ErrSlotFull)

	// a half-day lab override leaves the later window with no capacity at all
	f.store.addHoliday(models.HolidayScopeLab, "", "2025-01-13", false, "08:00", "10:00")
	_, err = f.svc.Create(context.Background(), f.request("cbc", 1, "2025-01-13"))
	assert.ErrorIs(t, err, appErrors.ErrSlotFull)
	_, err = f.svc.Create(context.Background(), f.request("cbc", 0, "2025-01-13"))
	assert.NoError(t, err)
}

func TestBookingCreateNeverOverbooksUnderContention(t *testing.T) {
	store := newLabStoreStub()
	store.addTest("cbc", "complete blood count", "30", false)
	schedule := store.addSchedule("cbc", 0, "08:00", "10:00", false)
	window := store.addWindow(schedule, 0, "08:00", "10:00", 5)
	svc := newBookingServiceForTest(store)

	const attempts = 24
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		full      int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(context.Background(), models.CreateBookingRequest{
				TestID: "cbc", WindowID: window.ID, BookingDate: monday, PatientName: "p", PatientMobile: "9876543210",
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, appErrors.ErrSlotFull):
				full++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	assert.Equal(t, attempts-5, full)
	assert.Equal(t, 5, store.bookingCount(window.ID, monday))
}

func TestBookingUpdateExcludesItselfOnlyInSameSlot(t *testing.T) {
	f := newBookingFixture()
	first, err := f.svc.Create(context.Background(), f.request("cbc", 0, monday))
	require.NoError(t, err)
	_, err = f.svc.Create(context.Background(), f.request("cbc", 0, monday))
	require.NoError(t, err)

	// window 0 is full but the booking keeps its own seat
	req := f.request("cbc", 0, monday)
	req.PatientName = "Ravi S"
	updated, err := f.svc.Update(context.Background(), first.BookingID, req)
	require.NoError(t, err)
	assert.Equal(t, first.BookingID, updated.BookingID)

	moved, err := f.svc.Update(context.Background(), first.BookingID, f.request("cbc", 1, monday))
	require.NoError(t, err)
	assert.Equal(t, "10:00", moved.BookingTime.String())
	assert.Equal(t, 1, f.store.bookingCount(f.windows["cbc"][0].ID, monday))
	assert.Equal(t, 1, f.store.bookingCount(f.windows["cbc"][1].ID, monday))

	_, err = f.svc.Create(context.Background(), f.request("cbc", 1, monday))
	require.NoError(t, err)
	third, err := f.svc.Create(context.Background(), f.request("cbc", 0, monday))
	require.NoError(t, err)
	_, err = f.svc.Update(context.Background(), third.BookingID, f.request("cbc", 1, monday))
	assert.ErrorIs(t, err, appErrors.ErrSlotFull)

	_, err = f.svc.Update(context.Background(), "missing", f.request("cbc", 1, monday))
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestBookingDeleteAndList(t *testing.T) {
	f := newBookingFixture()
	created, err := f.svc.Create(context.Background(), f.request("cbc", 1, monday))
	require.NoError(t, err)
	_, err = f.svc.Create(context.Background(), f.request("cbc", 0, monday))
	require.NoError(t, err)

	items, page, err := f.svc.List(context.Background(), models.BookingFilter{TestID: "cbc"})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "08:00", items[0].BookingTime.String())
	assert.Equal(t, 2, page.TotalCount)
	assert.Equal(t, 1, page.Page)

	require.NoError(t, f.svc.Delete(context.Background(), created.BookingID))
	assert.ErrorIs(t, f.svc.Delete(context.Background(), created.BookingID), appErrors.ErrNotFound)
	_, err = f.svc.Get(context.Background(), created.BookingID)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestBookingCreateSurfacesStorageFailure(t *testing.T) {
	f := newBookingFixture()
	f.store.countErr = errors.New("connection reset")

	_, err := f.svc.Create(context.Background(), f.request("cbc", 0, monday))
	assert.ErrorIs(t, err, appErrors.ErrInternal)
	assert.Empty(t, f.store.bookings)
}
