package service

import (
	"context"
	"database/sql"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lab-booking-api/internal/models"
	"github.com/noah-isme/lab-booking-api/internal/repository"
	"github.com/noah-isme/lab-booking-api/pkg/timeofday"
)

// labStoreStub keeps every table the booking core reads in memory.
type labStoreStub struct {
	mu          sync.Mutex
	seq         int
	tests       map[string]*models.LabTest
	schedules   map[string]*models.TestSchedule
	windows     []models.TestWindow
	holidays    map[models.HolidayScope][]models.Holiday
	assignments []models.TestDoctorAssignment
	doctors     map[string]*models.Doctor
	bookings    map[string]*models.Booking
	countErr    error
}

func newLabStoreStub() *labStoreStub {
	return &labStoreStub{
		tests:     make(map[string]*models.LabTest),
		schedules: make(map[string]*models.TestSchedule),
		holidays:  make(map[models.HolidayScope][]models.Holiday),
		doctors:   make(map[string]*models.Doctor),
		bookings:  make(map[string]*models.Booking),
	}
}

func (s *labStoreStub) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *labStoreStub) addTest(id, name, duration string, requiresDoctor bool) *models.LabTest {
	s.mu.Lock()
	defer s.mu.Unlock()
	test := &models.LabTest{ID: id, Name: name, Category: models.TestCategoryNormal, RequiresBooking: true, RequiresDoctor: requiresDoctor, Duration: &duration}
	s.tests[id] = test
	return test
}

func (s *labStoreStub) addSchedule(testID string, day int, opens, closes string, closed bool) *models.TestSchedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	schedule := &models.TestSchedule{ID: s.nextID("sched"), TestID: testID, DayOfWeek: day, IsClosed: closed}
	if opens != "" {
		o := timeofday.MustParse(opens)
		schedule.OpensAt = &o
	}
	if closes != "" {
		c := timeofday.MustParse(closes)
		schedule.ClosesAt = &c
	}
	s.schedules[schedule.ID] = schedule
	return schedule
}

func (s *labStoreStub) addWindow(schedule *models.TestSchedule, index int, start, end string, maxTests int) models.TestWindow {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := models.TestWindow{
		ID:          s.nextID("win"),
		ScheduleID:  schedule.ID,
		TestID:      schedule.TestID,
		Index:       index,
		WindowStart: timeofday.MustParse(start),
		WindowEnd:   timeofday.MustParse(end),
		MaxTests:    maxTests,
	}
	s.windows = append(s.windows, w)
	return w
}

func (s *labStoreStub) addHoliday(scope models.HolidayScope, scopeID, date string, closed bool, opens, closes string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := models.Holiday{ID: s.nextID("hol"), Scope: scope, ScopeID: scopeID, Date: timeofday.MustParseDate(date), IsClosed: closed}
	if opens != "" {
		o := timeofday.MustParse(opens)
		h.OpensAt = &o
	}
	if closes != "" {
		c := timeofday.MustParse(closes)
		h.ClosesAt = &c
	}
	s.holidays[scope] = append(s.holidays[scope], h)
}

func (s *labStoreStub) addDoctor(id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doctors[id] = &models.Doctor{ID: id, Name: name, Specialization: "pathology"}
}

func (s *labStoreStub) assign(testID, doctorID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignments = append(s.assignments, models.TestDoctorAssignment{ID: s.nextID("asg"), TestID: testID, DoctorID: doctorID})
}

func (s *labStoreStub) windowsOf(scheduleID string) []models.TestWindow {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.TestWindow
	for _, w := range s.windows {
		if w.ScheduleID == scheduleID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

func (s *labStoreStub) bookingCount(windowID, date string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.bookings {
		if b.WindowID == windowID && b.BookingDate.String() == date {
			n++
		}
	}
	return n
}

type testRepoStub struct{ s *labStoreStub }

func (r testRepoStub) FindByID(_ context.Context, id string) (*models.LabTest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	test, ok := r.s.tests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *test
	return &clone, nil
}

type scheduleRepoStub struct{ s *labStoreStub }

func (r scheduleRepoStub) FindByID(_ context.Context, _ sqlx.ExtContext, id string) (*models.TestSchedule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	schedule, ok := r.s.schedules[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *schedule
	return &clone, nil
}

func (r scheduleRepoStub) FindByTestAndDay(_ context.Context, _ sqlx.ExtContext, testID string, day int) (*models.TestSchedule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, schedule := range r.s.schedules {
		if schedule.TestID == testID && schedule.DayOfWeek == day {
			clone := *schedule
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r scheduleRepoStub) List(_ context.Context, testID string) ([]models.TestSchedule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.TestSchedule
	for _, schedule := range r.s.schedules {
		if testID == "" || schedule.TestID == testID {
			out = append(out, *schedule)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DayOfWeek < out[j].DayOfWeek })
	return out, nil
}

func (r scheduleRepoStub) Create(_ context.Context, _ sqlx.ExtContext, schedule *models.TestSchedule) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.schedules {
		if existing.TestID == schedule.TestID && existing.DayOfWeek == schedule.DayOfWeek {
			return fmt.Errorf("create test schedule: %w", repository.ErrDuplicate)
		}
	}
	schedule.ID = r.s.nextID("sched")
	clone := *schedule
	r.s.schedules[schedule.ID] = &clone
	return nil
}

func (r scheduleRepoStub) Update(_ context.Context, _ sqlx.ExtContext, schedule *models.TestSchedule) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.schedules[schedule.ID]; !ok {
		return sql.ErrNoRows
	}
	clone := *schedule
	r.s.schedules[schedule.ID] = &clone
	return nil
}

func (r scheduleRepoStub) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.schedules[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.s.schedules, id)
	kept := r.s.windows[:0]
	for _, w := range r.s.windows {
		if w.ScheduleID != id {
			kept = append(kept, w)
		}
	}
	r.s.windows = kept
	return nil
}

type windowRepoStub struct{ s *labStoreStub }

func (r windowRepoStub) ListBySchedule(_ context.Context, testID, scheduleID string) ([]models.TestWindow, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.TestWindow
	for _, w := range r.s.windows {
		if w.TestID == testID && w.ScheduleID == scheduleID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WindowStart != out[j].WindowStart {
			return out[i].WindowStart < out[j].WindowStart
		}
		return out[i].Index < out[j].Index
	})
	return out, nil
}

func (r windowRepoStub) ListByTest(_ context.Context, testID string) ([]models.TestWindow, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.TestWindow
	for _, w := range r.s.windows {
		if w.TestID == testID {
			out = append(out, w)
		}
	}
	return out, nil
}

func (r windowRepoStub) FindForSchedule(_ context.Context, windowID, testID, scheduleID string) (*models.TestWindow, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, w := range r.s.windows {
		if w.ID == windowID && w.TestID == testID && w.ScheduleID == scheduleID {
			clone := w
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r windowRepoStub) DeleteBySchedule(_ context.Context, _ sqlx.ExtContext, scheduleID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := r.s.windows[:0]
	var removed int64
	for _, w := range r.s.windows {
		if w.ScheduleID == scheduleID {
			removed++
			continue
		}
		kept = append(kept, w)
	}
	r.s.windows = kept
	return removed, nil
}

func (r windowRepoStub) InsertBatch(_ context.Context, _ sqlx.ExtContext, windows []models.TestWindow) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range windows {
		windows[i].ID = r.s.nextID("win")
		r.s.windows = append(r.s.windows, windows[i])
	}
	return nil
}

type holidayRepoStub struct {
	s     *labStoreStub
	scope models.HolidayScope
}

func (r holidayRepoStub) FindForDate(_ context.Context, scopeID string, date timeofday.Date) (*models.Holiday, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, h := range r.s.holidays[r.scope] {
		if h.ScopeID == scopeID && h.Date.Equal(date.Time) {
			clone := h
			return &clone, nil
		}
	}
	return nil, nil
}

type assignmentRepoStub struct{ s *labStoreStub }

func (r assignmentRepoStub) CurrentForTest(_ context.Context, testID string) (*models.TestDoctorAssignment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.assignments {
		if a.TestID == testID {
			clone := a
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

type doctorRepoStub struct{ s *labStoreStub }

func (r doctorRepoStub) FindByID(_ context.Context, id string) (*models.Doctor, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	doctor, ok := r.s.doctors[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *doctor
	return &clone, nil
}

type bookingRepoStub struct{ s *labStoreStub }

func (r bookingRepoStub) LockSlot(context.Context, sqlx.ExtContext, string) error { return nil }

func (r bookingRepoStub) CountForSlot(_ context.Context, _ sqlx.ExtContext, windowID string, date timeofday.Date, excludeID string) (int, error) {
	r.s.mu.Lock()
	if r.s.countErr != nil {
		r.s.mu.Unlock()
		return 0, r.s.countErr
	}
	n := 0
	for _, b := range r.s.bookings {
		if b.WindowID == windowID && b.BookingDate.Equal(date.Time) && b.ID != excludeID {
			n++
		}
	}
	r.s.mu.Unlock()
	// widen the gap between count and insert so unserialized callers would overbook
	runtime.Gosched()
	time.Sleep(100 * time.Microsecond)
	return n, nil
}

func (r bookingRepoStub) CountByWindows(_ context.Context, windowIDs []string, date timeofday.Date) (map[string]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	wanted := make(map[string]bool, len(windowIDs))
	for _, id := range windowIDs {
		wanted[id] = true
	}
	counts := make(map[string]int)
	for _, b := range r.s.bookings {
		if wanted[b.WindowID] && b.BookingDate.Equal(date.Time) {
			counts[b.WindowID]++
		}
	}
	return counts, nil
}

func (r bookingRepoStub) Insert(_ context.Context, _ sqlx.ExtContext, booking *models.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	booking.ID = r.s.nextID("bk")
	booking.CreatedAt = time.Now()
	clone := *booking
	r.s.bookings[booking.ID] = &clone
	return nil
}

func (r bookingRepoStub) Update(_ context.Context, _ sqlx.ExtContext, booking *models.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.bookings[booking.ID]; !ok {
		return sql.ErrNoRows
	}
	clone := *booking
	r.s.bookings[booking.ID] = &clone
	return nil
}

func (r bookingRepoStub) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.bookings[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.s.bookings, id)
	return nil
}

func (r bookingRepoStub) FindByID(_ context.Context, id string) (*models.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	booking, ok := r.s.bookings[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *booking
	return &clone, nil
}

func (r bookingRepoStub) List(_ context.Context, filter models.BookingFilter) ([]models.Booking, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Booking
	for _, b := range r.s.bookings {
		if filter.TestID != "" && b.TestID != filter.TestID {
			continue
		}
		if filter.Search != "" && !strings.Contains(b.PatientName, strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].BookingDate.Equal(out[j].BookingDate.Time) {
			return out[i].BookingDate.Before(out[j].BookingDate.Time)
		}
		return out[i].BookingTime < out[j].BookingTime
	})
	return out, len(out), nil
}

type txRunnerStub struct{ calls int32 }

func (t *txRunnerStub) WithinTx(_ context.Context, fn func(exec sqlx.ExtContext) error) error {
	atomic.AddInt32(&t.calls, 1)
	return fn(nil)
}

func newAvailabilityServiceForTest(store *labStoreStub) *AvailabilityService {
	return NewAvailabilityService(AvailabilityDeps{
		Tests:          testRepoStub{store},
		Schedules:      scheduleRepoStub{store},
		Windows:        windowRepoStub{store},
		LabHolidays:    holidayRepoStub{store, models.HolidayScopeLab},
		TestHolidays:   holidayRepoStub{store, models.HolidayScopeTest},
		DoctorHolidays: holidayRepoStub{store, models.HolidayScopeDoctor},
		Assignments:    assignmentRepoStub{store},
		Bookings:       bookingRepoStub{store},
	}, nil, nil)
}

func newBookingServiceForTest(store *labStoreStub) *BookingService {
	return NewBookingService(BookingDeps{
		Tests:          testRepoStub{store},
		Schedules:      scheduleRepoStub{store},
		Windows:        windowRepoStub{store},
		LabHolidays:    holidayRepoStub{store, models.HolidayScopeLab},
		TestHolidays:   holidayRepoStub{store, models.HolidayScopeTest},
		DoctorHolidays: holidayRepoStub{store, models.HolidayScopeDoctor},
		Assignments:    assignmentRepoStub{store},
		Doctors:        doctorRepoStub{store},
		Bookings:       bookingRepoStub{store},
		Tx:             &txRunnerStub{},
	}, time.Second, nil, nil, nil)
}

func newWindowServiceForTest(store *labStoreStub) *WindowService {
	return NewWindowService(testRepoStub{store}, scheduleRepoStub{store}, windowRepoStub{store}, &txRunnerStub{}, DefaultCapacityFactor, nil, nil)
}
