package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/lab-booking-api/internal/models"
	appErrors "github.com/noah-isme/lab-booking-api/pkg/errors"
	"github.com/noah-isme/lab-booking-api/pkg/timeofday"
)

type scheduleDayReader interface {
	FindByTestAndDay(ctx context.Context, exec sqlx.ExtContext, testID string, day int) (*models.TestSchedule, error)
}

type windowReader interface {
	ListBySchedule(ctx context.Context, testID, scheduleID string) ([]models.TestWindow, error)
	FindForSchedule(ctx context.Context, windowID, testID, scheduleID string) (*models.TestWindow, error)
}

type holidayReader interface {
	FindForDate(ctx context.Context, scopeID string, date timeofday.Date) (*models.Holiday, error)
}

type currentAssignmentReader interface {
	CurrentForTest(ctx context.Context, testID string) (*models.TestDoctorAssignment, error)
}

type slotCounter interface {
	CountByWindows(ctx context.Context, windowIDs []string, date timeofday.Date) (map[string]int, error)
}

// AvailabilityService resolves the remaining seats of every window of a test on a date.
type AvailabilityService struct {
	tests          labTestReader
	schedules      scheduleDayReader
	windows        windowReader
	labHolidays    holidayReader
	testHolidays   holidayReader
	doctorHolidays holidayReader
	assignments    currentAssignmentReader
	bookings       slotCounter
	metrics        *MetricsService
	logger         *zap.Logger
}

// AvailabilityDeps groups the readers used by the resolver.
type AvailabilityDeps struct {
	Tests          labTestReader
	Schedules      scheduleDayReader
	Windows        windowReader
	LabHolidays    holidayReader
	TestHolidays   holidayReader
	DoctorHolidays holidayReader
	Assignments    currentAssignmentReader
	Bookings       slotCounter
}

// NewAvailabilityService constructs the resolver.
func NewAvailabilityService(deps AvailabilityDeps, metrics *MetricsService, logger *zap.Logger) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{
		tests:          deps.Tests,
		schedules:      deps.Schedules,
		windows:        deps.Windows,
		labHolidays:    deps.LabHolidays,
		testHolidays:   deps.TestHolidays,
		doctorHolidays: deps.DoctorHolidays,
		assignments:    deps.Assignments,
		bookings:       deps.Bookings,
		metrics:        metrics,
		logger:         logger,
	}
}

// Resolve lists the windows of testID on date with their remaining seats, ordered by start.
// A day without a schedule, a closed schedule, or any closed override yields an empty list.
func (s *AvailabilityService) Resolve(ctx context.Context, testID, date string) ([]models.AvailableWindow, error) {
	day, err := timeofday.ParseDate(date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid date, expected YYYY-MM-DD")
	}
	started := time.Now()
	defer func() { s.metrics.ObserveAvailability(time.Since(started)) }()

	test, err := s.tests.FindByID(ctx, testID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrTestNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load test")
	}
	bookingDate := timeofday.NewDate(day)

	schedule, err := s.schedules.FindByTestAndDay(ctx, nil, test.ID, bookingDate.Weekday())
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	if schedule == nil || schedule.IsClosed {
		return []models.AvailableWindow{}, nil
	}

	windows, err := s.windows.ListBySchedule(ctx, test.ID, schedule.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load windows")
	}
	if len(windows) == 0 {
		return []models.AvailableWindow{}, nil
	}

	overrides, err := s.overridesFor(ctx, test, bookingDate)
	if err != nil {
		return nil, err
	}
	for _, o := range overrides {
		if o.IsClosed {
			s.logger.Debug("closed override hides all windows",
				zap.String("test_id", test.ID),
				zap.String("date", bookingDate.String()),
				zap.String("scope", string(o.Scope)))
			return []models.AvailableWindow{}, nil
		}
	}

	ids := make([]string, len(windows))
	for i, w := range windows {
		ids[i] = w.ID
	}
	counts, err := s.bookings.CountByWindows(ctx, ids, bookingDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count bookings")
	}

	result := make([]models.AvailableWindow, 0, len(windows))
	for _, w := range windows {
		capacity := EffectiveCapacity(w, overrides...)
		result = append(result, models.AvailableWindow{
			WindowID:       w.ID,
			WindowStart:    w.WindowStart,
			WindowEnd:      w.WindowEnd,
			AvailableSeats: max(0, capacity-counts[w.ID]),
		})
	}
	return result, nil
}

// overridesFor collects the lab, test and (when required) assigned doctor overrides of a date.
func (s *AvailabilityService) overridesFor(ctx context.Context, test *models.LabTest, date timeofday.Date) ([]*models.Holiday, error) {
	var overrides []*models.Holiday

	lab, err := s.labHolidays.FindForDate(ctx, "", date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lab holiday")
	}
	if lab != nil {
		overrides = append(overrides, lab)
	}

	testHoliday, err := s.testHolidays.FindForDate(ctx, test.ID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load test holiday")
	}
	if testHoliday != nil {
		overrides = append(overrides, testHoliday)
	}

	if !test.RequiresDoctor {
		return overrides, nil
	}
	assignment, err := s.assignments.CurrentForTest(ctx, test.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return overrides, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load doctor assignment")
	}
	doctorHoliday, err := s.doctorHolidays.FindForDate(ctx, assignment.DoctorID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load doctor holiday")
	}
	if doctorHoliday != nil {
		overrides = append(overrides, doctorHoliday)
	}
	return overrides, nil
}
