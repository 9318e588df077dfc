package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/lab-booking-api/internal/models"
	appErrors "github.com/noah-isme/lab-booking-api/pkg/errors"
	"github.com/noah-isme/lab-booking-api/pkg/timeofday"
)

type txRunner interface {
	WithinTx(ctx context.Context, fn func(exec sqlx.ExtContext) error) error
}

type labTestReader interface {
	FindByID(ctx context.Context, id string) (*models.LabTest, error)
}

type testScheduleReader interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.TestSchedule, error)
}

type windowWriter interface {
	DeleteBySchedule(ctx context.Context, exec sqlx.ExtContext, scheduleID string) (int64, error)
	InsertBatch(ctx context.Context, exec sqlx.ExtContext, windows []models.TestWindow) error
}

// WindowSpec is one generated window before it is persisted.
type WindowSpec struct {
	Index    int
	Start    timeofday.Clock
	End      timeofday.Clock
	MaxTests int
}

// GenerateWindows partitions [opens, closes) into windowMinutes slices, the last one clipped
// to closes, and spreads the daily capacity over them with the remainder going to the
// earliest windows. It returns nil when there is nothing to partition.
func GenerateWindows(opens, closes timeofday.Clock, windowMinutes, durationMinutes int, factor float64) []WindowSpec {
	working := closes.Minutes() - opens.Minutes()
	if working <= 0 || windowMinutes <= 0 {
		return nil
	}

	var specs []WindowSpec
	for start := opens; start < closes; start = start.Add(windowMinutes) {
		end := start.Add(windowMinutes)
		if end > closes {
			end = closes
		}
		specs = append(specs, WindowSpec{Index: len(specs), Start: start, End: end})
	}

	daily := DailyCapacity(working, durationMinutes, factor)
	base, rem := daily/len(specs), daily%len(specs)
	for i := range specs {
		specs[i].MaxTests = base
		if i < rem {
			specs[i].MaxTests++
		}
	}
	return specs
}

// WindowService regenerates the bookable windows of weekly schedule entries.
type WindowService struct {
	tests     labTestReader
	schedules testScheduleReader
	windows   windowWriter
	tx        txRunner
	factor    float64
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewWindowService constructs the service.
func NewWindowService(tests labTestReader, schedules testScheduleReader, windows windowWriter, tx txRunner, factor float64, metrics *MetricsService, logger *zap.Logger) *WindowService {
	if factor <= 0 || factor > 1 {
		factor = DefaultCapacityFactor
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WindowService{tests: tests, schedules: schedules, windows: windows, tx: tx, factor: factor, metrics: metrics, logger: logger}
}

// Regenerate replaces every window of a schedule entry in one transaction.
func (s *WindowService) Regenerate(ctx context.Context, testID, scheduleID string, windowMinutes int) ([]models.TestWindow, error) {
	if windowMinutes <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "window_minutes must be positive")
	}
	test, err := s.tests.FindByID(ctx, testID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrTestNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load test")
	}

	var windows []models.TestWindow
	err = s.tx.WithinTx(ctx, func(exec sqlx.ExtContext) error {
		schedule, err := s.schedules.FindByID(ctx, exec, scheduleID)
		if err != nil {
			return err
		}
		if schedule.TestID != test.ID {
			return sql.ErrNoRows
		}
		windows, err = s.ReplaceWithin(ctx, exec, test, schedule, windowMinutes)
		return err
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule entry not found for test")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to regenerate windows")
	}
	return windows, nil
}

// ReplaceWithin deletes and rewrites the windows of schedule using exec, which should be a
// transaction so readers never see the entry without windows. A schedule that is closed or
// lacks usable hours ends up with no windows.
func (s *WindowService) ReplaceWithin(ctx context.Context, exec sqlx.ExtContext, test *models.LabTest, schedule *models.TestSchedule, windowMinutes int) ([]models.TestWindow, error) {
	removed, err := s.windows.DeleteBySchedule(ctx, exec, schedule.ID)
	if err != nil {
		return nil, err
	}

	var specs []WindowSpec
	if schedule.WorkingMinutes() > 0 {
		specs = GenerateWindows(*schedule.OpensAt, *schedule.ClosesAt, windowMinutes, test.DurationMinutes(), s.factor)
	}
	if len(specs) == 0 {
		s.logger.Warn("schedule has no usable hours, no windows generated",
			zap.String("code", appErrors.ErrConfiguration.Code),
			zap.String("test_id", test.ID),
			zap.String("schedule_id", schedule.ID),
			zap.Int("day_of_week", schedule.DayOfWeek),
			zap.Bool("is_closed", schedule.IsClosed),
			zap.Int64("removed", removed))
		s.metrics.RecordWindowRegeneration("empty")
		return []models.TestWindow{}, nil
	}

	windows := make([]models.TestWindow, len(specs))
	for i, spec := range specs {
		windows[i] = models.TestWindow{
			ScheduleID:  schedule.ID,
			TestID:      test.ID,
			Index:       spec.Index,
			WindowStart: spec.Start,
			WindowEnd:   spec.End,
			MaxTests:    spec.MaxTests,
		}
	}
	if err := s.windows.InsertBatch(ctx, exec, windows); err != nil {
		return nil, err
	}
	s.logger.Info("windows regenerated",
		zap.String("test_id", test.ID),
		zap.String("schedule_id", schedule.ID),
		zap.Int("windows", len(windows)),
		zap.Int("window_minutes", windowMinutes),
		zap.Int64("replaced", removed))
	s.metrics.RecordWindowRegeneration("generated")
	return windows, nil
}
