package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/lab-booking-api/internal/models"
	"github.com/noah-isme/lab-booking-api/internal/repository"
	appErrors "github.com/noah-isme/lab-booking-api/pkg/errors"
	"github.com/noah-isme/lab-booking-api/pkg/timeofday"
)

type testScheduleRepository interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.TestSchedule, error)
	List(ctx context.Context, testID string) ([]models.TestSchedule, error)
	Create(ctx context.Context, exec sqlx.ExtContext, schedule *models.TestSchedule) error
	Update(ctx context.Context, exec sqlx.ExtContext, schedule *models.TestSchedule) error
	Delete(ctx context.Context, id string) error
}

type testWindowLister interface {
	ListByTest(ctx context.Context, testID string) ([]models.TestWindow, error)
}

// TestScheduleRequest creates or edits a weekly schedule entry. WindowMinutes controls how
// the entry is split into bookable windows and is required for open days.
type TestScheduleRequest struct {
	DayOfWeek     *int             `json:"day_of_week" validate:"required,min=0,max=6"`
	OpensAt       *timeofday.Clock `json:"opens_at"`
	ClosesAt      *timeofday.Clock `json:"closes_at"`
	IsClosed      bool             `json:"is_closed"`
	WindowMinutes int              `json:"window_minutes" validate:"gte=0,max=1440"`
}

// TestScheduleResult is a schedule entry with the windows generated for it.
type TestScheduleResult struct {
	Schedule *models.TestSchedule `json:"schedule"`
	Windows  []models.TestWindow  `json:"windows"`
}

// TestScheduleService manages weekly schedule entries. Every write regenerates the entry's
// windows in the same transaction.
type TestScheduleService struct {
	repo           testScheduleRepository
	tests          labTestReader
	windows        *WindowService
	windowLister   testWindowLister
	tx             txRunner
	validator      *validator.Validate
	logger         *zap.Logger
}

// NewTestScheduleService constructs the service.
func NewTestScheduleService(repo testScheduleRepository, tests labTestReader, windows *WindowService, lister testWindowLister, tx txRunner, validate *validator.Validate, logger *zap.Logger) *TestScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TestScheduleService{
		repo:           repo,
		tests:          tests,
		windows:        windows,
		windowLister:   lister,
		tx:             tx,
		validator:      validate,
		logger:         logger,
	}
}

// List returns schedule entries, for one test when testID is set.
func (s *TestScheduleService) List(ctx context.Context, testID string) ([]models.TestSchedule, error) {
	items, err := s.repo.List(ctx, testID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}
	return items, nil
}

// ListWindows returns every window of a test.
func (s *TestScheduleService) ListWindows(ctx context.Context, testID string) ([]models.TestWindow, error) {
	if _, err := s.loadTest(ctx, testID); err != nil {
		return nil, err
	}
	items, err := s.windowLister.ListByTest(ctx, testID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list windows")
	}
	return items, nil
}

// Create adds a weekday entry for a test and generates its windows.
func (s *TestScheduleService) Create(ctx context.Context, testID string, req TestScheduleRequest) (*TestScheduleResult, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	test, err := s.loadTest(ctx, testID)
	if err != nil {
		return nil, err
	}

	schedule := &models.TestSchedule{TestID: test.ID}
	applyScheduleRequest(schedule, req)
	result := &TestScheduleResult{Schedule: schedule}
	err = s.tx.WithinTx(ctx, func(exec sqlx.ExtContext) error {
		if err := s.repo.Create(ctx, exec, schedule); err != nil {
			return err
		}
		windows, err := s.windows.ReplaceWithin(ctx, exec, test, schedule, req.WindowMinutes)
		result.Windows = windows
		return err
	})
	if err != nil {
		return nil, s.writeError(err, "failed to create schedule")
	}
	return result, nil
}

// Update edits an entry and regenerates its windows.
func (s *TestScheduleService) Update(ctx context.Context, testID, id string, req TestScheduleRequest) (*TestScheduleResult, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	test, err := s.loadTest(ctx, testID)
	if err != nil {
		return nil, err
	}

	result := &TestScheduleResult{}
	err = s.tx.WithinTx(ctx, func(exec sqlx.ExtContext) error {
		schedule, err := s.repo.FindByID(ctx, exec, id)
		if err != nil {
			return err
		}
		if schedule.TestID != test.ID {
			return sql.ErrNoRows
		}
		applyScheduleRequest(schedule, req)
		if err := s.repo.Update(ctx, exec, schedule); err != nil {
			return err
		}
		result.Schedule = schedule
		result.Windows, err = s.windows.ReplaceWithin(ctx, exec, test, schedule, req.WindowMinutes)
		return err
	})
	if err != nil {
		return nil, s.writeError(err, "failed to update schedule")
	}
	return result, nil
}

// Delete removes an entry; its windows go with it.
func (s *TestScheduleService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "schedule entry not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule")
	}
	return nil
}

func (s *TestScheduleService) validate(req TestScheduleRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	if !req.IsClosed && (req.OpensAt == nil || req.ClosesAt == nil) {
		return appErrors.Clone(appErrors.ErrValidation, "opens_at and closes_at are required for open days")
	}
	if !req.IsClosed && req.WindowMinutes < 1 {
		return appErrors.Clone(appErrors.ErrValidation, "window_minutes is required for open days")
	}
	return validateHours(req.IsClosed, req.OpensAt, req.ClosesAt)
}

func (s *TestScheduleService) loadTest(ctx context.Context, testID string) (*models.LabTest, error) {
	test, err := s.tests.FindByID(ctx, testID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrTestNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load test")
	}
	return test, nil
}

func (s *TestScheduleService) writeError(err error, message string) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, "schedule entry not found for test")
	case errors.Is(err, repository.ErrDuplicate):
		return appErrors.Clone(appErrors.ErrConflict, "test already has a schedule for this weekday")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func applyScheduleRequest(schedule *models.TestSchedule, req TestScheduleRequest) {
	schedule.DayOfWeek = *req.DayOfWeek
	schedule.IsClosed = req.IsClosed
	schedule.OpensAt, schedule.ClosesAt = req.OpensAt, req.ClosesAt
	if req.IsClosed {
		schedule.OpensAt, schedule.ClosesAt = nil, nil
	}
}
