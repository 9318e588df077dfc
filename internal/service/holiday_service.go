package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lab-booking-api/internal/models"
	"github.com/noah-isme/lab-booking-api/internal/repository"
	appErrors "github.com/noah-isme/lab-booking-api/pkg/errors"
	"github.com/noah-isme/lab-booking-api/pkg/timeofday"
)

type holidayRepository interface {
	FindByID(ctx context.Context, id string) (*models.Holiday, error)
	List(ctx context.Context, filter models.HolidayFilter) ([]models.Holiday, error)
	Create(ctx context.Context, holiday *models.Holiday) error
	Update(ctx context.Context, holiday *models.Holiday) error
	Delete(ctx context.Context, id string) error
}

// HolidayRequest is the payload for creating or updating an override. ScopeID names the
// test or doctor and is ignored for lab holidays.
type HolidayRequest struct {
	ScopeID  string           `json:"scope_id"`
	Date     string           `json:"date" validate:"required,datetime=2006-01-02"`
	IsClosed bool             `json:"is_closed"`
	OpensAt  *timeofday.Clock `json:"opens_at"`
	ClosesAt *timeofday.Clock `json:"closes_at"`
	Remarks  *string          `json:"remarks" validate:"omitempty,max=255"`
}

// HolidayService manages date overrides for the lab, tests and doctors.
type HolidayService struct {
	repos     map[models.HolidayScope]holidayRepository
	tests     labTestReader
	doctors   doctorReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewHolidayService constructs the service from one repository per scope.
func NewHolidayService(lab, test, doctor holidayRepository, tests labTestReader, doctors doctorReader, validate *validator.Validate, logger *zap.Logger) *HolidayService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HolidayService{
		repos: map[models.HolidayScope]holidayRepository{
			models.HolidayScopeLab:    lab,
			models.HolidayScopeTest:   test,
			models.HolidayScopeDoctor: doctor,
		},
		tests:     tests,
		doctors:   doctors,
		validator: validate,
		logger:    logger,
	}
}

func (s *HolidayService) repo(scope models.HolidayScope) (holidayRepository, error) {
	repo, ok := s.repos[scope]
	if !ok || repo == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown holiday scope %q", scope))
	}
	return repo, nil
}

// List returns overrides of a scope ordered by date.
func (s *HolidayService) List(ctx context.Context, scope models.HolidayScope, filter models.HolidayFilter) ([]models.Holiday, error) {
	repo, err := s.repo(scope)
	if err != nil {
		return nil, err
	}
	items, err := repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list holidays")
	}
	return items, nil
}

// Create records an override. Only one override per scope and date may exist.
func (s *HolidayService) Create(ctx context.Context, scope models.HolidayScope, req HolidayRequest) (*models.Holiday, error) {
	repo, err := s.repo(scope)
	if err != nil {
		return nil, err
	}
	holiday := &models.Holiday{Scope: scope}
	if err := s.apply(ctx, holiday, req); err != nil {
		return nil, err
	}
	if err := repo.Create(ctx, holiday); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "an override already exists for this date")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create holiday")
	}
	s.logger.Info("holiday created",
		zap.String("scope", string(scope)),
		zap.String("scope_id", holiday.ScopeID),
		zap.String("date", holiday.Date.String()),
		zap.Bool("is_closed", holiday.IsClosed))
	return holiday, nil
}

// Update rewrites the date and hours of an override. The scope owner cannot change.
func (s *HolidayService) Update(ctx context.Context, scope models.HolidayScope, id string, req HolidayRequest) (*models.Holiday, error) {
	repo, err := s.repo(scope)
	if err != nil {
		return nil, err
	}
	holiday, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "holiday not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load holiday")
	}
	req.ScopeID = holiday.ScopeID
	if err := s.apply(ctx, holiday, req); err != nil {
		return nil, err
	}
	if err := repo.Update(ctx, holiday); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "holiday not found")
		case errors.Is(err, repository.ErrDuplicate):
			return nil, appErrors.Clone(appErrors.ErrConflict, "an override already exists for this date")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update holiday")
	}
	return holiday, nil
}

// Delete removes an override.
func (s *HolidayService) Delete(ctx context.Context, scope models.HolidayScope, id string) error {
	repo, err := s.repo(scope)
	if err != nil {
		return err
	}
	if err := repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "holiday not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete holiday")
	}
	return nil
}

func (s *HolidayService) apply(ctx context.Context, holiday *models.Holiday, req HolidayRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid holiday payload")
	}
	if err := validateHours(req.IsClosed, req.OpensAt, req.ClosesAt); err != nil {
		return err
	}
	if err := s.checkScopeOwner(ctx, holiday.Scope, req.ScopeID); err != nil {
		return err
	}

	holiday.ScopeID = req.ScopeID
	if holiday.Scope == models.HolidayScopeLab {
		holiday.ScopeID = ""
		holiday.Remarks = trimOptional(req.Remarks)
	}
	holiday.Date = timeofday.MustParseDate(req.Date)
	holiday.IsClosed = req.IsClosed
	holiday.OpensAt, holiday.ClosesAt = req.OpensAt, req.ClosesAt
	if req.IsClosed {
		holiday.OpensAt, holiday.ClosesAt = nil, nil
	}
	return nil
}

func (s *HolidayService) checkScopeOwner(ctx context.Context, scope models.HolidayScope, scopeID string) error {
	switch scope {
	case models.HolidayScopeTest:
		if scopeID == "" {
			return appErrors.Clone(appErrors.ErrValidation, "scope_id (test id) is required")
		}
		if _, err := s.tests.FindByID(ctx, scopeID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.ErrTestNotFound
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load test")
		}
	case models.HolidayScopeDoctor:
		if scopeID == "" {
			return appErrors.Clone(appErrors.ErrValidation, "scope_id (doctor id) is required")
		}
		if _, err := s.doctors.FindByID(ctx, scopeID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "doctor not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load doctor")
		}
	}
	return nil
}

// validateHours requires an open interval unless the day is closed. Open overrides may
// omit both times, which leaves capacity untouched.
func validateHours(closed bool, opens, closes *timeofday.Clock) error {
	if closed {
		return nil
	}
	if (opens == nil) != (closes == nil) {
		return appErrors.Clone(appErrors.ErrValidation, "opens_at and closes_at must be given together")
	}
	if opens != nil && *closes <= *opens {
		return appErrors.Clone(appErrors.ErrValidation, "closes_at must be after opens_at")
	}
	return nil
}
