package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/lab-booking-api/internal/models"
	appErrors "github.com/noah-isme/lab-booking-api/pkg/errors"
	"github.com/noah-isme/lab-booking-api/pkg/timeofday"
)

type labScheduleRepository interface {
	List(ctx context.Context) ([]models.LabScheduleDay, error)
	Upsert(ctx context.Context, day *models.LabScheduleDay) error
}

// LabHoursRequest sets the lab's hours for one weekday.
type LabHoursRequest struct {
	OpensAt  *timeofday.Clock `json:"opens_at"`
	ClosesAt *timeofday.Clock `json:"closes_at"`
	IsClosed bool             `json:"is_closed"`
}

// LabScheduleService exposes the lab's weekly hours for administration.
type LabScheduleService struct {
	repo   labScheduleRepository
	logger *zap.Logger
}

// NewLabScheduleService constructs the service.
func NewLabScheduleService(repo labScheduleRepository, logger *zap.Logger) *LabScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LabScheduleService{repo: repo, logger: logger}
}

// List returns the weekly hours, Monday first.
func (s *LabScheduleService) List(ctx context.Context) ([]models.LabScheduleDay, error) {
	days, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lab schedule")
	}
	return days, nil
}

// Set replaces the hours of one weekday (Monday=0).
func (s *LabScheduleService) Set(ctx context.Context, dayOfWeek int, req LabHoursRequest) (*models.LabScheduleDay, error) {
	if dayOfWeek < 0 || dayOfWeek > 6 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "day_of_week must be between 0 (Monday) and 6 (Sunday)")
	}
	if !req.IsClosed && (req.OpensAt == nil || req.ClosesAt == nil) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "opens_at and closes_at are required for open days")
	}
	if err := validateHours(req.IsClosed, req.OpensAt, req.ClosesAt); err != nil {
		return nil, err
	}
	day := &models.LabScheduleDay{DayOfWeek: dayOfWeek, IsClosed: req.IsClosed}
	if !req.IsClosed {
		day.OpensAt, day.ClosesAt = req.OpensAt, req.ClosesAt
	}
	if err := s.repo.Upsert(ctx, day); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save lab schedule")
	}
	s.logger.Info("lab hours updated", zap.Int("day_of_week", dayOfWeek), zap.Bool("is_closed", req.IsClosed))
	return day, nil
}
