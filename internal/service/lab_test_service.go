package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lab-booking-api/internal/models"
	"github.com/noah-isme/lab-booking-api/internal/repository"
	appErrors "github.com/noah-isme/lab-booking-api/pkg/errors"
	"github.com/noah-isme/lab-booking-api/pkg/timeofday"
)

const catalogCachePattern = "catalog:*"

type labTestRepository interface {
	List(ctx context.Context, filter models.LabTestFilter) ([]models.LabTest, int, error)
	FindByID(ctx context.Context, id string) (*models.LabTest, error)
	ExistsByName(ctx context.Context, name, excludeID string) (bool, error)
	Create(ctx context.Context, test *models.LabTest) error
	Update(ctx context.Context, test *models.LabTest) error
	Delete(ctx context.Context, id string) error
}

// LabTestRequest represents the payload for creating or updating tests.
type LabTestRequest struct {
	Name            string              `json:"test_name" validate:"required,max=120"`
	Category        models.TestCategory `json:"category" validate:"required,oneof=normal special"`
	RequiresBooking *bool               `json:"requires_booking"`
	RequiresDoctor  bool                `json:"requires_doctor"`
	Price           float64             `json:"price" validate:"gte=0"`
	Duration        *string             `json:"duration" validate:"omitempty,max=50"`
}

type labTestPage struct {
	Items []models.LabTest `json:"items"`
	Total int              `json:"total"`
}

// LabTestService manages the test catalog.
type LabTestService struct {
	repo      labTestRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLabTestService constructs the service. cache may be nil.
func NewLabTestService(repo labTestRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *LabTestService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LabTestService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns tests plus pagination data. Pages are served from the catalog cache when enabled.
func (s *LabTestService) List(ctx context.Context, filter models.LabTestFilter) ([]models.LabTest, *models.Pagination, error) {
	key := labTestCacheKey(filter)
	var cached labTestPage
	if s.cache.Get(ctx, key, &cached) {
		return cached.Items, paginationFor(filter.Page, filter.PageSize, cached.Total), nil
	}

	tests, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tests")
	}
	s.cache.Set(ctx, key, labTestPage{Items: tests, Total: total}, 0)
	return tests, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns a test by id.
func (s *LabTestService) Get(ctx context.Context, id string) (*models.LabTest, error) {
	test, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrTestNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load test")
	}
	return test, nil
}

// Create registers a new test. Names are unique ignoring case.
func (s *LabTestService) Create(ctx context.Context, req LabTestRequest) (*models.LabTest, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	test := &models.LabTest{RequiresBooking: true}
	applyLabTestRequest(test, req)
	if err := s.ensureUniqueName(ctx, test.Name, ""); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, test); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "test name already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create test")
	}
	s.cache.Invalidate(ctx, catalogCachePattern)
	s.logger.Info("test created", zap.String("test_id", test.ID), zap.String("name", test.Name))
	return test, nil
}

// Update modifies an existing test.
func (s *LabTestService) Update(ctx context.Context, id string, req LabTestRequest) (*models.LabTest, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	test, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	applyLabTestRequest(test, req)
	if err := s.ensureUniqueName(ctx, test.Name, id); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, test); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.ErrTestNotFound
		case errors.Is(err, repository.ErrDuplicate):
			return nil, appErrors.Clone(appErrors.ErrConflict, "test name already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update test")
	}
	s.cache.Invalidate(ctx, catalogCachePattern)
	return test, nil
}

// Delete removes a test together with its schedules, windows and bookings.
func (s *LabTestService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrTestNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete test")
	}
	s.cache.Invalidate(ctx, catalogCachePattern)
	s.logger.Info("test deleted", zap.String("test_id", id))
	return nil
}

func (s *LabTestService) validate(req LabTestRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid test payload")
	}
	if req.Duration != nil && strings.TrimSpace(*req.Duration) != "" {
		if _, ok := timeofday.ParseDurationMinutes(*req.Duration); !ok {
			return appErrors.Clone(appErrors.ErrValidation, "duration must look like 30, 00:30 or 30 min")
		}
	}
	return nil
}

func (s *LabTestService) ensureUniqueName(ctx context.Context, name, excludeID string) error {
	exists, err := s.repo.ExistsByName(ctx, name, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check test name")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "test name already exists")
	}
	return nil
}

func applyLabTestRequest(test *models.LabTest, req LabTestRequest) {
	test.Name = normalizeName(req.Name)
	test.Category = req.Category
	test.RequiresDoctor = req.RequiresDoctor
	test.Price = req.Price
	test.Duration = trimOptional(req.Duration)
	if req.RequiresBooking != nil {
		test.RequiresBooking = *req.RequiresBooking
	}
}

func labTestCacheKey(filter models.LabTestFilter) string {
	doctor := "any"
	if filter.RequiresDoctor != nil {
		doctor = fmt.Sprintf("%t", *filter.RequiresDoctor)
	}
	page := models.Pagination{Page: filter.Page, PageSize: filter.PageSize}
	page.Normalize()
	return fmt.Sprintf("catalog:tests:%s:%s:%s:%d:%d", filter.Category, doctor, strings.ToLower(strings.TrimSpace(filter.Search)), page.Page, page.PageSize)
}
