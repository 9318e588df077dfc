package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lab-booking-api/internal/models"
	"github.com/noah-isme/lab-booking-api/internal/repository"
	appErrors "github.com/noah-isme/lab-booking-api/pkg/errors"
)

type doctorRepository interface {
	List(ctx context.Context, search string) ([]models.Doctor, error)
	FindByID(ctx context.Context, id string) (*models.Doctor, error)
	Create(ctx context.Context, doctor *models.Doctor) error
	Update(ctx context.Context, doctor *models.Doctor) error
	Delete(ctx context.Context, id string) error
}

// DoctorRequest represents the payload for creating or updating doctors.
type DoctorRequest struct {
	Name           string  `json:"doctor_name" validate:"required,max=120"`
	Specialization string  `json:"specialization" validate:"required,max=120"`
	ContactInfo    *string `json:"contact_info" validate:"omitempty,max=200"`
}

// DoctorService manages doctors.
type DoctorService struct {
	repo      doctorRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDoctorService constructs the service.
func NewDoctorService(repo doctorRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *DoctorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DoctorService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns doctors ordered by name.
func (s *DoctorService) List(ctx context.Context, search string) ([]models.Doctor, error) {
	key := "catalog:doctors:" + strings.ToLower(strings.TrimSpace(search))
	var cached []models.Doctor
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}
	doctors, err := s.repo.List(ctx, search)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list doctors")
	}
	s.cache.Set(ctx, key, doctors, 0)
	return doctors, nil
}

// Get returns a doctor by id.
func (s *DoctorService) Get(ctx context.Context, id string) (*models.Doctor, error) {
	doctor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "doctor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load doctor")
	}
	return doctor, nil
}

// Create registers a doctor.
func (s *DoctorService) Create(ctx context.Context, req DoctorRequest) (*models.Doctor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid doctor payload")
	}
	doctor := &models.Doctor{
		Name:           normalizeName(req.Name),
		Specialization: strings.TrimSpace(req.Specialization),
		ContactInfo:    trimOptional(req.ContactInfo),
	}
	if err := s.repo.Create(ctx, doctor); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create doctor")
	}
	s.cache.Invalidate(ctx, catalogCachePattern)
	return doctor, nil
}

// Update modifies a doctor.
func (s *DoctorService) Update(ctx context.Context, id string, req DoctorRequest) (*models.Doctor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid doctor payload")
	}
	doctor, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	doctor.Name = normalizeName(req.Name)
	doctor.Specialization = strings.TrimSpace(req.Specialization)
	doctor.ContactInfo = trimOptional(req.ContactInfo)
	if err := s.repo.Update(ctx, doctor); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "doctor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update doctor")
	}
	s.cache.Invalidate(ctx, catalogCachePattern)
	return doctor, nil
}

// Delete removes a doctor. Existing bookings keep the stored doctor name.
func (s *DoctorService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "doctor not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete doctor")
	}
	s.cache.Invalidate(ctx, catalogCachePattern)
	return nil
}

type assignmentRepository interface {
	List(ctx context.Context, testID string) ([]models.TestDoctorAssignment, error)
	Exists(ctx context.Context, testID, doctorID string) (bool, error)
	Create(ctx context.Context, item *models.TestDoctorAssignment) error
	Delete(ctx context.Context, id string) error
}

// AssignmentRequest links a doctor to a test.
type AssignmentRequest struct {
	TestID   string `json:"test_id" validate:"required"`
	DoctorID string `json:"doctor_id" validate:"required"`
}

// AssignmentService manages which doctors perform which tests. The earliest assignment of a
// test is the one bookings fall back to.
type AssignmentService struct {
	repo      assignmentRepository
	tests     labTestReader
	doctors   doctorReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAssignmentService constructs the service.
func NewAssignmentService(repo assignmentRepository, tests labTestReader, doctors doctorReader, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{repo: repo, tests: tests, doctors: doctors, validator: validate, logger: logger}
}

// List returns assignments, optionally for one test.
func (s *AssignmentService) List(ctx context.Context, testID string) ([]models.TestDoctorAssignment, error) {
	items, err := s.repo.List(ctx, testID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	return items, nil
}

// Create assigns a doctor to a test. Assigning the same pair twice is a conflict.
func (s *AssignmentService) Create(ctx context.Context, req AssignmentRequest) (*models.TestDoctorAssignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	test, err := s.tests.FindByID(ctx, req.TestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrTestNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load test")
	}
	doctor, err := s.doctors.FindByID(ctx, req.DoctorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "doctor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load doctor")
	}

	exists, err := s.repo.Exists(ctx, test.ID, doctor.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check assignment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "doctor is already assigned to this test")
	}

	item := &models.TestDoctorAssignment{TestID: test.ID, DoctorID: doctor.ID, TestName: test.Name, DoctorName: doctor.Name}
	if err := s.repo.Create(ctx, item); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "doctor is already assigned to this test")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}
	s.logger.Info("doctor assigned", zap.String("test_id", test.ID), zap.String("doctor_id", doctor.ID))
	return item, nil
}

// Delete removes an assignment.
func (s *AssignmentService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete assignment")
	}
	return nil
}
