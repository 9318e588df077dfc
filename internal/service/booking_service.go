package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/lab-booking-api/internal/models"
	appErrors "github.com/noah-isme/lab-booking-api/pkg/errors"
	"github.com/noah-isme/lab-booking-api/pkg/lock"
	"github.com/noah-isme/lab-booking-api/pkg/timeofday"
)

type bookingStore interface {
	LockSlot(ctx context.Context, exec sqlx.ExtContext, key string) error
	CountForSlot(ctx context.Context, exec sqlx.ExtContext, windowID string, date timeofday.Date, excludeID string) (int, error)
	Insert(ctx context.Context, exec sqlx.ExtContext, booking *models.Booking) error
	Update(ctx context.Context, exec sqlx.ExtContext, booking *models.Booking) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*models.Booking, error)
	List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error)
}

// BookingDeps groups the collaborators of the booking allocator.
type BookingDeps struct {
	Tests          labTestReader
	Schedules      scheduleDayReader
	Windows        windowReader
	LabHolidays    holidayReader
	TestHolidays   holidayReader
	DoctorHolidays holidayReader
	Assignments    currentAssignmentReader
	Doctors        doctorReader
	Bookings       bookingStore
	Tx             txRunner
	Locks          *lock.KeyedMutex
}

// BookingService validates and commits bookings. Seat counting and the write run under a
// per-slot lock so concurrent requests for the same window and date never oversell it.
type BookingService struct {
	slots       *slotValidator
	bookings    bookingStore
	tx          txRunner
	locks       *lock.KeyedMutex
	lockTimeout time.Duration
	validator   *validator.Validate
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewBookingService constructs the allocator.
func NewBookingService(deps BookingDeps, lockTimeout time.Duration, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *BookingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Locks == nil {
		deps.Locks = lock.NewKeyedMutex()
	}
	if lockTimeout <= 0 {
		lockTimeout = 5 * time.Second
	}
	return &BookingService{
		slots: &slotValidator{
			tests:          deps.Tests,
			schedules:      deps.Schedules,
			windows:        deps.Windows,
			labHolidays:    deps.LabHolidays,
			testHolidays:   deps.TestHolidays,
			doctorHolidays: deps.DoctorHolidays,
			assignments:    deps.Assignments,
			doctors:        deps.Doctors,
		},
		bookings:    deps.Bookings,
		tx:          deps.Tx,
		locks:       deps.Locks,
		lockTimeout: lockTimeout,
		validator:   validate,
		metrics:     metrics,
		logger:      logger,
	}
}

// Create reserves one seat in the requested window.
func (s *BookingService) Create(ctx context.Context, req models.CreateBookingRequest) (*models.BookingResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}
	date := timeofday.MustParseDate(req.BookingDate)

	plan, err := s.slots.Validate(ctx, slotRequest{TestID: req.TestID, WindowID: req.WindowID, Date: date, DoctorID: req.DoctorID})
	if err != nil {
		s.recordRefusal("create", err)
		return nil, err
	}

	booking := &models.Booking{
		PatientName:   normalizeName(req.PatientName),
		PatientMobile: req.PatientMobile,
	}
	applyPlan(booking, plan, date)

	err = s.commit(ctx, plan, date, func(exec sqlx.ExtContext) error {
		return s.bookings.Insert(ctx, exec, booking)
	})
	if err != nil {
		s.recordRefusal("create", err)
		return nil, err
	}

	s.metrics.RecordBookingOutcome("create", "success")
	s.logger.Info("booking created",
		zap.String("booking_id", booking.ID),
		zap.String("test_id", booking.TestID),
		zap.String("window_id", booking.WindowID),
		zap.String("date", date.String()))
	return resultFor(booking), nil
}

// Update moves or edits a booking. The booking's own seat is not counted against it when
// the slot stays the same.
func (s *BookingService) Update(ctx context.Context, id string, req models.UpdateBookingRequest) (*models.BookingResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}
	booking, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, internalErr(err, "failed to load booking")
	}
	date := timeofday.MustParseDate(req.BookingDate)

	slot := slotRequest{TestID: req.TestID, WindowID: req.WindowID, Date: date, DoctorID: req.DoctorID}
	if booking.WindowID == req.WindowID && booking.BookingDate.Equal(date.Time) {
		slot.ExcludeBookingID = booking.ID
	}
	plan, err := s.slots.Validate(ctx, slot)
	if err != nil {
		s.recordRefusal("update", err)
		return nil, err
	}

	booking.PatientName = normalizeName(req.PatientName)
	booking.PatientMobile = req.PatientMobile
	applyPlan(booking, plan, date)

	err = s.commit(ctx, plan, date, func(exec sqlx.ExtContext) error {
		return s.bookings.Update(ctx, exec, booking)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		s.recordRefusal("update", err)
		return nil, err
	}

	s.metrics.RecordBookingOutcome("update", "success")
	s.logger.Info("booking updated",
		zap.String("booking_id", booking.ID),
		zap.String("window_id", booking.WindowID),
		zap.String("date", date.String()))
	return resultFor(booking), nil
}

// Delete removes a booking, freeing its seat.
func (s *BookingService) Delete(ctx context.Context, id string) error {
	if err := s.bookings.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return internalErr(err, "failed to delete booking")
	}
	s.metrics.RecordBookingOutcome("delete", "success")
	s.logger.Info("booking deleted", zap.String("booking_id", id))
	return nil
}

// Get returns a booking by id.
func (s *BookingService) Get(ctx context.Context, id string) (*models.Booking, error) {
	booking, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, internalErr(err, "failed to load booking")
	}
	return booking, nil
}

// List returns bookings ordered by date then time.
func (s *BookingService) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, *models.Pagination, error) {
	bookings, total, err := s.bookings.List(ctx, filter)
	if err != nil {
		return nil, nil, internalErr(err, "failed to list bookings")
	}
	return bookings, paginationFor(filter.Page, filter.PageSize, total), nil
}

// commit counts the slot and runs write while the slot is locked in process and in the database.
func (s *BookingService) commit(ctx context.Context, plan *slotPlan, date timeofday.Date, write func(exec sqlx.ExtContext) error) error {
	key := plan.lockKey(date)
	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()
	unlock, err := s.locks.Lock(lockCtx, key)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrTooManyRequests.Code, appErrors.ErrTooManyRequests.Status, "slot is busy, retry shortly")
	}
	defer unlock()

	err = s.tx.WithinTx(ctx, func(exec sqlx.ExtContext) error {
		if err := s.bookings.LockSlot(ctx, exec, key); err != nil {
			return err
		}
		count, err := s.bookings.CountForSlot(ctx, exec, plan.Window.ID, date, plan.ExcludeBookingID)
		if err != nil {
			return err
		}
		if plan.Capacity-count <= 0 {
			return appErrors.ErrSlotFull
		}
		return write(exec)
	})
	if err == nil {
		return nil
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) || errors.Is(err, sql.ErrNoRows) {
		return err
	}
	return internalErr(err, "failed to save booking")
}

func (s *BookingService) recordRefusal(operation string, err error) {
	outcome := "error"
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		outcome = appErr.Code
	}
	s.metrics.RecordBookingOutcome(operation, outcome)
	s.logger.Debug("booking refused", zap.String("operation", operation), zap.String("outcome", outcome), zap.Error(err))
}

// applyPlan copies the validated slot onto the booking. Time fields always come from the window.
func applyPlan(booking *models.Booking, plan *slotPlan, date timeofday.Date) {
	booking.WindowID = plan.Window.ID
	booking.TestID = plan.Test.ID
	booking.TestName = plan.Test.Name
	booking.BookingDate = date
	booking.BookingTime = plan.BookingTime
	booking.WindowStart = plan.Window.WindowStart
	booking.WindowEnd = plan.Window.WindowEnd
	booking.DoctorID = nil
	booking.DoctorName = nil
	if plan.Doctor != nil {
		id, name := plan.Doctor.ID, plan.Doctor.Name
		booking.DoctorID = &id
		booking.DoctorName = &name
	}
}

func resultFor(booking *models.Booking) *models.BookingResult {
	return &models.BookingResult{
		BookingID:   booking.ID,
		TestName:    booking.TestName,
		DoctorName:  booking.DoctorName,
		BookingDate: booking.BookingDate,
		BookingTime: booking.BookingTime,
		WindowStart: booking.WindowStart,
		WindowEnd:   booking.WindowEnd,
	}
}
