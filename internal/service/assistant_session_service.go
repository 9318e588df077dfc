package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/lab-booking-api/internal/models"
	appErrors "github.com/noah-isme/lab-booking-api/pkg/errors"
	"github.com/noah-isme/lab-booking-api/pkg/timeofday"
)

type availabilityResolver interface {
	Resolve(ctx context.Context, testID, date string) ([]models.AvailableWindow, error)
}

type bookingCreator interface {
	Create(ctx context.Context, req models.CreateBookingRequest) (*models.BookingResult, error)
}

type sessionStore interface {
	Save(ctx context.Context, session *models.BookingSession) error
	Get(ctx context.Context, token string) (*models.BookingSession, error)
	Take(ctx context.Context, token string) (*models.BookingSession, error)
	Delete(ctx context.Context, token string) error
}

// StartSessionRequest opens a guided booking for a test on a date.
type StartSessionRequest struct {
	TestID string `json:"test_id" validate:"required"`
	Date   string `json:"date" validate:"required,datetime=2006-01-02"`
}

// SelectWindowRequest picks one of the offered windows by number, ordinal word or time range.
type SelectWindowRequest struct {
	Selection string `json:"selection" validate:"required,max=40"`
}

// ConfirmSessionRequest books the selected window.
type ConfirmSessionRequest struct {
	PatientName   string  `json:"patient_name" validate:"required,max=120"`
	PatientMobile string  `json:"patient_mobile" validate:"required,min=7,max=20"`
	DoctorID      *string `json:"doctor_id,omitempty"`
}

// AssistantSessionService carries a conversational booking across turns. Sessions live in an
// external store keyed by an opaque token and expire on their own.
type AssistantSessionService struct {
	tests        labTestReader
	availability availabilityResolver
	bookings     bookingCreator
	store        sessionStore
	ttl          time.Duration
	validator    *validator.Validate
	logger       *zap.Logger
	now          func() time.Time
}

// NewAssistantSessionService constructs the service.
func NewAssistantSessionService(tests labTestReader, availability availabilityResolver, bookings bookingCreator, store sessionStore, ttl time.Duration, validate *validator.Validate, logger *zap.Logger) *AssistantSessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &AssistantSessionService{
		tests:        tests,
		availability: availability,
		bookings:     bookings,
		store:        store,
		ttl:          ttl,
		validator:    validate,
		logger:       logger,
		now:          time.Now,
	}
}

// Start resolves availability and opens a session offering the windows in order.
func (s *AssistantSessionService) Start(ctx context.Context, req StartSessionRequest) (*models.BookingSession, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}
	windows, err := s.availability.Resolve(ctx, req.TestID, req.Date)
	if err != nil {
		return nil, err
	}
	test, err := s.tests.FindByID(ctx, req.TestID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load test")
	}

	now := s.now()
	session := &models.BookingSession{
		Token:       uuid.NewString(),
		TestID:      test.ID,
		TestName:    test.Name,
		BookingDate: req.Date,
		Windows:     windows,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
	}
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	s.logger.Info("assistant session started", zap.String("test_id", test.ID), zap.String("date", req.Date), zap.Int("windows", len(windows)))
	return session, nil
}

// Get returns a live session.
func (s *AssistantSessionService) Get(ctx context.Context, token string) (*models.BookingSession, error) {
	session, err := s.store.Get(ctx, token)
	if err != nil {
		if errors.Is(err, appErrors.ErrSessionExpired) {
			return nil, appErrors.ErrSessionExpired
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	return session, nil
}

// Select records the caller's window choice and extends the session.
func (s *AssistantSessionService) Select(ctx context.Context, token string, req SelectWindowRequest) (*models.BookingSession, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid selection payload")
	}
	session, err := s.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	idx, err := parseWindowSelection(req.Selection, session.Windows)
	if err != nil {
		return nil, err
	}
	chosen := session.Windows[idx]
	if chosen.AvailableSeats <= 0 {
		return nil, appErrors.Clone(appErrors.ErrSlotFull, fmt.Sprintf("window %s - %s has no seats left", chosen.WindowStart, chosen.WindowEnd))
	}
	session.SelectedWindow = &chosen
	session.ExpiresAt = s.now().Add(s.ttl)
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Confirm books the selected window and closes the session. The session is claimed before
// booking, so a token confirms at most once. A refused booking puts the session back so the
// caller can pick another window.
func (s *AssistantSessionService) Confirm(ctx context.Context, token string, req ConfirmSessionRequest) (*models.BookingResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid confirmation payload")
	}
	session, err := s.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if session.SelectedWindow == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "select a window before confirming")
	}

	session, err = s.store.Take(ctx, token)
	if err != nil {
		if errors.Is(err, appErrors.ErrSessionExpired) {
			return nil, appErrors.ErrSessionExpired
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to claim session")
	}
	if session.SelectedWindow == nil {
		s.restore(ctx, session)
		return nil, appErrors.Clone(appErrors.ErrValidation, "select a window before confirming")
	}

	result, err := s.bookings.Create(ctx, models.CreateBookingRequest{
		TestID:        session.TestID,
		WindowID:      session.SelectedWindow.WindowID,
		BookingDate:   session.BookingDate,
		PatientName:   req.PatientName,
		PatientMobile: req.PatientMobile,
		DoctorID:      req.DoctorID,
	})
	if err != nil {
		s.restore(ctx, session)
		return nil, err
	}
	return result, nil
}

func (s *AssistantSessionService) restore(ctx context.Context, session *models.BookingSession) {
	if err := s.store.Save(ctx, session); err != nil {
		s.logger.Warn("failed to restore assistant session", zap.String("test_id", session.TestID), zap.Error(err))
	}
}

// Cancel drops a session.
func (s *AssistantSessionService) Cancel(ctx context.Context, token string) error {
	if err := s.store.Delete(ctx, token); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete session")
	}
	return nil
}

func (s *AssistantSessionService) save(ctx context.Context, session *models.BookingSession) error {
	if err := s.store.Save(ctx, session); err != nil {
		if errors.Is(err, appErrors.ErrSessionExpired) {
			return appErrors.ErrSessionExpired
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save session")
	}
	return nil
}

var (
	ordinalWords = map[string]int{
		"first": 1, "second": 2, "third": 3, "fourth": 4, "fifth": 5,
		"sixth": 6, "seventh": 7, "eighth": 8, "ninth": 9, "tenth": 10,
	}
	ordinalSuffix = regexp.MustCompile(`^(\d+)(st|nd|rd|th)$`)
	timeRange     = regexp.MustCompile(`(\d{1,2}:\d{2})\s*(?:-|to)\s*(\d{1,2}:\d{2})`)
)

// parseWindowSelection maps "2", "2nd", "second", "last" or "09:00 - 10:00" onto an index of windows.
func parseWindowSelection(raw string, windows []models.AvailableWindow) (int, error) {
	text := strings.ToLower(strings.TrimSpace(raw))
	for _, filler := range []string{"window", "slot", "option", "number", "no.", "the"} {
		text = strings.ReplaceAll(text, filler, " ")
	}
	text = strings.Join(strings.Fields(text), " ")

	if m := timeRange.FindStringSubmatch(text); m != nil {
		start, errStart := timeofday.Parse(m[1])
		end, errEnd := timeofday.Parse(m[2])
		if errStart == nil && errEnd == nil {
			for i, w := range windows {
				if w.WindowStart == start && w.WindowEnd == end {
					return i, nil
				}
			}
		}
		return 0, appErrors.Clone(appErrors.ErrInvalidWindow, fmt.Sprintf("no window matches %q", raw))
	}

	position := 0
	switch {
	case text == "last":
		position = len(windows)
	case ordinalWords[text] > 0:
		position = ordinalWords[text]
	case ordinalSuffix.MatchString(text):
		position, _ = strconv.Atoi(ordinalSuffix.FindStringSubmatch(text)[1])
	default:
		n, err := strconv.Atoi(text)
		if err != nil {
			return 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("could not understand selection %q", raw))
		}
		position = n
	}
	if position < 1 || position > len(windows) {
		return 0, appErrors.Clone(appErrors.ErrInvalidWindow, fmt.Sprintf("choose a window between 1 and %d", len(windows)))
	}
	return position - 1, nil
}
