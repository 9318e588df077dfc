package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/noah-isme/lab-booking-api/internal/models"
	appErrors "github.com/noah-isme/lab-booking-api/pkg/errors"
	"github.com/noah-isme/lab-booking-api/pkg/timeofday"
)

type doctorReader interface {
	FindByID(ctx context.Context, id string) (*models.Doctor, error)
}

type slotRequest struct {
	TestID           string
	WindowID         string
	Date             timeofday.Date
	DoctorID         *string
	ExcludeBookingID string
}

// slotPlan is everything a booking write needs once the request passed validation.
type slotPlan struct {
	Test             *models.LabTest
	Schedule         *models.TestSchedule
	Window           *models.TestWindow
	Doctor           *models.Doctor
	Capacity         int
	BookingTime      timeofday.Clock
	ExcludeBookingID string
}

// lockKey identifies the slot a booking competes for.
func (p *slotPlan) lockKey(date timeofday.Date) string {
	return p.Window.ID + "|" + date.String()
}

// slotValidator runs the checks shared by booking create and update, up to but not
// including the seat count.
type slotValidator struct {
	tests          labTestReader
	schedules      scheduleDayReader
	windows        windowReader
	labHolidays    holidayReader
	testHolidays   holidayReader
	doctorHolidays holidayReader
	assignments    currentAssignmentReader
	doctors        doctorReader
}

func internalErr(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func (v *slotValidator) Validate(ctx context.Context, req slotRequest) (*slotPlan, error) {
	test, err := v.tests.FindByID(ctx, req.TestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrTestNotFound
		}
		return nil, internalErr(err, "failed to load test")
	}

	schedule, err := v.schedules.FindByTestAndDay(ctx, nil, test.ID, req.Date.Weekday())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotScheduledThisDay
		}
		return nil, internalErr(err, "failed to load schedule")
	}
	if schedule.IsClosed {
		return nil, appErrors.ErrClosedThisDay
	}

	window, err := v.windows.FindForSchedule(ctx, req.WindowID, test.ID, schedule.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrInvalidWindow
		}
		return nil, internalErr(err, "failed to load window")
	}

	plan := &slotPlan{
		Test:             test,
		Schedule:         schedule,
		Window:           window,
		Capacity:         window.MaxTests,
		BookingTime:      window.WindowStart,
		ExcludeBookingID: req.ExcludeBookingID,
	}

	lab, err := v.labHolidays.FindForDate(ctx, "", req.Date)
	if err != nil {
		return nil, internalErr(err, "failed to load lab holiday")
	}
	if lab != nil && lab.IsClosed {
		return nil, appErrors.ErrLabClosed
	}
	plan.Capacity = applyOverride(plan.Capacity, *window, lab)

	testHoliday, err := v.testHolidays.FindForDate(ctx, test.ID, req.Date)
	if err != nil {
		return nil, internalErr(err, "failed to load test holiday")
	}
	if testHoliday != nil && testHoliday.IsClosed {
		return nil, appErrors.ErrTestClosed
	}
	plan.Capacity = applyOverride(plan.Capacity, *window, testHoliday)

	if !test.RequiresDoctor {
		return plan, nil
	}
	doctor, err := v.resolveDoctor(ctx, test.ID, req.DoctorID)
	if err != nil {
		return nil, err
	}
	doctorHoliday, err := v.doctorHolidays.FindForDate(ctx, doctor.ID, req.Date)
	if err != nil {
		return nil, internalErr(err, "failed to load doctor holiday")
	}
	if doctorHoliday != nil && doctorHoliday.IsClosed {
		return nil, appErrors.ErrDoctorUnavailable
	}
	plan.Capacity = applyOverride(plan.Capacity, *window, doctorHoliday)
	plan.Doctor = doctor
	return plan, nil
}

// resolveDoctor prefers the requested doctor and falls back to the test's current assignment.
func (v *slotValidator) resolveDoctor(ctx context.Context, testID string, requested *string) (*models.Doctor, error) {
	doctorID := ""
	if requested != nil {
		doctorID = *requested
	}
	if doctorID == "" {
		assignment, err := v.assignments.CurrentForTest(ctx, testID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.ErrDoctorNotFound
			}
			return nil, internalErr(err, "failed to load doctor assignment")
		}
		doctorID = assignment.DoctorID
	}

	doctor, err := v.doctors.FindByID(ctx, doctorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrDoctorNotFound, "requested doctor does not exist")
		}
		return nil, internalErr(err, "failed to load doctor")
	}
	return doctor, nil
}
