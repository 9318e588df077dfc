package models

import (
	"time"

	"github.com/noah-isme/lab-booking-api/pkg/timeofday"
)

// TestSchedule is the weekly opening rule of a test for one weekday (Monday=0).
type TestSchedule struct {
	ID        string           `db:"schedule_id" json:"schedule_id"`
	TestID    string           `db:"test_id" json:"test_id"`
	DayOfWeek int              `db:"day_of_week" json:"day_of_week"`
	OpensAt   *timeofday.Clock `db:"opens_at" json:"opens_at"`
	ClosesAt  *timeofday.Clock `db:"closes_at" json:"closes_at"`
	IsClosed  bool             `db:"is_closed" json:"is_closed"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// WorkingMinutes returns closes-opens, or 0 when the entry has no usable hours.
func (s TestSchedule) WorkingMinutes() int {
	if s.IsClosed || s.OpensAt == nil || s.ClosesAt == nil {
		return 0
	}
	if diff := s.ClosesAt.Minutes() - s.OpensAt.Minutes(); diff > 0 {
		return diff
	}
	return 0
}

// TestWindow is one bookable sub-interval of a schedule entry with its base capacity.
type TestWindow struct {
	ID          string          `db:"window_id" json:"window_id"`
	ScheduleID  string          `db:"schedule_id" json:"schedule_id"`
	TestID      string          `db:"test_id" json:"test_id"`
	Index       int             `db:"window_index" json:"window_index"`
	WindowStart timeofday.Clock `db:"window_start" json:"window_start"`
	WindowEnd   timeofday.Clock `db:"window_end" json:"window_end"`
	MaxTests    int             `db:"max_tests" json:"max_tests"`
}

// LengthMinutes returns end-start.
func (w TestWindow) LengthMinutes() int {
	return w.WindowEnd.Minutes() - w.WindowStart.Minutes()
}

// LabScheduleDay stores the laboratory's own weekly hours.
type LabScheduleDay struct {
	DayOfWeek int              `db:"day_of_week" json:"day_of_week"`
	OpensAt   *timeofday.Clock `db:"opens_at" json:"opens_at"`
	ClosesAt  *timeofday.Clock `db:"closes_at" json:"closes_at"`
	IsClosed  bool             `db:"is_closed" json:"is_closed"`
}
