package models

import (
	"time"

	"github.com/noah-isme/lab-booking-api/pkg/timeofday"
)

// TestCategory groups tests for display.
type TestCategory string

const (
	TestCategoryNormal  TestCategory = "normal"
	TestCategorySpecial TestCategory = "special"
)

// LabTest is a bookable diagnostic test.
type LabTest struct {
	ID              string       `db:"test_id" json:"test_id"`
	Name            string       `db:"test_name" json:"test_name"`
	Category        TestCategory `db:"category" json:"category"`
	RequiresBooking bool         `db:"requires_booking" json:"requires_booking"`
	RequiresDoctor  bool         `db:"requires_doctor" json:"requires_doctor"`
	Price           float64      `db:"price" json:"price"`
	Duration        *string      `db:"duration" json:"duration,omitempty"`
	CreatedAt       time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time    `db:"updated_at" json:"updated_at"`
}

// DurationMinutes parses the free-text duration, falling back to one minute.
func (t LabTest) DurationMinutes() int {
	if t.Duration == nil {
		return 1
	}
	if minutes, ok := timeofday.ParseDurationMinutes(*t.Duration); ok {
		return minutes
	}
	return 1
}

// LabTestFilter captures supported filters for listing tests.
type LabTestFilter struct {
	Category       TestCategory
	RequiresDoctor *bool
	Search         string
	Page           int
	PageSize       int
}
