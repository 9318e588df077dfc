package models

import (
	"time"

	"github.com/noah-isme/lab-booking-api/pkg/timeofday"
)

// HolidayScope names the level an override applies to.
type HolidayScope string

const (
	HolidayScopeLab    HolidayScope = "lab"
	HolidayScopeTest   HolidayScope = "test"
	HolidayScopeDoctor HolidayScope = "doctor"
)

// Holiday is a date-specific override. When not closed, OpensAt/ClosesAt describe the
// interval that remains available that day. ScopeID is empty for lab holidays.
type Holiday struct {
	ID        string           `db:"holiday_id" json:"holiday_id"`
	Scope     HolidayScope     `db:"-" json:"scope"`
	ScopeID   string           `db:"scope_id" json:"scope_id,omitempty"`
	Date      timeofday.Date   `db:"date" json:"date"`
	IsClosed  bool             `db:"is_closed" json:"is_closed"`
	OpensAt   *timeofday.Clock `db:"opens_at" json:"opens_at"`
	ClosesAt  *timeofday.Clock `db:"closes_at" json:"closes_at"`
	Remarks   *string          `db:"remarks" json:"remarks,omitempty"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}

// HolidayFilter narrows holiday listings.
type HolidayFilter struct {
	ScopeID string
	From    *timeofday.Date
	To      *timeofday.Date
}
