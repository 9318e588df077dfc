package models

import (
	"time"

	"github.com/noah-isme/lab-booking-api/pkg/timeofday"
)

// Booking is one committed seat in a test window on a date. Time fields are copied
// from the window when the booking is written.
type Booking struct {
	ID            string          `db:"booking_id" json:"booking_id"`
	WindowID      string          `db:"window_id" json:"window_id"`
	TestID        string          `db:"test_id" json:"test_id"`
	TestName      string          `db:"test_name" json:"test_name"`
	DoctorID      *string         `db:"doctor_id" json:"doctor_id,omitempty"`
	DoctorName    *string         `db:"doctor_name" json:"doctor_name,omitempty"`
	PatientName   string          `db:"patient_name" json:"patient_name"`
	PatientMobile string          `db:"patient_mobile" json:"patient_mobile"`
	BookingDate   timeofday.Date  `db:"booking_date" json:"booking_date"`
	BookingTime   timeofday.Clock `db:"booking_time" json:"booking_time"`
	WindowStart   timeofday.Clock `db:"window_start" json:"window_start"`
	WindowEnd     timeofday.Clock `db:"window_end" json:"window_end"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// BookingFilter narrows booking listings.
type BookingFilter struct {
	TestID   string
	DoctorID string
	From     *timeofday.Date
	To       *timeofday.Date
	Search   string
	Page     int
	PageSize int
}

// AvailableWindow is one window of a day with its remaining seats.
type AvailableWindow struct {
	WindowID       string          `json:"window_id"`
	WindowStart    timeofday.Clock `json:"window_start"`
	WindowEnd      timeofday.Clock `json:"window_end"`
	AvailableSeats int             `json:"available_slots"`
}

// CreateBookingRequest is the payload for reserving a seat.
type CreateBookingRequest struct {
	TestID        string  `json:"test_id" validate:"required"`
	WindowID      string  `json:"window_id" validate:"required"`
	BookingDate   string  `json:"booking_date" validate:"required,datetime=2006-01-02"`
	PatientName   string  `json:"patient_name" validate:"required,max=120"`
	PatientMobile string  `json:"patient_mobile" validate:"required,min=7,max=20"`
	DoctorID      *string `json:"doctor_id,omitempty"`
}

// UpdateBookingRequest moves or edits an existing booking.
type UpdateBookingRequest = CreateBookingRequest

// BookingResult is returned after a successful create or update.
type BookingResult struct {
	BookingID   string          `json:"booking_id"`
	TestName    string          `json:"test_name"`
	DoctorName  *string         `json:"doctor_name"`
	BookingDate timeofday.Date  `json:"booking_date"`
	BookingTime timeofday.Clock `json:"booking_time"`
	WindowStart timeofday.Clock `json:"window_start"`
	WindowEnd   timeofday.Clock `json:"window_end"`
}
