package models

import "time"

// BookingSession holds an in-progress guided booking between assistant turns.
type BookingSession struct {
	Token          string            `json:"token"`
	TestID         string            `json:"test_id"`
	TestName       string            `json:"test_name"`
	BookingDate    string            `json:"booking_date"`
	Windows        []AvailableWindow `json:"windows"`
	SelectedWindow *AvailableWindow  `json:"selected_window,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	ExpiresAt      time.Time         `json:"expires_at"`
}
