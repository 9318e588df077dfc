package models

import "time"

// Doctor is a staff member who may be required by a test.
type Doctor struct {
	ID             string    `db:"doctor_id" json:"doctor_id"`
	Name           string    `db:"doctor_name" json:"doctor_name"`
	Specialization string    `db:"specialization" json:"specialization"`
	ContactInfo    *string   `db:"contact_info" json:"contact_info,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// TestDoctorAssignment maps a test to the doctor performing it. Names are read by join.
type TestDoctorAssignment struct {
	ID         string    `db:"assignment_id" json:"assignment_id"`
	TestID     string    `db:"test_id" json:"test_id"`
	DoctorID   string    `db:"doctor_id" json:"doctor_id"`
	TestName   string    `db:"test_name" json:"test_name,omitempty"`
	DoctorName string    `db:"doctor_name" json:"doctor_name,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
