package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lab-booking-api/internal/models"
)

const doctorColumns = `doctor_id, doctor_name, specialization, contact_info, created_at, updated_at`

// DoctorRepository handles persistence for doctors.
type DoctorRepository struct {
	db *sqlx.DB
}

// NewDoctorRepository creates the repository.
func NewDoctorRepository(db *sqlx.DB) *DoctorRepository {
	return &DoctorRepository{db: db}
}

// List returns doctors ordered by name, optionally filtered by a name search.
func (r *DoctorRepository) List(ctx context.Context, search string) ([]models.Doctor, error) {
	query := `SELECT ` + doctorColumns + ` FROM doctors`
	var args []interface{}
	if search != "" {
		query += ` WHERE LOWER(doctor_name) LIKE $1`
		args = append(args, "%"+strings.ToLower(search)+"%")
	}
	query += ` ORDER BY doctor_name ASC`

	var doctors []models.Doctor
	if err := r.db.SelectContext(ctx, &doctors, query, args...); err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	return doctors, nil
}

// FindByID returns a doctor or sql.ErrNoRows.
func (r *DoctorRepository) FindByID(ctx context.Context, id string) (*models.Doctor, error) {
	if !validIDs(id) {
		return nil, sql.ErrNoRows
	}
	query := `SELECT ` + doctorColumns + ` FROM doctors WHERE doctor_id = $1`
	var doctor models.Doctor
	if err := r.db.GetContext(ctx, &doctor, query, id); err != nil {
		return nil, wrapRead("find doctor", err)
	}
	return &doctor, nil
}

// Create persists a doctor.
func (r *DoctorRepository) Create(ctx context.Context, doctor *models.Doctor) error {
	if doctor.ID == "" {
		doctor.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	doctor.CreatedAt = now
	doctor.UpdatedAt = now
	const query = `INSERT INTO doctors (doctor_id, doctor_name, specialization, contact_info, created_at, updated_at)
VALUES (:doctor_id, :doctor_name, :specialization, :contact_info, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, doctor); err != nil {
		return wrapWrite("create doctor", err)
	}
	return nil
}

// Update modifies a doctor. Bookings keep the name recorded when they were made.
func (r *DoctorRepository) Update(ctx context.Context, doctor *models.Doctor) error {
	doctor.UpdatedAt = time.Now().UTC()
	const query = `UPDATE doctors SET doctor_name = :doctor_name, specialization = :specialization, contact_info = :contact_info,
updated_at = :updated_at WHERE doctor_id = :doctor_id`
	res, err := r.db.NamedExecContext(ctx, query, doctor)
	if err != nil {
		return wrapWrite("update doctor", err)
	}
	return requireAffected(res, "update doctor")
}

// Delete removes a doctor with their holidays and assignments.
func (r *DoctorRepository) Delete(ctx context.Context, id string) error {
	if !validIDs(id) {
		return sql.ErrNoRows
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM doctors WHERE doctor_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete doctor: %w", err)
	}
	return requireAffected(res, "delete doctor")
}
