package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lab-booking-api/internal/models"
)

const assignmentSelect = `SELECT a.assignment_id, a.test_id, a.doctor_id, t.test_name, d.doctor_name, a.created_at
FROM test_doctor_assignments a
JOIN tests t ON t.test_id = a.test_id
JOIN doctors d ON d.doctor_id = a.doctor_id`

// AssignmentRepository maps tests onto the doctors that perform them.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository creates the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// List returns assignments, optionally for one test, oldest first.
func (r *AssignmentRepository) List(ctx context.Context, testID string) ([]models.TestDoctorAssignment, error) {
	query := assignmentSelect
	var args []interface{}
	if testID != "" {
		query += ` WHERE a.test_id = $1`
		args = append(args, testID)
	}
	query += ` ORDER BY a.created_at ASC, a.assignment_id ASC`

	var items []models.TestDoctorAssignment
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return items, nil
}

// CurrentForTest returns the assignment in effect for a test (the earliest created) or sql.ErrNoRows.
func (r *AssignmentRepository) CurrentForTest(ctx context.Context, testID string) (*models.TestDoctorAssignment, error) {
	if !validIDs(testID) {
		return nil, sql.ErrNoRows
	}
	query := assignmentSelect + ` WHERE a.test_id = $1 ORDER BY a.created_at ASC, a.assignment_id ASC LIMIT 1`
	var item models.TestDoctorAssignment
	if err := r.db.GetContext(ctx, &item, query, testID); err != nil {
		return nil, wrapRead("find current assignment", err)
	}
	return &item, nil
}

// Exists reports whether the doctor is already assigned to the test.
func (r *AssignmentRepository) Exists(ctx context.Context, testID, doctorID string) (bool, error) {
	if !validIDs(testID, doctorID) {
		return false, nil
	}
	const query = `SELECT 1 FROM test_doctor_assignments WHERE test_id = $1 AND doctor_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, testID, doctorID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check assignment: %w", err)
	}
	return true, nil
}

// Create inserts an assignment; the (doctor, test) pair is unique.
func (r *AssignmentRepository) Create(ctx context.Context, item *models.TestDoctorAssignment) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO test_doctor_assignments (assignment_id, test_id, doctor_id, created_at)
VALUES (:assignment_id, :test_id, :doctor_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return wrapWrite("create assignment", err)
	}
	return nil
}

// Delete removes an assignment.
func (r *AssignmentRepository) Delete(ctx context.Context, id string) error {
	if !validIDs(id) {
		return sql.ErrNoRows
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM test_doctor_assignments WHERE assignment_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	return requireAffected(res, "delete assignment")
}
