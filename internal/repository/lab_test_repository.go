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

const labTestColumns = `test_id, test_name, category, requires_booking, requires_doctor, price, duration, created_at, updated_at`

// LabTestRepository handles persistence for bookable tests.
type LabTestRepository struct {
	db *sqlx.DB
}

// NewLabTestRepository creates a new repository instance.
func NewLabTestRepository(db *sqlx.DB) *LabTestRepository {
	return &LabTestRepository{db: db}
}

// List returns tests matching filters with the total count.
func (r *LabTestRepository) List(ctx context.Context, filter models.LabTestFilter) ([]models.LabTest, int, error) {
	base := "FROM tests WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)+1))
		args = append(args, filter.Category)
	}
	if filter.RequiresDoctor != nil {
		conditions = append(conditions, fmt.Sprintf("requires_doctor = $%d", len(args)+1))
		args = append(args, *filter.RequiresDoctor)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(test_name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := models.Pagination{Page: filter.Page, PageSize: filter.PageSize}
	page.Normalize()

	query := fmt.Sprintf("SELECT %s %s ORDER BY test_name ASC LIMIT %d OFFSET %d", labTestColumns, base, page.PageSize, page.Offset())
	var tests []models.LabTest
	if err := r.db.SelectContext(ctx, &tests, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list tests: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count tests: %w", err)
	}
	return tests, total, nil
}

// FindByID returns a test by id or sql.ErrNoRows.
func (r *LabTestRepository) FindByID(ctx context.Context, id string) (*models.LabTest, error) {
	if !validIDs(id) {
		return nil, sql.ErrNoRows
	}
	query := `SELECT ` + labTestColumns + ` FROM tests WHERE test_id = $1`
	var test models.LabTest
	if err := r.db.GetContext(ctx, &test, query, id); err != nil {
		return nil, wrapRead("find test", err)
	}
	return &test, nil
}

// ExistsByName checks name uniqueness, case-insensitively.
func (r *LabTestRepository) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	query := "SELECT 1 FROM tests WHERE LOWER(test_name) = LOWER($1)"
	args := []interface{}{name}
	if excludeID != "" {
		query += " AND test_id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check test name: %w", err)
	}
	return true, nil
}

// Create persists a new test.
func (r *LabTestRepository) Create(ctx context.Context, test *models.LabTest) error {
	if test.ID == "" {
		test.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	test.CreatedAt = now
	test.UpdatedAt = now

	const query = `INSERT INTO tests (test_id, test_name, category, requires_booking, requires_doctor, price, duration, created_at, updated_at)
VALUES (:test_id, :test_name, :category, :requires_booking, :requires_doctor, :price, :duration, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, test); err != nil {
		return wrapWrite("create test", err)
	}
	return nil
}

// Update modifies a test. Returns sql.ErrNoRows when the id is unknown.
func (r *LabTestRepository) Update(ctx context.Context, test *models.LabTest) error {
	test.UpdatedAt = time.Now().UTC()
	const query = `UPDATE tests SET test_name = :test_name, category = :category, requires_booking = :requires_booking,
requires_doctor = :requires_doctor, price = :price, duration = :duration, updated_at = :updated_at WHERE test_id = :test_id`
	res, err := r.db.NamedExecContext(ctx, query, test)
	if err != nil {
		return wrapWrite("update test", err)
	}
	return requireAffected(res, "update test")
}

// Delete removes a test; schedules, windows, holidays and bookings cascade.
func (r *LabTestRepository) Delete(ctx context.Context, id string) error {
	if !validIDs(id) {
		return sql.ErrNoRows
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM tests WHERE test_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete test: %w", err)
	}
	return requireAffected(res, "delete test")
}

func requireAffected(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
