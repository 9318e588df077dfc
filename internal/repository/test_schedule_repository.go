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

const testScheduleColumns = `schedule_id, test_id, day_of_week, opens_at, closes_at, is_closed, created_at, updated_at`

// TestScheduleRepository manages the weekly schedule entries of tests.
type TestScheduleRepository struct {
	db *sqlx.DB
}

// NewTestScheduleRepository builds the repository.
func NewTestScheduleRepository(db *sqlx.DB) *TestScheduleRepository {
	return &TestScheduleRepository{db: db}
}

func (r *TestScheduleRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindByID returns a schedule entry or sql.ErrNoRows.
func (r *TestScheduleRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.TestSchedule, error) {
	if !validIDs(id) {
		return nil, sql.ErrNoRows
	}
	query := `SELECT ` + testScheduleColumns + ` FROM test_schedule WHERE schedule_id = $1`
	var schedule models.TestSchedule
	if err := sqlx.GetContext(ctx, r.exec(exec), &schedule, query, id); err != nil {
		return nil, wrapRead("find test schedule", err)
	}
	return &schedule, nil
}

// FindByTestAndDay returns the entry for a test on a weekday (Monday=0) or sql.ErrNoRows.
func (r *TestScheduleRepository) FindByTestAndDay(ctx context.Context, exec sqlx.ExtContext, testID string, day int) (*models.TestSchedule, error) {
	if !validIDs(testID) {
		return nil, sql.ErrNoRows
	}
	query := `SELECT ` + testScheduleColumns + ` FROM test_schedule WHERE test_id = $1 AND day_of_week = $2`
	var schedule models.TestSchedule
	if err := sqlx.GetContext(ctx, r.exec(exec), &schedule, query, testID, day); err != nil {
		return nil, wrapRead("find test schedule for day", err)
	}
	return &schedule, nil
}

// List returns schedule entries, optionally for one test, ordered by test and weekday.
func (r *TestScheduleRepository) List(ctx context.Context, testID string) ([]models.TestSchedule, error) {
	query := `SELECT ` + testScheduleColumns + ` FROM test_schedule`
	var args []interface{}
	if testID != "" {
		query += ` WHERE test_id = $1`
		args = append(args, testID)
	}
	query += ` ORDER BY test_id, day_of_week`

	var schedules []models.TestSchedule
	if err := r.db.SelectContext(ctx, &schedules, query, args...); err != nil {
		return nil, fmt.Errorf("list test schedules: %w", err)
	}
	return schedules, nil
}

// Create inserts a schedule entry. A second entry for the same test and weekday yields ErrDuplicate.
func (r *TestScheduleRepository) Create(ctx context.Context, exec sqlx.ExtContext, schedule *models.TestSchedule) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	schedule.CreatedAt = now
	schedule.UpdatedAt = now

	const query = `INSERT INTO test_schedule (schedule_id, test_id, day_of_week, opens_at, closes_at, is_closed, created_at, updated_at)
VALUES (:schedule_id, :test_id, :day_of_week, :opens_at, :closes_at, :is_closed, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, schedule); err != nil {
		return wrapWrite("create test schedule", err)
	}
	return nil
}

// Update rewrites the timing of a schedule entry.
func (r *TestScheduleRepository) Update(ctx context.Context, exec sqlx.ExtContext, schedule *models.TestSchedule) error {
	schedule.UpdatedAt = time.Now().UTC()
	const query = `UPDATE test_schedule SET day_of_week = :day_of_week, opens_at = :opens_at, closes_at = :closes_at,
is_closed = :is_closed, updated_at = :updated_at WHERE schedule_id = :schedule_id`
	res, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, schedule)
	if err != nil {
		return wrapWrite("update test schedule", err)
	}
	return requireAffected(res, "update test schedule")
}

// Delete removes a schedule entry and, by cascade, its windows.
func (r *TestScheduleRepository) Delete(ctx context.Context, id string) error {
	if !validIDs(id) {
		return sql.ErrNoRows
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM test_schedule WHERE schedule_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete test schedule: %w", err)
	}
	return requireAffected(res, "delete test schedule")
}
