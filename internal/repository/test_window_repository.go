package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lab-booking-api/internal/models"
)

const testWindowColumns = `window_id, schedule_id, test_id, window_index, window_start, window_end, max_tests`

// TestWindowRepository stores the generated windows of schedule entries.
type TestWindowRepository struct {
	db *sqlx.DB
}

// NewTestWindowRepository builds the repository.
func NewTestWindowRepository(db *sqlx.DB) *TestWindowRepository {
	return &TestWindowRepository{db: db}
}

func (r *TestWindowRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ListBySchedule returns the windows of a schedule entry ordered by start time.
func (r *TestWindowRepository) ListBySchedule(ctx context.Context, testID, scheduleID string) ([]models.TestWindow, error) {
	if !validIDs(testID, scheduleID) {
		return nil, nil
	}
	query := `SELECT ` + testWindowColumns + ` FROM test_schedule_windows WHERE test_id = $1 AND schedule_id = $2 ORDER BY window_start, window_index`
	var windows []models.TestWindow
	if err := r.db.SelectContext(ctx, &windows, query, testID, scheduleID); err != nil {
		return nil, fmt.Errorf("list schedule windows: %w", err)
	}
	return windows, nil
}

// ListByTest returns every window of a test grouped by schedule entry.
func (r *TestWindowRepository) ListByTest(ctx context.Context, testID string) ([]models.TestWindow, error) {
	if !validIDs(testID) {
		return nil, nil
	}
	query := `SELECT ` + testWindowColumns + ` FROM test_schedule_windows WHERE test_id = $1 ORDER BY schedule_id, window_index`
	var windows []models.TestWindow
	if err := r.db.SelectContext(ctx, &windows, query, testID); err != nil {
		return nil, fmt.Errorf("list test windows: %w", err)
	}
	return windows, nil
}

// FindForSchedule returns a window only when it belongs to both the test and the schedule entry.
func (r *TestWindowRepository) FindForSchedule(ctx context.Context, windowID, testID, scheduleID string) (*models.TestWindow, error) {
	if !validIDs(windowID, testID, scheduleID) {
		return nil, sql.ErrNoRows
	}
	query := `SELECT ` + testWindowColumns + ` FROM test_schedule_windows WHERE window_id = $1 AND test_id = $2 AND schedule_id = $3`
	var window models.TestWindow
	if err := r.db.GetContext(ctx, &window, query, windowID, testID, scheduleID); err != nil {
		return nil, wrapRead("find schedule window", err)
	}
	return &window, nil
}

// DeleteBySchedule removes every window of a schedule entry.
func (r *TestWindowRepository) DeleteBySchedule(ctx context.Context, exec sqlx.ExtContext, scheduleID string) (int64, error) {
	res, err := r.exec(exec).ExecContext(ctx, `DELETE FROM test_schedule_windows WHERE schedule_id = $1`, scheduleID)
	if err != nil {
		return 0, fmt.Errorf("delete schedule windows: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete schedule windows rows affected: %w", err)
	}
	return n, nil
}

// InsertBatch writes the given windows, assigning ids to those without one.
func (r *TestWindowRepository) InsertBatch(ctx context.Context, exec sqlx.ExtContext, windows []models.TestWindow) error {
	if len(windows) == 0 {
		return nil
	}
	target := r.exec(exec)
	const query = `INSERT INTO test_schedule_windows (window_id, schedule_id, test_id, window_index, window_start, window_end, max_tests)
VALUES (:window_id, :schedule_id, :test_id, :window_index, :window_start, :window_end, :max_tests)`
	for i := range windows {
		window := &windows[i]
		if window.ID == "" {
			window.ID = uuid.NewString()
		}
		if _, err := sqlx.NamedExecContext(ctx, target, query, window); err != nil {
			return wrapWrite("insert schedule window", err)
		}
	}
	return nil
}
