package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lab-booking-api/internal/models"
)

// LabScheduleRepository reads and writes the laboratory's weekly hours.
type LabScheduleRepository struct {
	db *sqlx.DB
}

// NewLabScheduleRepository builds the repository.
func NewLabScheduleRepository(db *sqlx.DB) *LabScheduleRepository {
	return &LabScheduleRepository{db: db}
}

// List returns all seven days ordered Monday first.
func (r *LabScheduleRepository) List(ctx context.Context) ([]models.LabScheduleDay, error) {
	const query = `SELECT day_of_week, opens_at, closes_at, is_closed FROM lab_schedule ORDER BY day_of_week`
	var days []models.LabScheduleDay
	if err := r.db.SelectContext(ctx, &days, query); err != nil {
		return nil, fmt.Errorf("list lab schedule: %w", err)
	}
	return days, nil
}

// Upsert replaces the hours of one weekday.
func (r *LabScheduleRepository) Upsert(ctx context.Context, day *models.LabScheduleDay) error {
	const query = `INSERT INTO lab_schedule (day_of_week, opens_at, closes_at, is_closed)
VALUES (:day_of_week, :opens_at, :closes_at, :is_closed)
ON CONFLICT (day_of_week) DO UPDATE
SET opens_at = EXCLUDED.opens_at,
    closes_at = EXCLUDED.closes_at,
    is_closed = EXCLUDED.is_closed`
	if _, err := r.db.NamedExecContext(ctx, query, day); err != nil {
		return fmt.Errorf("upsert lab schedule: %w", err)
	}
	return nil
}
