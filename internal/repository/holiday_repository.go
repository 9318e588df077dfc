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
	"github.com/noah-isme/lab-booking-api/pkg/timeofday"
)

// holidayTable describes where a scope's overrides live.
type holidayTable struct {
	scope       models.HolidayScope
	table       string
	scopeColumn string
	hasRemarks  bool
}

// HolidayRepository persists date overrides for one scope (lab, test or doctor).
// Each table carries a unique index on (scope, date).
type HolidayRepository struct {
	db  *sqlx.DB
	tbl holidayTable
}

// NewLabHolidayRepository stores facility-wide overrides.
func NewLabHolidayRepository(db *sqlx.DB) *HolidayRepository {
	return &HolidayRepository{db: db, tbl: holidayTable{scope: models.HolidayScopeLab, table: "lab_holidays", hasRemarks: true}}
}

// NewTestHolidayRepository stores per-test overrides.
func NewTestHolidayRepository(db *sqlx.DB) *HolidayRepository {
	return &HolidayRepository{db: db, tbl: holidayTable{scope: models.HolidayScopeTest, table: "test_holidays", scopeColumn: "test_id"}}
}

// NewDoctorHolidayRepository stores per-doctor overrides.
func NewDoctorHolidayRepository(db *sqlx.DB) *HolidayRepository {
	return &HolidayRepository{db: db, tbl: holidayTable{scope: models.HolidayScopeDoctor, table: "doctor_holidays", scopeColumn: "doctor_id"}}
}

// Scope reports which scope the repository serves.
func (r *HolidayRepository) Scope() models.HolidayScope {
	return r.tbl.scope
}

func (r *HolidayRepository) columns() string {
	scope := "'' AS scope_id"
	if r.tbl.scopeColumn != "" {
		scope = r.tbl.scopeColumn + " AS scope_id"
	}
	remarks := "NULL AS remarks"
	if r.tbl.hasRemarks {
		remarks = "remarks"
	}
	return "holiday_id, " + scope + ", date, is_closed, opens_at, closes_at, " + remarks + ", created_at"
}

func (r *HolidayRepository) stamp(rows []models.Holiday) {
	for i := range rows {
		rows[i].Scope = r.tbl.scope
	}
}

// FindForDate returns the override for scopeID on date, or nil when there is none.
// scopeID is ignored for lab holidays.
func (r *HolidayRepository) FindForDate(ctx context.Context, scopeID string, date timeofday.Date) (*models.Holiday, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE date = $1", r.columns(), r.tbl.table)
	args := []interface{}{date}
	if r.tbl.scopeColumn != "" {
		query += fmt.Sprintf(" AND %s = $2", r.tbl.scopeColumn)
		args = append(args, scopeID)
	}
	var holiday models.Holiday
	if err := r.db.GetContext(ctx, &holiday, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find %s holiday: %w", r.tbl.scope, err)
	}
	holiday.Scope = r.tbl.scope
	return &holiday, nil
}

// FindByID returns an override by id or sql.ErrNoRows.
func (r *HolidayRepository) FindByID(ctx context.Context, id string) (*models.Holiday, error) {
	if !validIDs(id) {
		return nil, sql.ErrNoRows
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE holiday_id = $1", r.columns(), r.tbl.table)
	var holiday models.Holiday
	if err := r.db.GetContext(ctx, &holiday, query, id); err != nil {
		return nil, wrapRead(fmt.Sprintf("find %s holiday by id", r.tbl.scope), err)
	}
	holiday.Scope = r.tbl.scope
	return &holiday, nil
}

// List returns overrides ordered by date.
func (r *HolidayRepository) List(ctx context.Context, filter models.HolidayFilter) ([]models.Holiday, error) {
	var conditions []string
	var args []interface{}
	if filter.ScopeID != "" && r.tbl.scopeColumn != "" {
		conditions = append(conditions, fmt.Sprintf("%s = $%d", r.tbl.scopeColumn, len(args)+1))
		args = append(args, filter.ScopeID)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("date >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("date <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}

	query := fmt.Sprintf("SELECT %s FROM %s", r.columns(), r.tbl.table)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY date ASC"

	var holidays []models.Holiday
	if err := r.db.SelectContext(ctx, &holidays, query, args...); err != nil {
		return nil, fmt.Errorf("list %s holidays: %w", r.tbl.scope, err)
	}
	r.stamp(holidays)
	return holidays, nil
}

// Create inserts an override. A second override for the same scope and date yields ErrDuplicate.
func (r *HolidayRepository) Create(ctx context.Context, holiday *models.Holiday) error {
	if holiday.ID == "" {
		holiday.ID = uuid.NewString()
	}
	holiday.Scope = r.tbl.scope
	holiday.CreatedAt = time.Now().UTC()

	cols := []string{"holiday_id", "date", "is_closed", "opens_at", "closes_at", "created_at"}
	vals := []string{":holiday_id", ":date", ":is_closed", ":opens_at", ":closes_at", ":created_at"}
	if r.tbl.scopeColumn != "" {
		cols = append(cols, r.tbl.scopeColumn)
		vals = append(vals, ":scope_id")
	}
	if r.tbl.hasRemarks {
		cols = append(cols, "remarks")
		vals = append(vals, ":remarks")
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", r.tbl.table, strings.Join(cols, ", "), strings.Join(vals, ", "))
	if _, err := r.db.NamedExecContext(ctx, query, holiday); err != nil {
		return wrapWrite(fmt.Sprintf("create %s holiday", r.tbl.scope), err)
	}
	return nil
}

// Update rewrites an override's date and hours.
func (r *HolidayRepository) Update(ctx context.Context, holiday *models.Holiday) error {
	sets := []string{"date = :date", "is_closed = :is_closed", "opens_at = :opens_at", "closes_at = :closes_at"}
	if r.tbl.hasRemarks {
		sets = append(sets, "remarks = :remarks")
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE holiday_id = :holiday_id", r.tbl.table, strings.Join(sets, ", "))
	res, err := r.db.NamedExecContext(ctx, query, holiday)
	if err != nil {
		return wrapWrite(fmt.Sprintf("update %s holiday", r.tbl.scope), err)
	}
	return requireAffected(res, "update holiday")
}

// Delete removes an override.
func (r *HolidayRepository) Delete(ctx context.Context, id string) error {
	if !validIDs(id) {
		return sql.ErrNoRows
	}
	res, err := r.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE holiday_id = $1", r.tbl.table), id)
	if err != nil {
		return fmt.Errorf("delete %s holiday: %w", r.tbl.scope, err)
	}
	return requireAffected(res, "delete holiday")
}
