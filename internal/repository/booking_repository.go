package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/lab-booking-api/internal/models"
	"github.com/noah-isme/lab-booking-api/pkg/timeofday"
)

const bookingSelect = `SELECT b.booking_id, b.window_id, b.test_id, t.test_name, b.doctor_id, b.doctor_name, b.patient_name,
b.patient_mobile, b.booking_date, b.booking_time, b.window_start, b.window_end, b.created_at, b.updated_at
FROM bookings b
JOIN tests t ON t.test_id = b.test_id`

// BookingRepository persists committed bookings.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates the repository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// LockSlot takes a transaction-scoped advisory lock on key. It must run inside a transaction.
func (r *BookingRepository) LockSlot(ctx context.Context, exec sqlx.ExtContext, key string) error {
	if _, err := r.exec(exec).ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
		return fmt.Errorf("lock booking slot: %w", err)
	}
	return nil
}

// CountForSlot counts bookings for a window on a date, ignoring excludeID when set.
func (r *BookingRepository) CountForSlot(ctx context.Context, exec sqlx.ExtContext, windowID string, date timeofday.Date, excludeID string) (int, error) {
	query := `SELECT COUNT(*) FROM bookings WHERE window_id = $1 AND booking_date = $2`
	args := []interface{}{windowID, date}
	if excludeID != "" {
		query += ` AND booking_id <> $3`
		args = append(args, excludeID)
	}
	var count int
	if err := sqlx.GetContext(ctx, r.exec(exec), &count, query, args...); err != nil {
		return 0, fmt.Errorf("count slot bookings: %w", err)
	}
	return count, nil
}

type windowCount struct {
	WindowID string `db:"window_id"`
	Count    int    `db:"booked"`
}

// CountByWindows returns booking counts per window for a date. Windows without bookings are absent.
func (r *BookingRepository) CountByWindows(ctx context.Context, windowIDs []string, date timeofday.Date) (map[string]int, error) {
	counts := make(map[string]int, len(windowIDs))
	if len(windowIDs) == 0 {
		return counts, nil
	}
	const query = `SELECT window_id, COUNT(*) AS booked FROM bookings WHERE booking_date = $1 AND window_id = ANY($2) GROUP BY window_id`
	var rows []windowCount
	if err := r.db.SelectContext(ctx, &rows, query, date, pq.Array(windowIDs)); err != nil {
		return nil, fmt.Errorf("count window bookings: %w", err)
	}
	for _, row := range rows {
		counts[row.WindowID] = row.Count
	}
	return counts, nil
}

// Insert writes a booking.
func (r *BookingRepository) Insert(ctx context.Context, exec sqlx.ExtContext, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	booking.CreatedAt = now
	booking.UpdatedAt = now
	const query = `INSERT INTO bookings (booking_id, window_id, test_id, doctor_id, doctor_name, patient_name, patient_mobile,
booking_date, booking_time, window_start, window_end, created_at, updated_at)
VALUES (:booking_id, :window_id, :test_id, :doctor_id, :doctor_name, :patient_name, :patient_mobile,
:booking_date, :booking_time, :window_start, :window_end, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, booking); err != nil {
		return wrapWrite("insert booking", err)
	}
	return nil
}

// Update rewrites every mutable field of a booking.
func (r *BookingRepository) Update(ctx context.Context, exec sqlx.ExtContext, booking *models.Booking) error {
	booking.UpdatedAt = time.Now().UTC()
	const query = `UPDATE bookings SET window_id = :window_id, test_id = :test_id, doctor_id = :doctor_id, doctor_name = :doctor_name,
patient_name = :patient_name, patient_mobile = :patient_mobile, booking_date = :booking_date, booking_time = :booking_time,
window_start = :window_start, window_end = :window_end, updated_at = :updated_at WHERE booking_id = :booking_id`
	res, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, booking)
	if err != nil {
		return wrapWrite("update booking", err)
	}
	return requireAffected(res, "update booking")
}

// Delete removes a booking, releasing its seat.
func (r *BookingRepository) Delete(ctx context.Context, id string) error {
	if !validIDs(id) {
		return sql.ErrNoRows
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM bookings WHERE booking_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	return requireAffected(res, "delete booking")
}

// FindByID returns a booking or sql.ErrNoRows.
func (r *BookingRepository) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	if !validIDs(id) {
		return nil, sql.ErrNoRows
	}
	var booking models.Booking
	if err := r.db.GetContext(ctx, &booking, bookingSelect+` WHERE b.booking_id = $1`, id); err != nil {
		return nil, wrapRead("find booking", err)
	}
	return &booking, nil
}

func bookingConditions(filter models.BookingFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}
	if filter.TestID != "" {
		conditions = append(conditions, fmt.Sprintf("b.test_id = $%d", len(args)+1))
		args = append(args, filter.TestID)
	}
	if filter.DoctorID != "" {
		conditions = append(conditions, fmt.Sprintf("b.doctor_id = $%d", len(args)+1))
		args = append(args, filter.DoctorID)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("b.booking_date >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("b.booking_date <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(b.patient_name) LIKE $%d OR b.patient_mobile LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// List returns a page of bookings ordered by date then time, with the total count.
func (r *BookingRepository) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error) {
	where, args := bookingConditions(filter)
	page := models.Pagination{Page: filter.Page, PageSize: filter.PageSize}
	page.Normalize()

	query := fmt.Sprintf("%s%s ORDER BY b.booking_date ASC, b.booking_time ASC, b.created_at ASC LIMIT %d OFFSET %d", bookingSelect, where, page.PageSize, page.Offset())
	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM bookings b"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}
	return bookings, total, nil
}

// ListAll returns every booking matching filter without pagination, for exports.
func (r *BookingRepository) ListAll(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error) {
	where, args := bookingConditions(filter)
	query := bookingSelect + where + " ORDER BY b.booking_date ASC, b.booking_time ASC, b.created_at ASC"
	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, fmt.Errorf("list bookings for export: %w", err)
	}
	return bookings, nil
}
