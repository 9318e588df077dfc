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

const adminUserColumns = `id, username, password_hash, role, active, last_login, created_at, updated_at`

// AdminUserRepository provides database access for operator accounts.
type AdminUserRepository struct {
	db *sqlx.DB
}

// NewAdminUserRepository creates the repository.
func NewAdminUserRepository(db *sqlx.DB) *AdminUserRepository {
	return &AdminUserRepository{db: db}
}

// FindByUsername returns an account by username or sql.ErrNoRows.
func (r *AdminUserRepository) FindByUsername(ctx context.Context, username string) (*models.AdminUser, error) {
	query := `SELECT ` + adminUserColumns + ` FROM admin_users WHERE LOWER(username) = LOWER($1) LIMIT 1`
	var user models.AdminUser
	if err := r.db.GetContext(ctx, &user, query, username); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find admin user by username: %w", err)
	}
	return &user, nil
}

// FindByID returns an account by id or sql.ErrNoRows.
func (r *AdminUserRepository) FindByID(ctx context.Context, id string) (*models.AdminUser, error) {
	if !validIDs(id) {
		return nil, sql.ErrNoRows
	}
	query := `SELECT ` + adminUserColumns + ` FROM admin_users WHERE id = $1 LIMIT 1`
	var user models.AdminUser
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, wrapRead("find admin user by id", err)
	}
	return &user, nil
}

// UpdateLastLogin stamps a successful login.
func (r *AdminUserRepository) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	const query = `UPDATE admin_users SET last_login = $2, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, ts); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// UpdatePassword stores a new password hash.
func (r *AdminUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	const query = `UPDATE admin_users SET password_hash = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, passwordHash, updatedAt); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// EnsureSeed inserts the account when no account with that username exists. It reports whether a row was written.
func (r *AdminUserRepository) EnsureSeed(ctx context.Context, user *models.AdminUser) (bool, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	const query = `INSERT INTO admin_users (id, username, password_hash, role, active, created_at, updated_at)
VALUES (:id, :username, :password_hash, :role, :active, :created_at, :updated_at)
ON CONFLICT (username) DO NOTHING`
	res, err := r.db.NamedExecContext(ctx, query, user)
	if err != nil {
		return false, fmt.Errorf("seed admin user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("seed admin user rows affected: %w", err)
	}
	return n > 0, nil
}
