package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/lab-booking-api/internal/models"
	appErrors "github.com/noah-isme/lab-booking-api/pkg/errors"
)

type mockAdminRepo struct {
	users            map[string]*models.AdminUser
	lastLoginUpdated bool
}

func newMockAdminRepo(t *testing.T, username, password string, active bool) *mockAdminRepo {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &mockAdminRepo{users: map[string]*models.AdminUser{
		"user-1": {ID: "user-1", Username: username, PasswordHash: string(hash), Role: models.RoleAdmin, Active: active},
	}}
}

func (m *mockAdminRepo) FindByUsername(_ context.Context, username string) (*models.AdminUser, error) {
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAdminRepo) FindByID(_ context.Context, id string) (*models.AdminUser, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAdminRepo) UpdateLastLogin(context.Context, string, time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func (m *mockAdminRepo) UpdatePassword(_ context.Context, id, passwordHash string, _ time.Time) error {
	m.users[id].PasswordHash = passwordHash
	return nil
}

func (m *mockAdminRepo) EnsureSeed(_ context.Context, user *models.AdminUser) (bool, error) {
	if existing, _ := m.FindByUsername(context.Background(), user.Username); existing != nil {
		return false, nil
	}
	user.ID = "seeded"
	m.users[user.ID] = user
	return true, nil
}

func newAuthServiceForTest(repo *mockAdminRepo) *AuthService {
	return NewAuthService(repo, nil, nil, AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Hour, Issuer: "lab-booking"})
}

func TestAuthServiceLoginIssuesValidToken(t *testing.T) {
	repo := newMockAdminRepo(t, "admin", "Password123", true)
	svc := newAuthServiceForTest(repo)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Username: " Admin ", Password: "Password123"})
	require.NoError(t, err)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, "admin", resp.User.Username)
	assert.True(t, repo.lastLoginUpdated)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)

	_, err = NewAuthService(repo, nil, nil, AuthConfig{AccessTokenSecret: "other"}).ValidateToken(resp.AccessToken)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestAuthServiceLoginRejectsBadCredentials(t *testing.T) {
	repo := newMockAdminRepo(t, "admin", "Password123", true)
	svc := newAuthServiceForTest(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "admin", Password: "wrong"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
	_, err = svc.Login(context.Background(), models.LoginRequest{Username: "ghost", Password: "Password123"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
	_, err = svc.Login(context.Background(), models.LoginRequest{Username: "admin"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	inactive := newAuthServiceForTest(newMockAdminRepo(t, "admin", "Password123", false))
	_, err = inactive.Login(context.Background(), models.LoginRequest{Username: "admin", Password: "Password123"})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestAuthServiceChangePassword(t *testing.T) {
	repo := newMockAdminRepo(t, "admin", "Password123", true)
	svc := newAuthServiceForTest(repo)

	err := svc.ChangePassword(context.Background(), "user-1", models.ChangePasswordRequest{OldPassword: "nope", NewPassword: "NewPassword1"})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	require.NoError(t, svc.ChangePassword(context.Background(), "user-1", models.ChangePasswordRequest{OldPassword: "Password123", NewPassword: "NewPassword1"}))
	_, err = svc.Login(context.Background(), models.LoginRequest{Username: "admin", Password: "NewPassword1"})
	assert.NoError(t, err)

	err = svc.ChangePassword(context.Background(), "user-1", models.ChangePasswordRequest{OldPassword: "NewPassword1", NewPassword: "short"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestAuthServiceSeedAdminIsIdempotent(t *testing.T) {
	repo := &mockAdminRepo{users: map[string]*models.AdminUser{}}
	svc := newAuthServiceForTest(repo)

	created, err := svc.SeedAdmin(context.Background(), "Admin", "Password123")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.SeedAdmin(context.Background(), "admin", "Other")
	require.NoError(t, err)
	assert.False(t, created)

	_, err = svc.Login(context.Background(), models.LoginRequest{Username: "admin", Password: "Password123"})
	assert.NoError(t, err)
}
