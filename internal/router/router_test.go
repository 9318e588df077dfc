package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lab-booking-api/internal/handler"
	"github.com/noah-isme/lab-booking-api/internal/middleware"
	"github.com/noah-isme/lab-booking-api/internal/models"
	"github.com/noah-isme/lab-booking-api/internal/service"
	appErrors "github.com/noah-isme/lab-booking-api/pkg/errors"
)

type tokensStub map[string]*models.JWTClaims

func (t tokensStub) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := t[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

type availabilityStub struct{}

func (availabilityStub) Resolve(ctx context.Context, testID, date string) ([]models.AvailableWindow, error) {
	if testID != "t-1" {
		return nil, appErrors.ErrTestNotFound
	}
	return []models.AvailableWindow{}, nil
}

type bookingsStub struct{}

func (bookingsStub) Create(ctx context.Context, req models.CreateBookingRequest) (*models.BookingResult, error) {
	return &models.BookingResult{}, nil
}

func (bookingsStub) Update(ctx context.Context, id string, req models.UpdateBookingRequest) (*models.BookingResult, error) {
	return &models.BookingResult{}, nil
}

func (bookingsStub) Delete(ctx context.Context, id string) error { return nil }

func (bookingsStub) Get(ctx context.Context, id string) (*models.Booking, error) {
	return &models.Booking{ID: id}, nil
}

func (bookingsStub) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, *models.Pagination, error) {
	return []models.Booking{}, &models.Pagination{Page: 1, PageSize: 20}, nil
}

func newTestEngine(limiter *middleware.RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	opts := Options{
		APIPrefix: "/api/v1/",
		Env:       "test",
		Metrics:   service.NewMetricsService(),
		Auth: tokensStub{
			"admin": {UserID: "u-1", Username: "admin", Role: models.RoleAdmin},
			"staff": {UserID: "u-2", Username: "desk", Role: models.RoleStaff},
		},
		RateLimiter: limiter,
	}
	h := Handlers{
		Availability: handler.NewAvailabilityHandler(availabilityStub{}),
		Bookings:     handler.NewBookingHandler(bookingsStub{}),
		Tests:        handler.NewLabTestHandler(nil),
		Doctors:      handler.NewDoctorHandler(nil, nil),
		Schedules:    handler.NewScheduleHandler(nil, nil, nil, nil),
		Auth:         handler.NewAuthHandler(nil),
		Assistant:    handler.NewAssistantHandler(nil),
		Exports:      handler.NewExportHandler(nil),
		Metrics:      handler.NewMetricsHandler(opts.Metrics, nil),
	}
	return New(opts, h)
}

func serve(r *gin.Engine, method, path, token string) int {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec.Code
}

func TestOperationalRoutes(t *testing.T) {
	r := newTestEngine(nil)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/health", ""))
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/ready", ""))
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/metrics", ""))
}

func TestPublicAvailabilityUnderPrefix(t *testing.T) {
	r := newTestEngine(nil)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api/v1/available-slots/t-1/2025-01-06", ""))
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/api/v1/available-slots/t-9/2025-01-06", ""))
}

func TestAdminRoutesRequireRoles(t *testing.T) {
	r := newTestEngine(nil)
	cases := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"no token", http.MethodGet, "/api/v1/admin/bookings", "", http.StatusUnauthorized},
		{"staff lists bookings", http.MethodGet, "/api/v1/admin/bookings", "staff", http.StatusOK},
		{"admin reads booking", http.MethodGet, "/api/v1/admin/bookings/b-1", "admin", http.StatusOK},
		{"staff cannot edit catalog", http.MethodPost, "/api/v1/admin/tests", "staff", http.StatusForbidden},
		{"staff cannot touch lab hours", http.MethodPut, "/api/v1/admin/lab-schedule/0", "staff", http.StatusForbidden},
		{"staff cannot export", http.MethodPost, "/api/v1/admin/exports", "staff", http.StatusForbidden},
		{"staff cannot read summary", http.MethodGet, "/api/v1/admin/metrics/summary", "staff", http.StatusForbidden},
		{"admin reads summary", http.MethodGet, "/api/v1/admin/metrics/summary", "admin", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, serve(r, tc.method, tc.path, tc.token))
		})
	}
}

func TestBookingCreationIsRateLimited(t *testing.T) {
	r := newTestEngine(middleware.NewRateLimiter(0.001, 1, nil))
	body := `{"test_id":"t-1","window_id":"w-1","booking_date":"2025-01-06","patient_name":"Ana","patient_mobile":"0812345678"}`

	post := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	require.NotEqual(t, http.StatusTooManyRequests, post())
	assert.Equal(t, http.StatusTooManyRequests, post())
}
