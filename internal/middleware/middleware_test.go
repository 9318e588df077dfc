package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lab-booking-api/internal/models"
	"github.com/noah-isme/lab-booking-api/internal/service"
	appErrors "github.com/noah-isme/lab-booking-api/pkg/errors"
)

type validatorStub map[string]*models.JWTClaims

func (v validatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	claims, ok := v[token]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return claims, nil
}

func newProtectedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	tokens := validatorStub{
		"admin-token": {UserID: "u-1", Username: "admin", Role: models.RoleAdmin},
		"staff-token": {UserID: "u-2", Username: "desk", Role: models.RoleStaff},
	}
	r := gin.New()
	r.GET("/admin", JWT(tokens), RequireRoles(models.RoleAdmin), func(c *gin.Context) {
		c.String(http.StatusOK, Claims(c).Username)
	})
	return r
}

func TestJWTAndRoles(t *testing.T) {
	r := newProtectedRouter()
	cases := []struct {
		header string
		want   int
	}{
		{"", http.StatusUnauthorized},
		{"Token admin-token", http.StatusUnauthorized},
		{"Bearer nope", http.StatusUnauthorized},
		{"Bearer staff-token", http.StatusForbidden},
		{"bearer admin-token", http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, tc.want, rec.Code, tc.header)
	}
}

func TestRequireRolesWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", RequireRoles(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRateLimiterPerClient(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := NewRateLimiter(1, 2, nil)
	now := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	r := gin.New()
	r.POST("/bookings", limiter.Handler(), func(c *gin.Context) { c.Status(http.StatusCreated) })

	hit := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/bookings", nil)
		req.RemoteAddr = ip + ":5000"
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusCreated, hit("10.0.0.1"))
	assert.Equal(t, http.StatusCreated, hit("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, hit("10.0.0.1"))
	assert.Equal(t, http.StatusCreated, hit("10.0.0.2"))

	now = now.Add(time.Second)
	assert.Equal(t, http.StatusCreated, hit("10.0.0.1"))
}

func TestRateLimiterDisabled(t *testing.T) {
	limiter := NewRateLimiter(0, 0, nil)
	for i := 0; i < 100; i++ {
		require.True(t, limiter.allow("10.0.0.1"))
	}
	assert.Empty(t, limiter.clients)
}

func TestResponseMetaAndMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	r := gin.New()
	r.Use(Metrics(metrics), WithResponseMeta())
	var captured map[string]interface{}
	r.GET("/slots/:id", func(c *gin.Context) {
		SetMeta(c, "date", "2025-01-06")
		captured = ExtractMeta(c)
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/slots/abc", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2025-01-06", captured["date"])
	assert.Contains(t, captured, "processing_time_ms")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, uint64(2), metrics.Snapshot().RequestsTotal)
}
