package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lab-booking-api/internal/middleware"
	"github.com/noah-isme/lab-booking-api/internal/models"
	"github.com/noah-isme/lab-booking-api/pkg/response"
)

type availabilityService interface {
	Resolve(ctx context.Context, testID, date string) ([]models.AvailableWindow, error)
}

// AvailabilityHandler serves the public slot lookup.
type AvailabilityHandler struct {
	service availabilityService
}

// NewAvailabilityHandler constructs the handler.
func NewAvailabilityHandler(service availabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: service}
}

// Resolve godoc
// @Summary Available windows of a test on a date
// @Description Windows are ordered by start time. Windows with no seats left are included with available_slots 0.
// @Tags Availability
// @Produce json
// @Param testId path string true "Test ID"
// @Param date path string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /available-slots/{testId}/{date} [get]
func (h *AvailabilityHandler) Resolve(c *gin.Context) {
	date := c.Param("date")
	windows, err := h.service.Resolve(c.Request.Context(), c.Param("testId"), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "date", date)
	response.JSON(c, http.StatusOK, windows, nil, middleware.ExtractMeta(c))
}
