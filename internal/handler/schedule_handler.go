package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lab-booking-api/internal/models"
	"github.com/noah-isme/lab-booking-api/internal/service"
	appErrors "github.com/noah-isme/lab-booking-api/pkg/errors"
	"github.com/noah-isme/lab-booking-api/pkg/response"
)

// ScheduleHandler exposes the lab's weekly hours, holidays, and per-test schedules and windows.
type ScheduleHandler struct {
	lab      *service.LabScheduleService
	holidays *service.HolidayService
	tests    *service.TestScheduleService
	windows  *service.WindowService
}

// NewScheduleHandler constructs ScheduleHandler.
func NewScheduleHandler(lab *service.LabScheduleService, holidays *service.HolidayService, tests *service.TestScheduleService, windows *service.WindowService) *ScheduleHandler {
	return &ScheduleHandler{lab: lab, holidays: holidays, tests: tests, windows: windows}
}

type regenerateRequest struct {
	WindowMinutes int `json:"window_minutes"`
}

// LabHours godoc
// @Summary Lab weekly hours
// @Tags Schedules
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/lab-schedule [get]
func (h *ScheduleHandler) LabHours(c *gin.Context) {
	days, err := h.lab.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, days, nil)
}

// SetLabHours godoc
// @Summary Set lab hours for a weekday
// @Tags Schedules
// @Accept json
// @Produce json
// @Param day path int true "Day of week (0=Monday)"
// @Param payload body service.LabHoursRequest true "Hours"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/lab-schedule/{day} [put]
func (h *ScheduleHandler) SetLabHours(c *gin.Context) {
	day, err := strconv.Atoi(c.Param("day"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "day must be a number"))
		return
	}
	var req service.LabHoursRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.lab.Set(c.Request.Context(), day, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ListHolidays godoc
// @Summary List holidays of a scope
// @Tags Holidays
// @Produce json
// @Param scope path string true "lab, test or doctor"
// @Param scopeId query string false "Test or doctor ID"
// @Param from query string false "From date"
// @Param to query string false "To date"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/holidays/{scope} [get]
func (h *ScheduleHandler) ListHolidays(c *gin.Context) {
	from, to, err := dateRange(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter := models.HolidayFilter{ScopeID: c.Query("scopeId"), From: from, To: to}
	items, err := h.holidays.List(c.Request.Context(), models.HolidayScope(c.Param("scope")), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// CreateHoliday godoc
// @Summary Create a holiday override
// @Tags Holidays
// @Accept json
// @Produce json
// @Param scope path string true "lab, test or doctor"
// @Param payload body service.HolidayRequest true "Holiday"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/holidays/{scope} [post]
func (h *ScheduleHandler) CreateHoliday(c *gin.Context) {
	var req service.HolidayRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.holidays.Create(c.Request.Context(), models.HolidayScope(c.Param("scope")), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// UpdateHoliday godoc
// @Summary Update a holiday override
// @Tags Holidays
// @Accept json
// @Produce json
// @Param scope path string true "lab, test or doctor"
// @Param id path string true "Holiday ID"
// @Param payload body service.HolidayRequest true "Holiday"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/holidays/{scope}/{id} [put]
func (h *ScheduleHandler) UpdateHoliday(c *gin.Context) {
	var req service.HolidayRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.holidays.Update(c.Request.Context(), models.HolidayScope(c.Param("scope")), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// DeleteHoliday godoc
// @Summary Delete a holiday override
// @Tags Holidays
// @Param scope path string true "lab, test or doctor"
// @Param id path string true "Holiday ID"
// @Success 204
// @Security BearerAuth
// @Router /admin/holidays/{scope}/{id} [delete]
func (h *ScheduleHandler) DeleteHoliday(c *gin.Context) {
	if err := h.holidays.Delete(c.Request.Context(), models.HolidayScope(c.Param("scope")), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListSchedules godoc
// @Summary List test schedule entries
// @Tags Schedules
// @Produce json
// @Param testId query string false "Filter by test"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/schedules [get]
func (h *ScheduleHandler) ListSchedules(c *gin.Context) {
	testID := c.Query("testId")
	if id := c.Param("id"); id != "" {
		testID = id
	}
	items, err := h.tests.List(c.Request.Context(), testID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// ListWindows godoc
// @Summary List generated windows of a test
// @Tags Schedules
// @Produce json
// @Param id path string true "Test ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/tests/{id}/windows [get]
func (h *ScheduleHandler) ListWindows(c *gin.Context) {
	items, err := h.tests.ListWindows(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// CreateSchedule godoc
// @Summary Add a weekday schedule to a test and generate its windows
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Test ID"
// @Param payload body service.TestScheduleRequest true "Schedule"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/tests/{id}/schedules [post]
func (h *ScheduleHandler) CreateSchedule(c *gin.Context) {
	var req service.TestScheduleRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.tests.Create(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// UpdateSchedule godoc
// @Summary Update a weekday schedule and regenerate its windows
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Test ID"
// @Param scheduleId path string true "Schedule ID"
// @Param payload body service.TestScheduleRequest true "Schedule"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/tests/{id}/schedules/{scheduleId} [put]
func (h *ScheduleHandler) UpdateSchedule(c *gin.Context) {
	var req service.TestScheduleRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.tests.Update(c.Request.Context(), c.Param("id"), c.Param("scheduleId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// DeleteSchedule godoc
// @Summary Delete a schedule entry and its windows
// @Tags Schedules
// @Param scheduleId path string true "Schedule ID"
// @Success 204
// @Security BearerAuth
// @Router /admin/schedules/{scheduleId} [delete]
func (h *ScheduleHandler) DeleteSchedule(c *gin.Context) {
	if err := h.tests.Delete(c.Request.Context(), c.Param("scheduleId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// RegenerateWindows godoc
// @Summary Rebuild the windows of a schedule entry
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Test ID"
// @Param scheduleId path string true "Schedule ID"
// @Param payload body regenerateRequest true "Window length in minutes"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/tests/{id}/schedules/{scheduleId}/windows [post]
func (h *ScheduleHandler) RegenerateWindows(c *gin.Context) {
	var req regenerateRequest
	if !bindJSON(c, &req) {
		return
	}
	windows, err := h.windows.Regenerate(c.Request.Context(), c.Param("id"), c.Param("scheduleId"), req.WindowMinutes)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, windows, nil)
}
