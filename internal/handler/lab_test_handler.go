package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lab-booking-api/internal/models"
	"github.com/noah-isme/lab-booking-api/internal/service"
	"github.com/noah-isme/lab-booking-api/pkg/response"
)

// LabTestHandler exposes the test catalog.
type LabTestHandler struct {
	tests *service.LabTestService
}

// NewLabTestHandler constructs LabTestHandler.
func NewLabTestHandler(tests *service.LabTestService) *LabTestHandler {
	return &LabTestHandler{tests: tests}
}

// List godoc
// @Summary List tests
// @Tags Tests
// @Produce json
// @Param search query string false "Search by name"
// @Param category query string false "normal or special"
// @Param requiresDoctor query bool false "Filter by doctor requirement"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /tests [get]
func (h *LabTestHandler) List(c *gin.Context) {
	filter := models.LabTestFilter{
		Category:       models.TestCategory(c.Query("category")),
		RequiresDoctor: optionalBool(c.Query("requiresDoctor")),
		Search:         strings.TrimSpace(c.Query("search")),
	}
	filter.Page, filter.PageSize = pageParams(c)

	tests, pagination, err := h.tests.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tests, pagination)
}

// Get godoc
// @Summary Get test detail
// @Tags Tests
// @Produce json
// @Param id path string true "Test ID"
// @Success 200 {object} response.Envelope
// @Router /tests/{id} [get]
func (h *LabTestHandler) Get(c *gin.Context) {
	test, err := h.tests.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, test, nil)
}

// Create godoc
// @Summary Create test
// @Tags Tests
// @Accept json
// @Produce json
// @Param payload body service.LabTestRequest true "Test payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/tests [post]
func (h *LabTestHandler) Create(c *gin.Context) {
	var req service.LabTestRequest
	if !bindJSON(c, &req) {
		return
	}
	test, err := h.tests.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, test)
}

// Update godoc
// @Summary Update test
// @Tags Tests
// @Accept json
// @Produce json
// @Param id path string true "Test ID"
// @Param payload body service.LabTestRequest true "Test payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/tests/{id} [put]
func (h *LabTestHandler) Update(c *gin.Context) {
	var req service.LabTestRequest
	if !bindJSON(c, &req) {
		return
	}
	test, err := h.tests.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, test, nil)
}

// Delete godoc
// @Summary Delete test
// @Tags Tests
// @Param id path string true "Test ID"
// @Success 204
// @Security BearerAuth
// @Router /admin/tests/{id} [delete]
func (h *LabTestHandler) Delete(c *gin.Context) {
	if err := h.tests.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
