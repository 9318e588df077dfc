package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lab-booking-api/internal/service"
	"github.com/noah-isme/lab-booking-api/pkg/response"
)

// DoctorHandler exposes doctor and test-doctor assignment endpoints.
type DoctorHandler struct {
	doctors     *service.DoctorService
	assignments *service.AssignmentService
}

// NewDoctorHandler constructs DoctorHandler.
func NewDoctorHandler(doctors *service.DoctorService, assignments *service.AssignmentService) *DoctorHandler {
	return &DoctorHandler{doctors: doctors, assignments: assignments}
}

// List godoc
// @Summary List doctors
// @Tags Doctors
// @Produce json
// @Param search query string false "Search by name or specialization"
// @Success 200 {object} response.Envelope
// @Router /doctors [get]
func (h *DoctorHandler) List(c *gin.Context) {
	doctors, err := h.doctors.List(c.Request.Context(), strings.TrimSpace(c.Query("search")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doctors, nil)
}

// Get godoc
// @Summary Get doctor
// @Tags Doctors
// @Produce json
// @Param id path string true "Doctor ID"
// @Success 200 {object} response.Envelope
// @Router /doctors/{id} [get]
func (h *DoctorHandler) Get(c *gin.Context) {
	doctor, err := h.doctors.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doctor, nil)
}

// Create godoc
// @Summary Create doctor
// @Tags Doctors
// @Accept json
// @Produce json
// @Param payload body service.DoctorRequest true "Doctor payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/doctors [post]
func (h *DoctorHandler) Create(c *gin.Context) {
	var req service.DoctorRequest
	if !bindJSON(c, &req) {
		return
	}
	doctor, err := h.doctors.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, doctor)
}

// Update godoc
// @Summary Update doctor
// @Tags Doctors
// @Accept json
// @Produce json
// @Param id path string true "Doctor ID"
// @Param payload body service.DoctorRequest true "Doctor payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/doctors/{id} [put]
func (h *DoctorHandler) Update(c *gin.Context) {
	var req service.DoctorRequest
	if !bindJSON(c, &req) {
		return
	}
	doctor, err := h.doctors.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doctor, nil)
}

// Delete godoc
// @Summary Delete doctor
// @Tags Doctors
// @Param id path string true "Doctor ID"
// @Success 204
// @Security BearerAuth
// @Router /admin/doctors/{id} [delete]
func (h *DoctorHandler) Delete(c *gin.Context) {
	if err := h.doctors.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListAssignments godoc
// @Summary List test-doctor assignments
// @Tags Doctors
// @Produce json
// @Param testId query string false "Filter by test"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/assignments [get]
func (h *DoctorHandler) ListAssignments(c *gin.Context) {
	items, err := h.assignments.List(c.Request.Context(), c.Query("testId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// CreateAssignment godoc
// @Summary Assign a doctor to a test
// @Tags Doctors
// @Accept json
// @Produce json
// @Param payload body service.AssignmentRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/assignments [post]
func (h *DoctorHandler) CreateAssignment(c *gin.Context) {
	var req service.AssignmentRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.assignments.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// DeleteAssignment godoc
// @Summary Remove a test-doctor assignment
// @Tags Doctors
// @Param id path string true "Assignment ID"
// @Success 204
// @Security BearerAuth
// @Router /admin/assignments/{id} [delete]
func (h *DoctorHandler) DeleteAssignment(c *gin.Context) {
	if err := h.assignments.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
