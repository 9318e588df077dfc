package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lab-booking-api/internal/models"
	"github.com/noah-isme/lab-booking-api/internal/service"
	"github.com/noah-isme/lab-booking-api/pkg/response"
)

type assistantService interface {
	Start(ctx context.Context, req service.StartSessionRequest) (*models.BookingSession, error)
	Get(ctx context.Context, token string) (*models.BookingSession, error)
	Select(ctx context.Context, token string, req service.SelectWindowRequest) (*models.BookingSession, error)
	Confirm(ctx context.Context, token string, req service.ConfirmSessionRequest) (*models.BookingResult, error)
	Cancel(ctx context.Context, token string) error
}

// AssistantHandler drives guided, multi-step bookings.
type AssistantHandler struct {
	sessions assistantService
}

// NewAssistantHandler constructs AssistantHandler.
func NewAssistantHandler(sessions assistantService) *AssistantHandler {
	return &AssistantHandler{sessions: sessions}
}

// Start godoc
// @Summary Start a guided booking
// @Description Returns a session token and the numbered windows of the day.
// @Tags Assistant
// @Accept json
// @Produce json
// @Param payload body service.StartSessionRequest true "Test and date"
// @Success 201 {object} response.Envelope
// @Router /assistant/sessions [post]
func (h *AssistantHandler) Start(c *gin.Context) {
	var req service.StartSessionRequest
	if !bindJSON(c, &req) {
		return
	}
	session, err := h.sessions.Start(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// Get godoc
// @Summary Inspect a guided booking
// @Tags Assistant
// @Produce json
// @Param token path string true "Session token"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /assistant/sessions/{token} [get]
func (h *AssistantHandler) Get(c *gin.Context) {
	session, err := h.sessions.Get(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// Select godoc
// @Summary Pick a window
// @Description Accepts a number ("2"), an ordinal ("second") or a range ("09:00 - 10:00").
// @Tags Assistant
// @Accept json
// @Produce json
// @Param token path string true "Session token"
// @Param payload body service.SelectWindowRequest true "Selection"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /assistant/sessions/{token}/select [post]
func (h *AssistantHandler) Select(c *gin.Context) {
	var req service.SelectWindowRequest
	if !bindJSON(c, &req) {
		return
	}
	session, err := h.sessions.Select(c.Request.Context(), c.Param("token"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// Confirm godoc
// @Summary Confirm the guided booking
// @Tags Assistant
// @Accept json
// @Produce json
// @Param token path string true "Session token"
// @Param payload body service.ConfirmSessionRequest true "Patient details"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /assistant/sessions/{token}/confirm [post]
func (h *AssistantHandler) Confirm(c *gin.Context) {
	var req service.ConfirmSessionRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.sessions.Confirm(c.Request.Context(), c.Param("token"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Cancel godoc
// @Summary Abandon a guided booking
// @Tags Assistant
// @Param token path string true "Session token"
// @Success 204
// @Router /assistant/sessions/{token} [delete]
func (h *AssistantHandler) Cancel(c *gin.Context) {
	if err := h.sessions.Cancel(c.Request.Context(), c.Param("token")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
