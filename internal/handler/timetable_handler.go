package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-api/internal/dto"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/response"
)

type timetableService interface {
	Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error)
	Health() map[string]string
}

// TimetableHandler exposes timetable generation endpoints.
type TimetableHandler struct {
	service timetableService
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(service timetableService) *TimetableHandler {
	return &TimetableHandler{service: service}
}

// Generate godoc
// @Summary Generate timetable
// @Description Assign classes to slots, teachers and classrooms for the requested batches and date range
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTimetableRequest true "Generation payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Security BearerAuth
// @Router /timetable/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	var req dto.GenerateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generation payload"))
		return
	}
	result, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Health godoc
// @Summary Timetable generator health
// @Tags Timetable
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetable/health [get]
func (h *TimetableHandler) Health(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Health(), nil)
}
