package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/service"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/response"
)

// ClassroomHandler wires classroom services to HTTP routes.
type ClassroomHandler struct {
	classrooms *service.ClassroomService
}

// NewClassroomHandler constructs a new ClassroomHandler.
func NewClassroomHandler(classrooms *service.ClassroomService) *ClassroomHandler {
	return &ClassroomHandler{classrooms: classrooms}
}

// List godoc
// @Summary List classrooms
// @Tags Classrooms
// @Produce json
// @Param search query string false "Search by room number"
// @Param section query string false "Filter by section"
// @Param minCapacity query int false "Minimum seat capacity"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param sort query string false "Sort field (room_number,capacity,created_at,updated_at)"
// @Param order query string false "Sort order (asc/desc)"
// @Success 200 {object} response.Envelope
// @Router /classrooms [get]
func (h *ClassroomHandler) List(c *gin.Context) {
	filter := models.ClassroomFilter{
		Search:    strings.TrimSpace(c.Query("search")),
		Section:   strings.TrimSpace(c.Query("section")),
		SortBy:    c.Query("sort"),
		SortOrder: c.Query("order"),
	}
	if minCap, err := strconv.Atoi(c.DefaultQuery("minCapacity", "0")); err == nil {
		filter.MinCapacity = minCap
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	classrooms, pagination, err := h.classrooms.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classrooms, pagination)
}

// Get godoc
// @Summary Get classroom detail
// @Tags Classrooms
// @Produce json
// @Param id path string true "Classroom ID"
// @Success 200 {object} response.Envelope
// @Router /classrooms/{id} [get]
func (h *ClassroomHandler) Get(c *gin.Context) {
	classroom, err := h.classrooms.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classroom, nil)
}

// Create godoc
// @Summary Create classroom
// @Tags Classrooms
// @Accept json
// @Produce json
// @Param payload body service.CreateClassroomRequest true "Classroom payload"
// @Success 201 {object} response.Envelope
// @Router /classrooms [post]
func (h *ClassroomHandler) Create(c *gin.Context) {
	var req service.CreateClassroomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid classroom payload"))
		return
	}
	classroom, err := h.classrooms.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, classroom)
}

// Update godoc
// @Summary Update classroom
// @Tags Classrooms
// @Accept json
// @Produce json
// @Param id path string true "Classroom ID"
// @Param payload body service.UpdateClassroomRequest true "Classroom payload"
// @Success 200 {object} response.Envelope
// @Router /classrooms/{id} [put]
func (h *ClassroomHandler) Update(c *gin.Context) {
	var req service.UpdateClassroomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid classroom payload"))
		return
	}
	classroom, err := h.classrooms.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classroom, nil)
}

// Delete godoc
// @Summary Delete classroom
// @Tags Classrooms
// @Param id path string true "Classroom ID"
// @Success 204
// @Router /classrooms/{id} [delete]
func (h *ClassroomHandler) Delete(c *gin.Context) {
	if err := h.classrooms.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
