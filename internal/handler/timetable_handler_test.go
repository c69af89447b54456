package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/dto"
	internalmiddleware "github.com/noah-isme/timetable-api/internal/middleware"
	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type timetableServiceMock struct {
	captured dto.GenerateTimetableRequest
	err      error
}

func (m *timetableServiceMock) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	m.captured = req
	if m.err != nil {
		return nil, m.err
	}
	return &dto.GenerateTimetableResponse{Success: true, Message: "timetable generated"}, nil
}

func (m *timetableServiceMock) Health() map[string]string {
	return map[string]string{"status": "available", "component": "timetable-generator"}
}

func validGenerationPayload() []byte {
	return []byte(`{"batch_ids":["b1"],"start_date":"2026-01-05","end_date":"2026-01-09","working_days":["Monday","Tuesday"],"start_time":"09:00","end_time":"12:00","break_duration":30}`)
}

func TestTimetableGenerate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &timetableServiceMock{}
	handler := NewTimetableHandler(mockSvc)

	req, _ := http.NewRequest(http.MethodPost, "/timetable/generate", bytes.NewReader(validGenerationPayload()))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Generate(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []string{"b1"}, mockSvc.captured.BatchIDs)
	require.Equal(t, "09:00", mockSvc.captured.StartTime)
}

func TestTimetableGenerateMalformedPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewTimetableHandler(&timetableServiceMock{})

	req, _ := http.NewRequest(http.MethodPost, "/timetable/generate", bytes.NewReader([]byte(`{"batch_ids":`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Generate(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimetableGenerateServiceError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &timetableServiceMock{err: appErrors.Clone(appErrors.ErrReference, "batch ghost does not exist")}
	handler := NewTimetableHandler(mockSvc)

	req, _ := http.NewRequest(http.MethodPost, "/timetable/generate", bytes.NewReader(validGenerationPayload()))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Generate(c)

	require.Equal(t, appErrors.ErrReference.Status, w.Code)
}

func TestTimetableGenerateUnauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewTimetableHandler(&timetableServiceMock{})
	router := gin.New()
	router.POST("/timetable/generate", internalmiddleware.RequireRoles(models.RoleAdmin), handler.Generate)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/timetable/generate", bytes.NewReader(validGenerationPayload()))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTimetableGenerateForbidden(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewTimetableHandler(&timetableServiceMock{})
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Role: models.RoleViewer})
		c.Next()
	})
	router.POST("/timetable/generate", internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleStaff), handler.Generate)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/timetable/generate", bytes.NewReader(validGenerationPayload()))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestTimetableHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewTimetableHandler(&timetableServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/timetable/health", nil)

	handler.Health(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "timetable-generator")
}
