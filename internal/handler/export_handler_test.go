package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/dto"
	internalmiddleware "github.com/noah-isme/timetable-api/internal/middleware"
	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type exportServiceMock struct {
	capturedUser string
	capturedReq  dto.ExportTimetableRequest
	statusErr    error
	artifact     string
}

func (m *exportServiceMock) Enqueue(ctx context.Context, userID string, req dto.ExportTimetableRequest) (*dto.ExportJobResponse, error) {
	m.capturedUser = userID
	m.capturedReq = req
	return &dto.ExportJobResponse{ID: "job-1", Status: models.ExportStatusQueued}, nil
}

func (m *exportServiceMock) Status(ctx context.Context, jobID string) (*dto.ExportStatusResponse, error) {
	if m.statusErr != nil {
		return nil, m.statusErr
	}
	return &dto.ExportStatusResponse{ID: jobID, Status: models.ExportStatusProcessing, Progress: 10}, nil
}

func (m *exportServiceMock) OpenArtifact(ctx context.Context, jobID, token string) (*os.File, error) {
	if m.artifact == "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export artifact no longer available")
	}
	return os.Open(m.artifact)
}

func validExportPayload() []byte {
	return []byte(`{"format":"csv","generation":{"batch_ids":["b1"],"start_date":"2026-01-05","end_date":"2026-01-09","working_days":["Monday"],"start_time":"09:00","end_time":"12:00"}}`)
}

func exportTestRouter(handler *ExportHandler, claims *models.JWTClaims) *gin.Engine {
	router := gin.New()
	if claims != nil {
		router.Use(func(c *gin.Context) {
			c.Set(internalmiddleware.ContextUserKey, claims)
			c.Next()
		})
	}
	router.POST("/timetable/exports", handler.Enqueue)
	router.GET("/timetable/exports/:id", handler.Status)
	router.GET("/timetable/exports/:id/download", handler.Download)
	return router
}

func TestExportEnqueue(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &exportServiceMock{}
	router := exportTestRouter(NewExportHandler(mockSvc), &models.JWTClaims{UserID: "u1", Role: models.RoleStaff})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/timetable/exports", bytes.NewReader(validExportPayload()))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)
	require.Equal(t, "u1", mockSvc.capturedUser)
	require.Equal(t, models.ExportFormatCSV, mockSvc.capturedReq.Format)
}

func TestExportEnqueueUnauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := exportTestRouter(NewExportHandler(&exportServiceMock{}), nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/timetable/exports", bytes.NewReader(validExportPayload()))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestExportStatusNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &exportServiceMock{statusErr: appErrors.Clone(appErrors.ErrNotFound, "export job not found")}
	router := exportTestRouter(NewExportHandler(mockSvc), &models.JWTClaims{UserID: "u1"})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/timetable/exports/ghost", nil)

	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportDownload(t *testing.T) {
	gin.SetMode(gin.TestMode)

	artifact := t.TempDir() + "/timetable_job-1.csv"
	require.NoError(t, os.WriteFile(artifact, []byte("Batch,Date\nb1,2026-01-05\n"), 0o644))

	mockSvc := &exportServiceMock{artifact: artifact}
	router := exportTestRouter(NewExportHandler(mockSvc), nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/timetable/exports/job-1/download?token=tok", nil)

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	require.Contains(t, w.Header().Get("Content-Disposition"), "timetable_job-1.csv")
	require.Contains(t, w.Body.String(), "b1,2026-01-05")
}

func TestExportDownloadMissingToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := exportTestRouter(NewExportHandler(&exportServiceMock{}), nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/timetable/exports/job-1/download", nil)

	router.ServeHTTP(w, req)
	require.Equal(t, appErrors.ErrValidation.Status, w.Code)
}
