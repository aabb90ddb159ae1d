package v1

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shenikar/incident_correlation_system/internal/config"
	"github.com/shenikar/incident_correlation_system/internal/engine"
	"github.com/shenikar/incident_correlation_system/internal/models"
	"github.com/shenikar/incident_correlation_system/internal/service/mocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var authHeader = map[string]string{"X-API-Key": "test-api-key"}

// newTestHandler создает новый экземпляр Handler с мокированным сервисом
func newTestHandler(t *testing.T) (*Handler, *mocks.MockIncidentService, *gin.Engine) {
	ctrl := gomock.NewController(t)
	mockService := mocks.NewMockIncidentService(ctrl)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	cfg := &config.Config{
		APIKeys: []string{"test-api-key"},
	}

	handler := NewHandler(mockService, logger, cfg)

	// Настройка Gin роутера для тестов
	gin.SetMode(gin.TestMode)
	router := gin.New()
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)

	return handler, mockService, router
}

// makeRequest - вспомогательная функция для выполнения HTTP-запросов
func makeRequest(router *gin.Engine, method, url string, body io.Reader, headers ...map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, h := range headers {
		for key, value := range h {
			req.Header.Set(key, value)
		}
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestIngestReport_Accepted(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	reportID := uuid.New()
	reqBody := IngestReportRequest{
		Source: "dispatch",
		Payload: map[string]any{
			"summary":   "structure fire at warehouse",
			"timestamp": "2025-06-01T11:45:00Z",
		},
	}
	expectedReport := &models.Report{
		ID:           reportID,
		Status:       models.ReportStatusUncategorized,
		Source:       "dispatch",
		IncidentType: "unknown",
		ReceivedAt:   time.Now().UTC(),
	}

	mockService.EXPECT().
		IngestReport(gomock.Any(), "dispatch", gomock.Any()).
		Return(expectedReport, nil).
		Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/reports", bytes.NewBuffer(bodyBytes), authHeader)

	assert.Equal(t, http.StatusAccepted, w.Code)

	var resp ReportResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, reportID, resp.ID)
	assert.Equal(t, string(models.ReportStatusUncategorized), resp.Status)
}

func TestIngestReport_InvalidBody(t *testing.T) {
	_, _, router := newTestHandler(t)

	w := makeRequest(router, "POST", "/api/v1/reports", bytes.NewBufferString(`{not json`), authHeader)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIngestReport_MissingSource(t *testing.T) {
	_, _, router := newTestHandler(t)
	bodyBytes, _ := json.Marshal(map[string]any{"payload": map[string]any{"summary": "fire"}})

	w := makeRequest(router, "POST", "/api/v1/reports", bytes.NewBuffer(bodyBytes), authHeader)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIngestReport_Unauthorized(t *testing.T) {
	_, _, router := newTestHandler(t)
	bodyBytes, _ := json.Marshal(IngestReportRequest{Source: "dispatch", Payload: map[string]any{"summary": "fire"}})

	// Без API-ключа
	w := makeRequest(router, "POST", "/api/v1/reports", bytes.NewBuffer(bodyBytes))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// С неверным API-ключом
	w = makeRequest(router, "POST", "/api/v1/reports", bytes.NewBuffer(bodyBytes), map[string]string{"X-API-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestIngestReport_BearerTokenAccepted(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	mockService.EXPECT().
		IngestReport(gomock.Any(), "dispatch", gomock.Any()).
		Return(&models.Report{ID: uuid.New()}, nil)

	bodyBytes, _ := json.Marshal(IngestReportRequest{Source: "dispatch", Payload: map[string]any{"summary": "fire"}})
	w := makeRequest(router, "POST", "/api/v1/reports", bytes.NewBuffer(bodyBytes), map[string]string{"Authorization": "Bearer test-api-key"})

	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestGetReport_Success(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	reportID := uuid.New()
	incidentID := uuid.New()
	expectedReport := &models.Report{
		ID:         reportID,
		Status:     models.ReportStatusLinked,
		IncidentID: &incidentID,
		Summary:    "structure fire",
	}

	mockService.EXPECT().GetReport(gomock.Any(), reportID).Return(expectedReport, nil)

	w := makeRequest(router, "GET", "/api/v1/reports/"+reportID.String(), nil, authHeader)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp ReportResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, reportID, resp.ID)
	require.NotNil(t, resp.IncidentID)
	assert.Equal(t, incidentID, *resp.IncidentID)
}

func TestGetReport_InvalidID(t *testing.T) {
	_, _, router := newTestHandler(t)

	w := makeRequest(router, "GET", "/api/v1/reports/not-a-uuid", nil, authHeader)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetReport_NotFound(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	reportID := uuid.New()

	mockService.EXPECT().GetReport(gomock.Any(), reportID).Return(nil, fmt.Errorf("report not found"))

	w := makeRequest(router, "GET", "/api/v1/reports/"+reportID.String(), nil, authHeader)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestResolveReport_MergeSuccess(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	reportID := uuid.New()
	incidentID := uuid.New()
	decision := &engine.Decision{Outcome: engine.OutcomeMerged, IncidentID: &incidentID}

	mockService.EXPECT().
		ResolveReport(gomock.Any(), reportID, incidentID.String()).
		Return(decision, nil)

	bodyBytes, _ := json.Marshal(ResolveReportRequest{IncidentID: incidentID.String()})
	w := makeRequest(router, "POST", "/api/v1/reports/"+reportID.String()+"/resolve", bytes.NewBuffer(bodyBytes), authHeader)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp ResolutionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, string(engine.OutcomeMerged), resp.Outcome)
	require.NotNil(t, resp.IncidentID)
	assert.Equal(t, incidentID, *resp.IncidentID)
}

func TestResolveReport_NewIncident(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	reportID := uuid.New()
	incidentID := uuid.New()
	decision := &engine.Decision{Outcome: engine.OutcomeCreated, IncidentID: &incidentID}

	mockService.EXPECT().
		ResolveReport(gomock.Any(), reportID, engine.ResolutionNew).
		Return(decision, nil)

	bodyBytes, _ := json.Marshal(ResolveReportRequest{IncidentID: "new"})
	w := makeRequest(router, "POST", "/api/v1/reports/"+reportID.String()+"/resolve", bytes.NewBuffer(bodyBytes), authHeader)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp ResolutionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, string(engine.OutcomeCreated), resp.Outcome)
}

func TestResolveReport_InvalidChoice(t *testing.T) {
	_, _, router := newTestHandler(t)
	reportID := uuid.New()

	bodyBytes, _ := json.Marshal(ResolveReportRequest{IncidentID: "neither-uuid-nor-new"})
	w := makeRequest(router, "POST", "/api/v1/reports/"+reportID.String()+"/resolve", bytes.NewBuffer(bodyBytes), authHeader)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResolveReport_ClosedIncidentConflict(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	reportID := uuid.New()
	incidentID := uuid.New()

	mockService.EXPECT().
		ResolveReport(gomock.Any(), reportID, incidentID.String()).
		Return(nil, fmt.Errorf("service: %w", engine.ErrIncidentNotOpen))

	bodyBytes, _ := json.Marshal(ResolveReportRequest{IncidentID: incidentID.String()})
	w := makeRequest(router, "POST", "/api/v1/reports/"+reportID.String()+"/resolve", bytes.NewBuffer(bodyBytes), authHeader)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestListIncidents_Success(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	incidents := []*models.Incident{
		{ID: uuid.New(), State: models.IncidentStateOpen, ReportCount: 2},
		{ID: uuid.New(), State: models.IncidentStateClosed, ReportCount: 5},
	}

	mockService.EXPECT().ListIncidents(gomock.Any(), 2, 50).Return(incidents, nil)

	w := makeRequest(router, "GET", "/api/v1/incidents?page=2&pageSize=50", nil, authHeader)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp []IncidentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	assert.Equal(t, incidents[0].ID, resp[0].ID)
}

func TestGetIncident_Detail(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	incidentID := uuid.New()
	reportIDs := []uuid.UUID{uuid.New(), uuid.New()}
	incident := &models.Incident{
		ID:                    incidentID,
		State:                 models.IncidentStateOpen,
		IncidentType:          "fire",
		RepresentativeSummary: "structure fire",
		ReportCount:           2,
	}

	mockService.EXPECT().GetIncident(gomock.Any(), incidentID).Return(incident, nil)
	mockService.EXPECT().GetIncidentReportIDs(gomock.Any(), incidentID).Return(reportIDs, nil)

	w := makeRequest(router, "GET", "/api/v1/incidents/"+incidentID.String(), nil, authHeader)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp IncidentDetailResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, incidentID, resp.ID)
	assert.Equal(t, reportIDs, resp.ReportIDs)
}

func TestGetIncident_NotFound(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	incidentID := uuid.New()

	mockService.EXPECT().GetIncident(gomock.Any(), incidentID).Return(nil, fmt.Errorf("incident not found"))

	w := makeRequest(router, "GET", "/api/v1/incidents/"+incidentID.String(), nil, authHeader)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCloseIncident_Success(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	incidentID := uuid.New()

	mockService.EXPECT().CloseIncident(gomock.Any(), incidentID).Return(nil)

	w := makeRequest(router, "DELETE", "/api/v1/incidents/"+incidentID.String(), nil, authHeader)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestGetStats_Success(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	stats := &models.Stats{
		UncategorizedReports: 3,
		LinkedReports:        12,
		RejectedReports:      1,
		OpenIncidents:        4,
	}

	mockService.EXPECT().GetStats(gomock.Any()).Return(stats, nil)

	w := makeRequest(router, "GET", "/api/v1/incidents/stats", nil, authHeader)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp StatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 12, resp.LinkedReports)
	assert.Equal(t, 4, resp.OpenIncidents)
}

func TestHealthCheck_NoAuthRequired(t *testing.T) {
	_, _, router := newTestHandler(t)

	w := makeRequest(router, "GET", "/api/v1/system/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "ok"}`, w.Body.String())
}
