package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"testing"

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

// newTestIncidentService — вспомогательная функция для создания инстанса сервиса с моками.
func newTestIncidentService(t *testing.T) (*incidentService, *mocks.MockRepository, *mocks.MockResolver) {
	ctrl := gomock.NewController(t)
	repoMock := mocks.NewMockRepository(ctrl)
	resolverMock := mocks.NewMockResolver(ctrl)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	cfg := &config.Config{}

	service := NewIncidentService(repoMock, resolverMock, logger, cfg)
	return service.(*incidentService), repoMock, resolverMock
}

func TestIngestReport_Success(t *testing.T) {
	// Подготовка
	service, repoMock, _ := newTestIncidentService(t)
	ctx := context.Background()
	payload := json.RawMessage(`{"summary": "structure fire"}`)
	expected := &models.Report{
		ID:     uuid.New(),
		Status: models.ReportStatusUncategorized,
		Source: "dispatch",
	}

	// Ожидания
	repoMock.EXPECT().
		CreateReport(ctx, "dispatch", payload).
		Return(expected, nil).
		Times(1)

	// Действие
	report, err := service.IngestReport(ctx, "dispatch", payload)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, expected, report)
}

func TestIngestReport_RepositoryError(t *testing.T) {
	// Подготовка
	service, repoMock, _ := newTestIncidentService(t)
	ctx := context.Background()

	// Ожидания
	repoMock.EXPECT().
		CreateReport(ctx, "dispatch", gomock.Any()).
		Return(nil, fmt.Errorf("db down"))

	// Действие
	report, err := service.IngestReport(ctx, "dispatch", json.RawMessage(`{}`))

	// Проверки
	require.Error(t, err)
	assert.Nil(t, report)
}

func TestGetIncident_Success_FromCache(t *testing.T) {
	// Подготовка
	service, repoMock, _ := newTestIncidentService(t)
	ctx := context.Background()
	incidentID := uuid.New()
	expectedIncident := &models.Incident{
		ID:                    incidentID,
		RepresentativeSummary: "Тестовый инцидент из кеша",
	}

	// Ожидания
	repoMock.EXPECT().
		GetIncidentFromCache(ctx, incidentID).
		Return(expectedIncident, nil).
		Times(1)

	// Действие
	incident, err := service.GetIncident(ctx, incidentID)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, expectedIncident, incident)
}

func TestGetIncident_Success_FromDBOnCacheMiss(t *testing.T) {
	// Подготовка
	service, repoMock, _ := newTestIncidentService(t)
	ctx := context.Background()
	incidentID := uuid.New()
	expectedIncident := &models.Incident{
		ID:                    incidentID,
		RepresentativeSummary: "Тестовый инцидент из БД",
	}

	// Ожидания: промах кэша, чтение из БД, обратная запись в кэш
	repoMock.EXPECT().GetIncidentFromCache(ctx, incidentID).Return(nil, nil)
	repoMock.EXPECT().GetIncident(ctx, incidentID).Return(expectedIncident, nil)
	repoMock.EXPECT().SetIncidentCache(ctx, expectedIncident).Return(nil)

	// Действие
	incident, err := service.GetIncident(ctx, incidentID)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, expectedIncident, incident)
}

func TestGetIncident_CacheErrorFallsBackToDB(t *testing.T) {
	// Подготовка: недоступный Redis не должен ломать чтение
	service, repoMock, _ := newTestIncidentService(t)
	ctx := context.Background()
	incidentID := uuid.New()
	expectedIncident := &models.Incident{ID: incidentID}

	// Ожидания
	repoMock.EXPECT().GetIncidentFromCache(ctx, incidentID).Return(nil, fmt.Errorf("redis down"))
	repoMock.EXPECT().GetIncident(ctx, incidentID).Return(expectedIncident, nil)
	repoMock.EXPECT().SetIncidentCache(ctx, expectedIncident).Return(fmt.Errorf("redis down"))

	// Действие
	incident, err := service.GetIncident(ctx, incidentID)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, expectedIncident, incident)
}

func TestListIncidents_NormalizesPagination(t *testing.T) {
	// Подготовка
	service, repoMock, _ := newTestIncidentService(t)
	ctx := context.Background()

	// Ожидания: отрицательная страница и завышенный размер приводятся к дефолтам
	repoMock.EXPECT().
		ListIncidents(ctx, 1, 20).
		Return([]*models.Incident{}, nil)

	// Действие
	incidents, err := service.ListIncidents(ctx, -5, 1000)

	// Проверки
	require.NoError(t, err)
	assert.Empty(t, incidents)
}

func TestCloseIncident_Success(t *testing.T) {
	// Подготовка
	service, repoMock, _ := newTestIncidentService(t)
	ctx := context.Background()
	incidentID := uuid.New()

	// Ожидания
	repoMock.EXPECT().CloseIncident(ctx, incidentID).Return(nil)

	// Действие
	err := service.CloseIncident(ctx, incidentID)

	// Проверки
	require.NoError(t, err)
}

func TestResolveReport_InvalidatesCache(t *testing.T) {
	// Подготовка
	service, repoMock, resolverMock := newTestIncidentService(t)
	ctx := context.Background()
	reportID := uuid.New()
	incidentID := uuid.New()
	decision := &engine.Decision{Outcome: engine.OutcomeMerged, IncidentID: &incidentID}

	// Ожидания: после влития кэш инцидента инвалидируется
	resolverMock.EXPECT().Resolve(ctx, reportID, incidentID.String()).Return(decision, nil)
	repoMock.EXPECT().InvalidateIncidentCache(ctx, incidentID).Return(nil)

	// Действие
	result, err := service.ResolveReport(ctx, reportID, incidentID.String())

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, decision, result)
}

func TestResolveReport_ResolverError(t *testing.T) {
	// Подготовка
	service, repoMock, resolverMock := newTestIncidentService(t)
	ctx := context.Background()
	reportID := uuid.New()

	// Ожидания
	resolverMock.EXPECT().Resolve(ctx, reportID, "new").Return(nil, fmt.Errorf("report not found"))
	repoMock.EXPECT().InvalidateIncidentCache(gomock.Any(), gomock.Any()).Times(0)

	// Действие
	result, err := service.ResolveReport(ctx, reportID, "new")

	// Проверки
	require.Error(t, err)
	assert.Nil(t, result)
}

func TestGetStats_Success(t *testing.T) {
	// Подготовка
	service, repoMock, _ := newTestIncidentService(t)
	ctx := context.Background()
	expected := &models.Stats{
		UncategorizedReports: 3,
		LinkedReports:        10,
		RejectedReports:      1,
		OpenIncidents:        4,
	}

	// Ожидания
	repoMock.EXPECT().GetStats(ctx).Return(expected, nil)

	// Действие
	stats, err := service.GetStats(ctx)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, expected, stats)
}
