package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/incident_correlation_system/internal/config"
	"github.com/shenikar/incident_correlation_system/internal/engine"
	"github.com/shenikar/incident_correlation_system/internal/models"
	"github.com/shenikar/incident_correlation_system/internal/scheduler/mocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// newTestScheduler — вспомогательная функция для создания планировщика с моками.
func newTestScheduler(t *testing.T) (*Scheduler, *mocks.MockReportQueue, *mocks.MockCorrelator) {
	ctrl := gomock.NewController(t)
	queueMock := mocks.NewMockReportQueue(ctrl)
	correlatorMock := mocks.NewMockCorrelator(ctrl)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	cfg := &config.Config{
		WorkerCount:    2,
		PollInterval:   10 * time.Millisecond,
		MaxRetries:     5,
		RetryBaseDelay: time.Second,
	}

	return New(queueMock, correlatorMock, logger, cfg), queueMock, correlatorMock
}

func normalizedReport() *models.Report {
	now := time.Now().UTC()
	return &models.Report{
		ID:           uuid.New(),
		Status:       models.ReportStatusUncategorized,
		Summary:      "structure fire",
		IncidentType: "fire",
		ReceivedAt:   now,
		NormalizedAt: &now,
	}
}

func TestProcessReport_Success(t *testing.T) {
	// Подготовка
	scheduler, _, correlatorMock := newTestScheduler(t)
	ctx := context.Background()
	report := normalizedReport()
	incidentID := uuid.New()

	// Ожидания
	correlatorMock.EXPECT().
		Process(ctx, report).
		Return(&engine.Decision{Outcome: engine.OutcomeMerged, IncidentID: &incidentID}, nil)

	// Действие
	scheduler.processReport(ctx, report)
}

func TestProcessReport_NormalizesOnFirstPickup(t *testing.T) {
	// Подготовка: сырое сообщение, нормализация еще не выполнялась
	scheduler, queueMock, correlatorMock := newTestScheduler(t)
	ctx := context.Background()
	raw := json.RawMessage(`{"summary": "gas leak on 3rd ave", "incident_type": "hazmat", "source": "911"}`)
	report := &models.Report{
		ID:         uuid.New(),
		Status:     models.ReportStatusUncategorized,
		Source:     "api",
		ReceivedAt: time.Now().UTC(),
		RawPayload: raw,
	}

	// Ожидания: каноничные поля сохраняются до корреляции
	queueMock.EXPECT().SaveNormalized(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, normalized *models.Report) error {
			assert.Equal(t, report.ID, normalized.ID)
			assert.Equal(t, "gas leak on 3rd ave", normalized.Summary)
			assert.Equal(t, "hazmat", normalized.IncidentType)
			assert.Equal(t, "911", normalized.Source)
			return nil
		})
	correlatorMock.EXPECT().
		Process(ctx, gomock.Any()).
		Return(&engine.Decision{Outcome: engine.OutcomeCreated}, nil)

	// Действие
	scheduler.processReport(ctx, report)
}

func TestProcessReport_UnnormalizableIsRejected(t *testing.T) {
	// Подготовка: ни времени, ни текста - детерминированный отказ без ретраев
	scheduler, queueMock, correlatorMock := newTestScheduler(t)
	ctx := context.Background()
	report := &models.Report{
		ID:         uuid.New(),
		Status:     models.ReportStatusUncategorized,
		ReceivedAt: time.Now().UTC(),
		RawPayload: json.RawMessage(`{"latitude": 40.7, "longitude": -74.0}`),
	}

	// Ожидания: сообщение помечается rejected, корреляция не вызывается
	queueMock.EXPECT().
		MarkReportStatus(ctx, report.ID, models.ReportStatusRejected, gomock.Nil(), gomock.Any()).
		Return(nil)
	correlatorMock.EXPECT().Process(gomock.Any(), gomock.Any()).Times(0)

	// Действие
	scheduler.processReport(ctx, report)
}

func TestProcessReport_StoreConflictReschedulesImmediately(t *testing.T) {
	// Подготовка
	scheduler, queueMock, correlatorMock := newTestScheduler(t)
	ctx := context.Background()
	report := normalizedReport()
	report.Attempts = 2

	// Ожидания: конфликт записи не тратит попытки и не откладывает надолго
	correlatorMock.EXPECT().
		Process(ctx, report).
		Return(nil, engine.ErrStoreConflict)
	queueMock.EXPECT().Reschedule(ctx, report.ID, 2, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ uuid.UUID, _ int, nextAttemptAt time.Time) error {
			assert.WithinDuration(t, time.Now().UTC(), nextAttemptAt, time.Second)
			return nil
		})

	// Действие
	scheduler.processReport(ctx, report)
}

func TestProcessReport_TransientErrorBacksOffExponentially(t *testing.T) {
	tests := []struct {
		name          string
		attempts      int
		expectedDelay time.Duration
	}{
		{name: "первая попытка", attempts: 0, expectedDelay: time.Second},
		{name: "вторая попытка", attempts: 1, expectedDelay: 2 * time.Second},
		{name: "третья попытка", attempts: 2, expectedDelay: 4 * time.Second},
		{name: "четвертая попытка", attempts: 3, expectedDelay: 8 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Подготовка
			scheduler, queueMock, correlatorMock := newTestScheduler(t)
			ctx := context.Background()
			report := normalizedReport()
			report.Attempts = tt.attempts

			// Ожидания
			correlatorMock.EXPECT().
				Process(ctx, report).
				Return(nil, errors.New("collaborator timeout"))
			queueMock.EXPECT().
				Reschedule(ctx, report.ID, tt.attempts+1, gomock.Any()).
				DoAndReturn(func(_ context.Context, _ uuid.UUID, _ int, nextAttemptAt time.Time) error {
					assert.WithinDuration(t, time.Now().UTC().Add(tt.expectedDelay), nextAttemptAt, time.Second)
					return nil
				})

			// Действие
			scheduler.processReport(ctx, report)
		})
	}
}

func TestProcessReport_PoisonReportRejectedAfterMaxRetries(t *testing.T) {
	// Подготовка: пятая попытка - последняя
	scheduler, queueMock, correlatorMock := newTestScheduler(t)
	ctx := context.Background()
	report := normalizedReport()
	report.Attempts = 4

	// Ожидания: отравленное сообщение не должно блокировать очередь бесконечно
	correlatorMock.EXPECT().
		Process(ctx, report).
		Return(nil, errors.New("collaborator timeout"))
	queueMock.EXPECT().
		MarkReportStatus(ctx, report.ID, models.ReportStatusRejected, gomock.Nil(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, _ models.ReportStatus, _ *uuid.UUID, reason string) error {
			assert.Contains(t, reason, "ProcessingFailed")
			return nil
		})

	// Действие
	scheduler.processReport(ctx, report)
}

func TestScheduler_StartAndStop(t *testing.T) {
	// Подготовка
	scheduler, queueMock, _ := newTestScheduler(t)
	ctx, cancel := context.WithCancel(context.Background())

	// Ожидания: пустая очередь, просто крутимся до отмены контекста
	queueMock.EXPECT().
		NextPending(gomock.Any(), gomock.Any()).
		Return([]*models.Report{}, nil).
		AnyTimes()

	// Действие
	scheduler.Start(ctx)
	time.Sleep(50 * time.Millisecond)
	cancel()
	scheduler.Stop()
}

func TestScheduler_InFlightDeduplication(t *testing.T) {
	// Подготовка
	scheduler, _, _ := newTestScheduler(t)
	id := uuid.New()

	// Действие и проверки: повторный забор того же сообщения блокируется
	require.True(t, scheduler.markInFlight(id))
	require.False(t, scheduler.markInFlight(id))
	scheduler.clearInFlight(id)
	require.True(t, scheduler.markInFlight(id))
}
