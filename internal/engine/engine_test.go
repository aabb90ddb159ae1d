package engine

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/incident_correlation_system/internal/config"
	"github.com/shenikar/incident_correlation_system/internal/engine/mocks"
	"github.com/shenikar/incident_correlation_system/internal/escalation"
	escalation_mocks "github.com/shenikar/incident_correlation_system/internal/escalation/mocks"
	"github.com/shenikar/incident_correlation_system/internal/models"
	"github.com/shenikar/incident_correlation_system/internal/scorer"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type engineMocks struct {
	store     *mocks.MockIncidentStore
	locker    *mocks.MockCommitLocker
	scorer    *mocks.MockPairScorer
	publisher *escalation_mocks.MockPublisher
}

// newTestEngine — вспомогательная функция для создания движка с моками.
func newTestEngine(t *testing.T) (*Engine, *engineMocks) {
	ctrl := gomock.NewController(t)
	m := &engineMocks{
		store:     mocks.NewMockIncidentStore(ctrl),
		locker:    mocks.NewMockCommitLocker(ctrl),
		scorer:    mocks.NewMockPairScorer(ctrl),
		publisher: escalation_mocks.NewMockPublisher(ctrl),
	}

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	cfg := &config.Config{
		IncidentLookback: 24 * time.Hour,
		LeaseTTL:         10 * time.Second,
	}

	return New(m.store, m.locker, m.scorer, m.publisher, logger, cfg), m
}

func uncategorizedReport() *models.Report {
	occurred := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &models.Report{
		ID:           uuid.New(),
		Status:       models.ReportStatusUncategorized,
		Summary:      "structure fire at warehouse",
		IncidentType: "fire",
		OccurredAt:   &occurred,
		ReceivedAt:   occurred.Add(time.Minute),
	}
}

func openIncident(version int64) *models.Incident {
	return &models.Incident{
		ID:            uuid.New(),
		State:         models.IncidentStateOpen,
		Version:       version,
		LastUpdatedAt: time.Date(2025, 6, 1, 11, 30, 0, 0, time.UTC),
	}
}

func scoreResult(incidentID uuid.UUID, verdict scorer.Verdict) *scorer.ScoreResult {
	return &scorer.ScoreResult{
		IncidentID: incidentID,
		Temporal:   true,
		Spatial:    scorer.SpatialCompatible,
		Semantic:   0.9,
		Verdict:    verdict,
	}
}

func expectLease(m *engineMocks, key string) {
	m.locker.EXPECT().AcquireLease(gomock.Any(), key, 10*time.Second).Return(true, nil)
	m.locker.EXPECT().ReleaseLease(gomock.Any(), key).Return(nil)
}

func TestProcess_NoMatchesCreatesIncident(t *testing.T) {
	// Подготовка
	engine, m := newTestEngine(t)
	ctx := context.Background()
	report := uncategorizedReport()
	existing := openIncident(1)
	created := openIncident(1)

	// Ожидания: единственный открытый инцидент скорится в no_match,
	// создание идет под общим create-лизом с перечитыванием списка
	m.store.EXPECT().GetReport(ctx, report.ID).Return(report, nil)
	m.store.EXPECT().ListOpenIncidents(ctx, gomock.Any()).Return([]*models.Incident{existing}, nil)
	m.scorer.EXPECT().Score(ctx, report, existing).Return(scoreResult(existing.ID, scorer.VerdictNoMatch), nil)
	expectLease(m, "lease:incident:create")
	m.store.EXPECT().ListOpenIncidents(ctx, gomock.Any()).Return([]*models.Incident{existing}, nil)
	m.store.EXPECT().CreateIncident(ctx, report).Return(created, nil)

	// Действие
	decision, err := engine.Process(ctx, report)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, decision.Outcome)
	require.NotNil(t, decision.IncidentID)
	assert.Equal(t, created.ID, *decision.IncidentID)
}

func TestProcess_SingleStrongMatchMerges(t *testing.T) {
	// Подготовка
	engine, m := newTestEngine(t)
	ctx := context.Background()
	report := uncategorizedReport()
	target := openIncident(3)
	other := openIncident(1)

	// Ожидания: merge идет под пер-инцидентным лизом с CAS по version
	m.store.EXPECT().GetReport(ctx, report.ID).Return(report, nil)
	m.store.EXPECT().ListOpenIncidents(ctx, gomock.Any()).Return([]*models.Incident{target, other}, nil)
	m.scorer.EXPECT().Score(ctx, report, target).Return(scoreResult(target.ID, scorer.VerdictStrongMatch), nil)
	m.scorer.EXPECT().Score(ctx, report, other).Return(scoreResult(other.ID, scorer.VerdictNoMatch), nil)
	expectLease(m, "lease:incident:"+target.ID.String())
	m.store.EXPECT().AppendReport(ctx, target.ID, int64(3), report).Return(target, nil)

	// Действие
	decision, err := engine.Process(ctx, report)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, OutcomeMerged, decision.Outcome)
	require.NotNil(t, decision.IncidentID)
	assert.Equal(t, target.ID, *decision.IncidentID)
}

func TestProcess_CandidatesEscalate(t *testing.T) {
	// Подготовка
	engine, m := newTestEngine(t)
	ctx := context.Background()
	report := uncategorizedReport()
	first := openIncident(1)
	second := openIncident(1)
	second.LastUpdatedAt = first.LastUpdatedAt.Add(time.Minute)

	var published escalation.Event

	// Ожидания: событие эскалации публикуется раньше пометки сообщения
	m.store.EXPECT().GetReport(ctx, report.ID).Return(report, nil)
	m.store.EXPECT().ListOpenIncidents(ctx, gomock.Any()).Return([]*models.Incident{first, second}, nil)
	m.scorer.EXPECT().Score(ctx, report, first).Return(scoreResult(first.ID, scorer.VerdictCandidate), nil)
	m.scorer.EXPECT().Score(ctx, report, second).Return(scoreResult(second.ID, scorer.VerdictCandidate), nil)
	m.publisher.EXPECT().Publish(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, event escalation.Event) error {
			published = event
			return nil
		})
	m.store.EXPECT().MarkReportEscalated(ctx, report.ID, gomock.Any()).Return(nil)

	// Действие
	decision, err := engine.Process(ctx, report)

	// Проверки: кандидаты отсортированы по свежести инцидента
	require.NoError(t, err)
	assert.Equal(t, OutcomeEscalated, decision.Outcome)
	assert.False(t, decision.ConflictingStrongMatch)
	require.Len(t, decision.CandidateIncidentIDs, 2)
	assert.Equal(t, second.ID, decision.CandidateIncidentIDs[0])
	assert.Equal(t, first.ID, decision.CandidateIncidentIDs[1])
	assert.Equal(t, report.ID, published.ReportID)
	assert.Len(t, published.Scores, 2)
}

func TestProcess_ConflictingStrongMatchesEscalate(t *testing.T) {
	// Подготовка: два strong_match одновременно - движок не угадывает
	engine, m := newTestEngine(t)
	ctx := context.Background()
	report := uncategorizedReport()
	first := openIncident(1)
	second := openIncident(1)

	// Ожидания
	m.store.EXPECT().GetReport(ctx, report.ID).Return(report, nil)
	m.store.EXPECT().ListOpenIncidents(ctx, gomock.Any()).Return([]*models.Incident{first, second}, nil)
	m.scorer.EXPECT().Score(ctx, report, first).Return(scoreResult(first.ID, scorer.VerdictStrongMatch), nil)
	m.scorer.EXPECT().Score(ctx, report, second).Return(scoreResult(second.ID, scorer.VerdictStrongMatch), nil)
	m.publisher.EXPECT().Publish(ctx, gomock.Any()).Return(nil)
	m.store.EXPECT().MarkReportEscalated(ctx, report.ID, gomock.Any()).Return(nil)

	// Действие
	decision, err := engine.Process(ctx, report)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, OutcomeEscalated, decision.Outcome)
	assert.True(t, decision.ConflictingStrongMatch)
	assert.Len(t, decision.CandidateIncidentIDs, 2)
}

func TestProcess_AlreadyLinkedIsIdempotent(t *testing.T) {
	// Подготовка: повторная доставка уже привязанного сообщения
	engine, m := newTestEngine(t)
	ctx := context.Background()
	report := uncategorizedReport()
	incidentID := uuid.New()
	linked := *report
	linked.Status = models.ReportStatusLinked
	linked.IncidentID = &incidentID

	// Ожидания: ни скоринга, ни записей
	m.store.EXPECT().GetReport(ctx, report.ID).Return(&linked, nil)

	// Действие
	decision, err := engine.Process(ctx, report)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, OutcomeMerged, decision.Outcome)
	assert.Equal(t, incidentID, *decision.IncidentID)
}

func TestProcess_AlreadyRejectedIsSkipped(t *testing.T) {
	// Подготовка
	engine, m := newTestEngine(t)
	ctx := context.Background()
	report := uncategorizedReport()
	rejected := *report
	rejected.Status = models.ReportStatusRejected

	// Ожидания
	m.store.EXPECT().GetReport(ctx, report.ID).Return(&rejected, nil)

	// Действие
	decision, err := engine.Process(ctx, report)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, decision.Outcome)
	assert.Nil(t, decision.IncidentID)
}

func TestProcess_ExternalRefBypassesScoring(t *testing.T) {
	// Подготовка: совпадение external_ref авторитетно, скоринг не выполняется
	engine, m := newTestEngine(t)
	ctx := context.Background()
	report := uncategorizedReport()
	ref := "CAD-2025-001"
	report.ExternalRef = &ref
	target := openIncident(7)

	// Ожидания
	m.store.EXPECT().GetReport(ctx, report.ID).Return(report, nil)
	m.store.EXPECT().FindIncidentByExternalRef(ctx, ref).Return(target, nil)
	expectLease(m, "lease:incident:"+target.ID.String())
	m.store.EXPECT().AppendReport(ctx, target.ID, int64(7), report).Return(target, nil)

	// Действие
	decision, err := engine.Process(ctx, report)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, OutcomeMerged, decision.Outcome)
	assert.Equal(t, target.ID, *decision.IncidentID)
}

func TestProcess_ExternalRefToClosedIncidentEscalates(t *testing.T) {
	// Подготовка: инцидент закрылся между поиском и коммитом
	engine, m := newTestEngine(t)
	ctx := context.Background()
	report := uncategorizedReport()
	ref := "CAD-2025-002"
	report.ExternalRef = &ref
	target := openIncident(2)
	closed := *target
	closed.State = models.IncidentStateClosed

	// Ожидания: append отвергнут, повторный поиск по ref видит закрытый
	// инцидент - эскалация
	m.store.EXPECT().GetReport(ctx, report.ID).Return(report, nil)
	m.store.EXPECT().FindIncidentByExternalRef(ctx, ref).Return(target, nil)
	expectLease(m, "lease:incident:"+target.ID.String())
	m.store.EXPECT().AppendReport(ctx, target.ID, int64(2), report).Return(nil, ErrIncidentNotOpen)
	m.store.EXPECT().FindIncidentByExternalRef(ctx, ref).Return(&closed, nil)
	m.publisher.EXPECT().Publish(ctx, gomock.Any()).Return(nil)
	m.store.EXPECT().MarkReportEscalated(ctx, report.ID, []uuid.UUID{target.ID}).Return(nil)

	// Действие
	decision, err := engine.Process(ctx, report)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, OutcomeEscalated, decision.Outcome)
	assert.Equal(t, []uuid.UUID{target.ID}, decision.CandidateIncidentIDs)
}

func TestProcess_ExternalRefRecheckedAfterCreateRace(t *testing.T) {
	// Подготовка: два сообщения с одним external_ref приходят одновременно.
	// Первое уже успело создать инцидент, пока второе ждало create-лиз.
	engine, m := newTestEngine(t)
	ctx := context.Background()
	report := uncategorizedReport()
	ref := "CAD-2025-003"
	report.ExternalRef = &ref
	rival := openIncident(2)

	// Ожидания: первый прогон - ref еще не связан, снимок пуст, перечитывание
	// под create-лизом находит чужой инцидент и отменяет создание
	m.store.EXPECT().GetReport(ctx, report.ID).Return(report, nil)
	m.store.EXPECT().FindIncidentByExternalRef(ctx, ref).Return(nil, nil)
	m.store.EXPECT().ListOpenIncidents(ctx, gomock.Any()).Return([]*models.Incident{}, nil)
	expectLease(m, "lease:incident:create")
	m.store.EXPECT().ListOpenIncidents(ctx, gomock.Any()).Return([]*models.Incident{rival}, nil)

	// Ожидания: второй прогон перепроверяет ref, находит инцидент соперника
	// и вливается в него авторитетно - повторный скоринг не выполняется
	// и второй инцидент не создается
	m.store.EXPECT().FindIncidentByExternalRef(ctx, ref).Return(rival, nil)
	expectLease(m, "lease:incident:"+rival.ID.String())
	m.store.EXPECT().AppendReport(ctx, rival.ID, int64(2), report).Return(rival, nil)

	// Действие
	decision, err := engine.Process(ctx, report)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, OutcomeMerged, decision.Outcome)
	require.NotNil(t, decision.IncidentID)
	assert.Equal(t, rival.ID, *decision.IncidentID)
}

func TestProcess_StoreConflictRerunsCorrelation(t *testing.T) {
	// Подготовка: CAS отвергает первый merge, второй прогон видит свежую версию
	engine, m := newTestEngine(t)
	ctx := context.Background()
	report := uncategorizedReport()
	target := openIncident(3)
	refreshed := *target
	refreshed.Version = 4

	leaseKey := "lease:incident:" + target.ID.String()

	m.store.EXPECT().GetReport(ctx, report.ID).Return(report, nil)

	// Ожидания: первый прогон - конфликт версии
	m.store.EXPECT().ListOpenIncidents(ctx, gomock.Any()).Return([]*models.Incident{target}, nil)
	m.scorer.EXPECT().Score(ctx, report, target).Return(scoreResult(target.ID, scorer.VerdictStrongMatch), nil)
	m.locker.EXPECT().AcquireLease(gomock.Any(), leaseKey, gomock.Any()).Return(true, nil)
	m.store.EXPECT().AppendReport(ctx, target.ID, int64(3), report).Return(nil, ErrStoreConflict)
	m.locker.EXPECT().ReleaseLease(gomock.Any(), leaseKey).Return(nil)

	// Ожидания: второй прогон - скоринг заново против обновленного снимка
	m.store.EXPECT().ListOpenIncidents(ctx, gomock.Any()).Return([]*models.Incident{&refreshed}, nil)
	m.scorer.EXPECT().Score(ctx, report, &refreshed).Return(scoreResult(refreshed.ID, scorer.VerdictStrongMatch), nil)
	m.locker.EXPECT().AcquireLease(gomock.Any(), leaseKey, gomock.Any()).Return(true, nil)
	m.store.EXPECT().AppendReport(ctx, target.ID, int64(4), report).Return(&refreshed, nil)
	m.locker.EXPECT().ReleaseLease(gomock.Any(), leaseKey).Return(nil)

	// Действие
	decision, err := engine.Process(ctx, report)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, OutcomeMerged, decision.Outcome)
	assert.Equal(t, target.ID, *decision.IncidentID)
}

func TestProcess_CreateRaceRescores(t *testing.T) {
	// Подготовка: под create-лизом обнаружился инцидент, которого не было в снимке
	engine, m := newTestEngine(t)
	ctx := context.Background()
	report := uncategorizedReport()
	newcomer := openIncident(1)

	// Ожидания: первый прогон - пустой снимок, перечитывание под лизом
	// находит чужой свежесозданный инцидент, создание отменяется
	m.store.EXPECT().GetReport(ctx, report.ID).Return(report, nil)
	m.store.EXPECT().ListOpenIncidents(ctx, gomock.Any()).Return([]*models.Incident{}, nil)
	expectLease(m, "lease:incident:create")
	m.store.EXPECT().ListOpenIncidents(ctx, gomock.Any()).Return([]*models.Incident{newcomer}, nil)

	// Ожидания: второй прогон скорит новичка и вливается в него
	m.store.EXPECT().ListOpenIncidents(ctx, gomock.Any()).Return([]*models.Incident{newcomer}, nil)
	m.scorer.EXPECT().Score(ctx, report, newcomer).Return(scoreResult(newcomer.ID, scorer.VerdictStrongMatch), nil)
	expectLease(m, "lease:incident:"+newcomer.ID.String())
	m.store.EXPECT().AppendReport(ctx, newcomer.ID, int64(1), report).Return(newcomer, nil)

	// Действие
	decision, err := engine.Process(ctx, report)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, OutcomeMerged, decision.Outcome)
	assert.Equal(t, newcomer.ID, *decision.IncidentID)
}

func TestResolve_New(t *testing.T) {
	// Подготовка
	engine, m := newTestEngine(t)
	ctx := context.Background()
	report := uncategorizedReport()
	created := openIncident(1)

	// Ожидания
	m.store.EXPECT().GetReport(ctx, report.ID).Return(report, nil)
	m.store.EXPECT().CreateIncident(ctx, report).Return(created, nil)

	// Действие
	decision, err := engine.Resolve(ctx, report.ID, ResolutionNew)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, decision.Outcome)
	assert.Equal(t, created.ID, *decision.IncidentID)
}

func TestResolve_MergeIntoChosenIncident(t *testing.T) {
	// Подготовка
	engine, m := newTestEngine(t)
	ctx := context.Background()
	report := uncategorizedReport()
	target := openIncident(5)

	// Ожидания
	m.store.EXPECT().GetReport(ctx, report.ID).Return(report, nil)
	m.store.EXPECT().GetIncident(ctx, target.ID).Return(target, nil)
	expectLease(m, "lease:incident:"+target.ID.String())
	m.store.EXPECT().AppendReport(ctx, target.ID, int64(5), report).Return(target, nil)

	// Действие
	decision, err := engine.Resolve(ctx, report.ID, target.ID.String())

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, OutcomeMerged, decision.Outcome)
	assert.Equal(t, target.ID, *decision.IncidentID)
}

func TestResolve_ClosedIncidentRejected(t *testing.T) {
	// Подготовка: выбор указывает на уже закрытый инцидент
	engine, m := newTestEngine(t)
	ctx := context.Background()
	report := uncategorizedReport()
	target := openIncident(5)
	target.State = models.IncidentStateClosed

	// Ожидания
	m.store.EXPECT().GetReport(ctx, report.ID).Return(report, nil)
	m.store.EXPECT().GetIncident(ctx, target.ID).Return(target, nil)

	// Действие
	decision, err := engine.Resolve(ctx, report.ID, target.ID.String())

	// Проверки
	require.ErrorIs(t, err, ErrIncidentNotOpen)
	assert.Nil(t, decision)
}

func TestResolve_InvalidChoice(t *testing.T) {
	// Подготовка
	engine, m := newTestEngine(t)
	ctx := context.Background()
	report := uncategorizedReport()

	// Ожидания
	m.store.EXPECT().GetReport(ctx, report.ID).Return(report, nil)

	// Действие
	decision, err := engine.Resolve(ctx, report.ID, "not-a-uuid")

	// Проверки
	require.Error(t, err)
	assert.Nil(t, decision)
}

func TestResolve_AlreadyLinkedIsIdempotent(t *testing.T) {
	// Подготовка: tie-break сервис прислал решение повторно
	engine, m := newTestEngine(t)
	ctx := context.Background()
	report := uncategorizedReport()
	incidentID := uuid.New()
	linked := *report
	linked.Status = models.ReportStatusLinked
	linked.IncidentID = &incidentID

	// Ожидания
	m.store.EXPECT().GetReport(ctx, report.ID).Return(&linked, nil)

	// Действие
	decision, err := engine.Resolve(ctx, report.ID, incidentID.String())

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, OutcomeMerged, decision.Outcome)
	assert.Equal(t, incidentID, *decision.IncidentID)
}
