package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/incident_correlation_system/internal/models"
	"github.com/shenikar/incident_correlation_system/internal/scorer"
)

// IncidentStore определяет контракт движка корреляции к хранилищу.
// Записи коммита (CreateIncident, AppendReport) атомарны: другие воркеры
// видят либо состояние до, либо состояние после, но не промежуточное.
type IncidentStore interface {
	GetReport(ctx context.Context, id uuid.UUID) (*models.Report, error)
	GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	ListOpenIncidents(ctx context.Context, updatedAfter time.Time) ([]*models.Incident, error)
	// FindIncidentByExternalRef возвращает инцидент, содержащий привязанное
	// сообщение с данным external_ref, либо nil если такого нет
	FindIncidentByExternalRef(ctx context.Context, externalRef string) (*models.Incident, error)
	CreateIncident(ctx context.Context, report *models.Report) (*models.Incident, error)
	// AppendReport добавляет сообщение в инцидент с CAS по version.
	// Возвращает ErrStoreConflict при смене version и ErrIncidentNotOpen для закрытых.
	AppendReport(ctx context.Context, incidentID uuid.UUID, expectedVersion int64, report *models.Report) (*models.Incident, error)
	MarkReportStatus(ctx context.Context, reportID uuid.UUID, status models.ReportStatus, incidentID *uuid.UUID, reason string) error
	MarkReportEscalated(ctx context.Context, reportID uuid.UUID, candidateIDs []uuid.UUID) error
}

// CommitLocker - взаимное исключение коммитов по одному инциденту.
// Лиз берется только вокруг коммита, никогда вокруг семантического скоринга.
type CommitLocker interface {
	AcquireLease(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLease(ctx context.Context, key string) error
}

// PairScorer оценивает пару (сообщение, инцидент). Реализуется scorer.Scorer
type PairScorer interface {
	Score(ctx context.Context, report *models.Report, incident *models.Incident) (*scorer.ScoreResult, error)
}
