package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shenikar/incident_correlation_system/internal/config"
	"github.com/shenikar/incident_correlation_system/internal/engine"
	"github.com/shenikar/incident_correlation_system/internal/models"
	"github.com/sirupsen/logrus"
)

// Repository определяет контракт для работы с хранилищем сообщений и инцидентов
type Repository interface {
	CreateReport(ctx context.Context, source string, raw json.RawMessage) (*models.Report, error)
	GetReport(ctx context.Context, id uuid.UUID) (*models.Report, error)
	GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	ListIncidents(ctx context.Context, page, pageSize int) ([]*models.Incident, error)
	GetIncidentReportIDs(ctx context.Context, incidentID uuid.UUID) ([]uuid.UUID, error)
	CloseIncident(ctx context.Context, id uuid.UUID) error
	GetStats(ctx context.Context) (*models.Stats, error)
	GetIncidentFromCache(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	SetIncidentCache(ctx context.Context, incident *models.Incident) error
	InvalidateIncidentCache(ctx context.Context, id uuid.UUID) error
}

// Resolver применяет решение tie-break коллаборатора. Реализуется engine.Engine
type Resolver interface {
	Resolve(ctx context.Context, reportID uuid.UUID, choice string) (*engine.Decision, error)
}

// IncidentService определяет контракт бизнес-логики API конвейера корреляции
type IncidentService interface {
	IngestReport(ctx context.Context, source string, payload json.RawMessage) (*models.Report, error)
	GetReport(ctx context.Context, id uuid.UUID) (*models.Report, error)
	GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	GetIncidentReportIDs(ctx context.Context, incidentID uuid.UUID) ([]uuid.UUID, error)
	ListIncidents(ctx context.Context, page, pageSize int) ([]*models.Incident, error)
	CloseIncident(ctx context.Context, id uuid.UUID) error
	ResolveReport(ctx context.Context, reportID uuid.UUID, choice string) (*engine.Decision, error)
	GetStats(ctx context.Context) (*models.Stats, error)
}

type incidentService struct {
	repo     Repository
	resolver Resolver
	logger   *logrus.Logger
	cfg      *config.Config
}

func NewIncidentService(repo Repository, resolver Resolver, logger *logrus.Logger, cfg *config.Config) IncidentService {
	return &incidentService{
		repo:     repo,
		resolver: resolver,
		logger:   logger,
		cfg:      cfg,
	}
}

// IngestReport - единственная точка входа сообщений в конвейер:
// запись создается uncategorized и попадает в очередь планировщика
func (s *incidentService) IngestReport(ctx context.Context, source string, payload json.RawMessage) (*models.Report, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "incident",
		"method":  "IngestReport",
		"source":  source,
	})
	log.Info("Ingesting raw report")

	report, err := s.repo.CreateReport(ctx, source, payload)
	if err != nil {
		log.WithError(err).Error("Failed to create report in repository")
		return nil, fmt.Errorf("service: could not ingest report: %w", err)
	}

	log.WithField("report_id", report.ID).Info("Report ingested successfully")
	return report, nil
}

// GetReport получает сообщение по ID
func (s *incidentService) GetReport(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":   "incident",
		"method":    "GetReport",
		"report_id": id,
	})

	report, err := s.repo.GetReport(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Failed to get report in repository")
		return nil, fmt.Errorf("service: could not get report: %w", err)
	}
	return report, nil
}

// GetIncident получает инцидент по ID (сначала из кэша, затем из БД)
func (s *incidentService) GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "GetIncident",
		"incident_id": id,
	})

	cached, err := s.repo.GetIncidentFromCache(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Incident cache lookup failed, falling back to DB")
	}
	if cached != nil {
		log.Debug("Incident served from cache")
		return cached, nil
	}

	incident, err := s.repo.GetIncident(ctx, id)
	if err != nil {
		log.WithError(err).Error("Failed to get incident in repository")
		return nil, fmt.Errorf("service: could not get incident: %w", err)
	}

	if err := s.repo.SetIncidentCache(ctx, incident); err != nil {
		log.WithError(err).Warn("Failed to cache incident")
	}
	return incident, nil
}

// GetIncidentReportIDs возвращает сообщения инцидента в порядке корреляции
func (s *incidentService) GetIncidentReportIDs(ctx context.Context, incidentID uuid.UUID) ([]uuid.UUID, error) {
	ids, err := s.repo.GetIncidentReportIDs(ctx, incidentID)
	if err != nil {
		return nil, fmt.Errorf("service: could not get incident reports: %w", err)
	}
	return ids, nil
}

// ListIncidents возвращает список инцидентов с пагинацией
func (s *incidentService) ListIncidents(ctx context.Context, page, pageSize int) ([]*models.Incident, error) {
	if page < 1 {
		page = 1
	}

	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	log := s.logger.WithFields(logrus.Fields{
		"service":   "incident",
		"method":    "ListIncidents",
		"page":      page,
		"page_size": pageSize,
	})

	incidents, err := s.repo.ListIncidents(ctx, page, pageSize)
	if err != nil {
		log.WithError(err).Error("Failed to list incidents from repository")
		return nil, fmt.Errorf("service: could not list incidents: %w", err)
	}

	log.WithField("count", len(incidents)).Info("Incidents listed successfully")
	return incidents, nil
}

// CloseIncident закрывает инцидент по действию оператора
func (s *incidentService) CloseIncident(ctx context.Context, id uuid.UUID) error {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "CloseIncident",
		"incident_id": id,
	})
	log.Info("Attempting to close incident")

	if err := s.repo.CloseIncident(ctx, id); err != nil {
		log.WithError(err).Error("Failed to close incident in repository")
		return fmt.Errorf("service: could not close incident: %w", err)
	}

	log.Info("Incident closed successfully")
	return nil
}

// ResolveReport применяет решение внешнего tie-break коллаборатора
func (s *incidentService) ResolveReport(ctx context.Context, reportID uuid.UUID, choice string) (*engine.Decision, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":   "incident",
		"method":    "ResolveReport",
		"report_id": reportID,
		"choice":    choice,
	})
	log.Info("Applying tie-break resolution")

	decision, err := s.resolver.Resolve(ctx, reportID, choice)
	if err != nil {
		log.WithError(err).Error("Failed to apply resolution")
		return nil, fmt.Errorf("service: could not resolve report: %w", err)
	}

	if decision.IncidentID != nil {
		if err := s.repo.InvalidateIncidentCache(ctx, *decision.IncidentID); err != nil {
			log.WithError(err).Warn("Failed to invalidate incident cache after resolution")
		}
	}

	log.WithField("outcome", decision.Outcome).Info("Resolution applied successfully")
	return decision, nil
}

// GetStats возвращает сводные счетчики конвейера
func (s *incidentService) GetStats(ctx context.Context) (*models.Stats, error) {
	stats, err := s.repo.GetStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: could not get stats: %w", err)
	}
	return stats, nil
}
