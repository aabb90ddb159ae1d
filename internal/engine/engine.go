package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/incident_correlation_system/internal/config"
	"github.com/shenikar/incident_correlation_system/internal/escalation"
	"github.com/shenikar/incident_correlation_system/internal/models"
	"github.com/shenikar/incident_correlation_system/internal/scorer"
	"github.com/shenikar/incident_correlation_system/pkg/logger"
	"github.com/sirupsen/logrus"
)

const (
	// Предел повторных прогонов шагов выбора внутри одного вызова Process.
	// Считает только ErrStoreConflict/ErrIncidentNotOpen, не ошибки коллабораторов.
	maxCommitRetries = 5

	leaseAcquireAttempts = 40
	leaseRetryDelay      = 25 * time.Millisecond

	createLeaseKey = "lease:incident:create"
)

// ResolutionNew - выбор tie-break коллаборатора "создать новый инцидент"
const ResolutionNew = "new"

// Outcome - итог обработки сообщения движком
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeMerged    Outcome = "merged"
	OutcomeEscalated Outcome = "escalated"
	// OutcomeSkipped - сообщение уже было linked/rejected, повторная доставка
	OutcomeSkipped Outcome = "skipped"
)

// Decision - решение движка по одному сообщению
type Decision struct {
	Outcome                Outcome     `json:"outcome"`
	IncidentID             *uuid.UUID  `json:"incident_id,omitempty"`
	CandidateIncidentIDs   []uuid.UUID `json:"candidate_incident_ids,omitempty"`
	ConflictingStrongMatch bool        `json:"conflicting_strong_match,omitempty"`
}

// Engine - конечный автомат корреляции: received -> gated -> scored -> decided -> committed|escalated
type Engine struct {
	store     IncidentStore
	locker    CommitLocker
	scorer    PairScorer
	publisher escalation.Publisher
	logger    *logrus.Logger
	lookback  time.Duration
	leaseTTL  time.Duration
}

// New создает движок корреляции
func New(store IncidentStore, locker CommitLocker, pairScorer PairScorer, publisher escalation.Publisher, logger *logrus.Logger, cfg *config.Config) *Engine {
	return &Engine{
		store:     store,
		locker:    locker,
		scorer:    pairScorer,
		publisher: publisher,
		logger:    logger,
		lookback:  cfg.IncidentLookback,
		leaseTTL:  cfg.LeaseTTL,
	}
}

// Process принимает решение merge-or-create для одного сообщения.
// Детеминированно при фиксированном снимке открытых инцидентов и оценках скорера.
func (e *Engine) Process(ctx context.Context, report *models.Report) (*Decision, error) {
	log := logger.WithComponent(e.logger, "engine").WithField("report_id", report.ID)

	// Идемпотентность: уже решенное сообщение возвращает прежнее решение
	current, err := e.store.GetReport(ctx, report.ID)
	if err != nil {
		return nil, fmt.Errorf("engine: could not load report: %w", err)
	}
	switch current.Status {
	case models.ReportStatusLinked:
		log.WithField("incident_id", current.IncidentID).Debug("Report already linked, skipping")
		return &Decision{Outcome: OutcomeMerged, IncidentID: current.IncidentID}, nil
	case models.ReportStatusRejected:
		log.Debug("Report already rejected, skipping")
		return &Decision{Outcome: OutcomeSkipped}, nil
	}
	report = current

	for attempt := 0; attempt < maxCommitRetries; attempt++ {
		decision, retry, err := e.decideAndCommit(ctx, report)
		if err != nil {
			return nil, err
		}
		if !retry {
			return decision, nil
		}
		log.WithField("attempt", attempt+1).Debug("Commit conflicted, re-running correlation against refreshed incidents")
	}
	return nil, fmt.Errorf("engine: correlation did not converge after %d attempts: %w", maxCommitRetries, ErrStoreConflict)
}

// decideAndCommit выполняет один прогон выбора: проверка external_ref,
// снимок открытых инцидентов, скоринг, решение и атомарный коммит. Второе
// возвращаемое значение - признак "перечитать и повторить" после конфликта.
func (e *Engine) decideAndCommit(ctx context.Context, report *models.Report) (*Decision, bool, error) {
	log := logger.WithComponent(e.logger, "engine").WithField("report_id", report.ID)

	// Жесткое ограничение: совпадение external_ref авторитетно и минует скоринг.
	// Проверяется на каждом прогоне: проигранная гонка создания могла уже
	// породить инцидент с тем же external_ref, и тогда merge обязателен
	// независимо от того, что скажет повторный скоринг.
	if report.ExternalRef != nil && *report.ExternalRef != "" {
		incident, err := e.store.FindIncidentByExternalRef(ctx, *report.ExternalRef)
		if err != nil {
			return nil, false, fmt.Errorf("engine: external ref lookup failed: %w", err)
		}
		if incident != nil {
			if incident.State != models.IncidentStateOpen {
				// Жесткое ограничение против закрытого инцидента решает оператор
				log.WithField("incident_id", incident.ID).Warn("External ref points to a closed incident, escalating")
				decision, err := e.escalate(ctx, report, []uuid.UUID{incident.ID}, nil, false)
				return decision, false, err
			}
			log.WithField("incident_id", incident.ID).Info("External ref match, merging without scoring")
			merged, retry, err := e.commitMerge(ctx, report, incident)
			if err != nil || retry {
				return nil, retry, err
			}
			return merged, false, nil
		}
	}

	updatedAfter := time.Now().UTC().Add(-e.lookback)
	incidents, err := e.store.ListOpenIncidents(ctx, updatedAfter)
	if err != nil {
		return nil, false, fmt.Errorf("engine: could not list open incidents: %w", err)
	}

	byID := make(map[uuid.UUID]*models.Incident, len(incidents))
	scores := make([]*scorer.ScoreResult, 0, len(incidents))
	var strong, candidates []*scorer.ScoreResult

	// Скоринг выполняется без каких-либо лизов: вызов коллаборатора медленный
	for _, incident := range incidents {
		byID[incident.ID] = incident
		result, err := e.scorer.Score(ctx, report, incident)
		if err != nil {
			return nil, false, fmt.Errorf("engine: scoring against incident %s failed: %w", incident.ID, err)
		}
		scores = append(scores, result)
		switch result.Verdict {
		case scorer.VerdictStrongMatch:
			strong = append(strong, result)
		case scorer.VerdictCandidate:
			candidates = append(candidates, result)
		}
	}

	// Свежесть инцидента - лучший приор, чем произвольный порядок
	recency := func(results []*scorer.ScoreResult) {
		sort.SliceStable(results, func(i, j int) bool {
			return byID[results[i].IncidentID].LastUpdatedAt.After(byID[results[j].IncidentID].LastUpdatedAt)
		})
	}
	recency(strong)
	recency(candidates)

	switch {
	case len(strong) >= 2:
		// Два strong_match одновременно - ошибка гейтинга, не угадываем
		log.WithField("strong_count", len(strong)).Warn("Conflicting strong matches, escalating")
		decision, err := e.escalate(ctx, report, resultIDs(strong), scores, true)
		return decision, false, err

	case len(strong) == 1:
		target := byID[strong[0].IncidentID]
		merged, retry, err := e.commitMerge(ctx, report, target)
		if err != nil || retry {
			return nil, retry, err
		}
		log.WithField("incident_id", target.ID).Info("Report merged into incident")
		return merged, false, nil

	case len(candidates) >= 1:
		log.WithField("candidate_count", len(candidates)).Info("Ambiguous match, escalating to tie-break collaborator")
		decision, err := e.escalate(ctx, report, resultIDs(candidates), scores, false)
		return decision, false, err

	default:
		return e.commitCreate(ctx, report, byID)
	}
}

// commitMerge добавляет сообщение в инцидент под пер-инцидентным лизом с CAS
func (e *Engine) commitMerge(ctx context.Context, report *models.Report, incident *models.Incident) (*Decision, bool, error) {
	key := incidentLeaseKey(incident.ID)
	if !e.acquireLease(ctx, key) {
		// Лиз держит другой воркер - его коммит изменит инцидент, перечитываем
		return nil, true, nil
	}
	defer e.releaseLease(ctx, key)

	_, err := e.store.AppendReport(ctx, incident.ID, incident.Version, report)
	if errors.Is(err, ErrStoreConflict) || errors.Is(err, ErrIncidentNotOpen) {
		e.logger.WithField("incident_id", incident.ID).WithError(err).Debug("Append rejected, refreshing incident set")
		return nil, true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("engine: could not append report to incident %s: %w", incident.ID, err)
	}

	id := incident.ID
	return &Decision{Outcome: OutcomeMerged, IncidentID: &id}, false, nil
}

// commitCreate создает новый инцидент под общим create-лизом.
// Перепроверка списка под лизом закрывает главную гонку: два сообщения об
// одном новом событии, пришедшие одновременно, не должны породить два инцидента.
func (e *Engine) commitCreate(ctx context.Context, report *models.Report, seen map[uuid.UUID]*models.Incident) (*Decision, bool, error) {
	if !e.acquireLease(ctx, createLeaseKey) {
		return nil, true, nil
	}
	defer e.releaseLease(ctx, createLeaseKey)

	updatedAfter := time.Now().UTC().Add(-e.lookback)
	fresh, err := e.store.ListOpenIncidents(ctx, updatedAfter)
	if err != nil {
		return nil, false, fmt.Errorf("engine: could not re-list open incidents: %w", err)
	}
	for _, incident := range fresh {
		if _, ok := seen[incident.ID]; !ok {
			// Появился инцидент, которого не было в снимке - скоримся заново
			// вне лиза (эмбеддинги закешированы, повтор дешевый)
			return nil, true, nil
		}
	}

	incident, err := e.store.CreateIncident(ctx, report)
	if err != nil {
		return nil, false, fmt.Errorf("engine: could not create incident: %w", err)
	}

	logger.WithComponent(e.logger, "engine").WithFields(logrus.Fields{
		"report_id":   report.ID,
		"incident_id": incident.ID,
	}).Info("New incident created")

	id := incident.ID
	return &Decision{Outcome: OutcomeCreated, IncidentID: &id}, false, nil
}

// Resolve применяет решение внешнего tie-break коллаборатора.
// choice - либо uuid инцидента, либо ResolutionNew. Решение авторитетно.
func (e *Engine) Resolve(ctx context.Context, reportID uuid.UUID, choice string) (*Decision, error) {
	report, err := e.store.GetReport(ctx, reportID)
	if err != nil {
		return nil, fmt.Errorf("engine: could not load report for resolution: %w", err)
	}
	switch report.Status {
	case models.ReportStatusLinked:
		return &Decision{Outcome: OutcomeMerged, IncidentID: report.IncidentID}, nil
	case models.ReportStatusRejected:
		return &Decision{Outcome: OutcomeSkipped}, nil
	}

	if choice == ResolutionNew {
		incident, err := e.store.CreateIncident(ctx, report)
		if err != nil {
			return nil, fmt.Errorf("engine: could not create incident from resolution: %w", err)
		}
		id := incident.ID
		return &Decision{Outcome: OutcomeCreated, IncidentID: &id}, nil
	}

	incidentID, err := uuid.Parse(choice)
	if err != nil {
		return nil, fmt.Errorf("engine: invalid resolution choice %q: %w", choice, err)
	}

	for attempt := 0; attempt < maxCommitRetries; attempt++ {
		incident, err := e.store.GetIncident(ctx, incidentID)
		if err != nil {
			return nil, fmt.Errorf("engine: could not load incident for resolution: %w", err)
		}
		if incident.State != models.IncidentStateOpen {
			return nil, fmt.Errorf("engine: resolution targets incident %s: %w", incidentID, ErrIncidentNotOpen)
		}

		decision, retry, err := e.commitMerge(ctx, report, incident)
		if err != nil {
			return nil, err
		}
		if !retry {
			return decision, nil
		}
	}
	return nil, fmt.Errorf("engine: resolution merge did not converge after %d attempts: %w", maxCommitRetries, ErrStoreConflict)
}

// escalate публикует событие для внешнего коллаборатора и помечает сообщение.
// Эскалированное сообщение остается uncategorized: по истечении окна ожидания
// планировщик вернет его в обработку, данные не теряются молча.
func (e *Engine) escalate(ctx context.Context, report *models.Report, candidateIDs []uuid.UUID, scores []*scorer.ScoreResult, conflicting bool) (*Decision, error) {
	event := escalation.Event{
		ReportID:               report.ID,
		Summary:                report.Summary,
		IncidentType:           report.IncidentType,
		CandidateIncidentIDs:   candidateIDs,
		Scores:                 scores,
		ConflictingStrongMatch: conflicting,
		Timestamp:              time.Now().UTC(),
	}
	if err := e.publisher.Publish(ctx, event); err != nil {
		return nil, fmt.Errorf("engine: could not publish escalation event: %w", err)
	}
	if err := e.store.MarkReportEscalated(ctx, report.ID, candidateIDs); err != nil {
		return nil, fmt.Errorf("engine: could not mark report escalated: %w", err)
	}

	return &Decision{
		Outcome:                OutcomeEscalated,
		CandidateIncidentIDs:   candidateIDs,
		ConflictingStrongMatch: conflicting,
	}, nil
}

func (e *Engine) acquireLease(ctx context.Context, key string) bool {
	for i := 0; i < leaseAcquireAttempts; i++ {
		ok, err := e.locker.AcquireLease(ctx, key, e.leaseTTL)
		if err != nil {
			e.logger.WithError(err).WithField("key", key).Warn("Lease acquisition failed")
			return false
		}
		if ok {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(leaseRetryDelay):
		}
	}
	return false
}

func (e *Engine) releaseLease(ctx context.Context, key string) {
	if err := e.locker.ReleaseLease(ctx, key); err != nil {
		e.logger.WithError(err).WithField("key", key).Warn("Lease release failed")
	}
}

func incidentLeaseKey(id uuid.UUID) string {
	return fmt.Sprintf("lease:incident:%s", id.String())
}

func resultIDs(results []*scorer.ScoreResult) []uuid.UUID {
	ids := make([]uuid.UUID, len(results))
	for i, r := range results {
		ids[i] = r.IncidentID
	}
	return ids
}
