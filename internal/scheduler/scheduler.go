package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/incident_correlation_system/internal/config"
	"github.com/shenikar/incident_correlation_system/internal/engine"
	"github.com/shenikar/incident_correlation_system/internal/models"
	"github.com/shenikar/incident_correlation_system/internal/normalizer"
	"github.com/shenikar/incident_correlation_system/pkg/logger"
	"github.com/sirupsen/logrus"
)

const (
	// Предел экспоненциальной задержки между попытками
	maxRetryDelay = 5 * time.Minute

	idleSweepInterval = time.Minute
)

// ReportQueue определяет контракт планировщика к хранилищу очереди сообщений
type ReportQueue interface {
	// NextPending возвращает необработанные сообщения в порядке received_at
	NextPending(ctx context.Context, limit int) ([]*models.Report, error)
	SaveNormalized(ctx context.Context, report *models.Report) error
	Reschedule(ctx context.Context, reportID uuid.UUID, attempts int, nextAttemptAt time.Time) error
	MarkReportStatus(ctx context.Context, reportID uuid.UUID, status models.ReportStatus, incidentID *uuid.UUID, reason string) error
	CloseIdleIncidents(ctx context.Context, lastUpdatedBefore time.Time) (int64, error)
}

// Correlator - контракт движка корреляции. Реализуется engine.Engine
type Correlator interface {
	Process(ctx context.Context, report *models.Report) (*engine.Decision, error)
}

// Scheduler опрашивает очередь uncategorized-сообщений и раздает их N воркерам.
// Сообщения разных инцидентов обрабатываются полностью параллельно.
type Scheduler struct {
	queue      ReportQueue
	correlator Correlator
	logger     *logrus.Logger
	cfg        *config.Config

	jobs     chan *models.Report
	wg       sync.WaitGroup
	mu       sync.Mutex
	inFlight map[uuid.UUID]struct{}
}

// New создает новый Scheduler
func New(queue ReportQueue, correlator Correlator, logger *logrus.Logger, cfg *config.Config) *Scheduler {
	return &Scheduler{
		queue:      queue,
		correlator: correlator,
		logger:     logger,
		cfg:        cfg,
		jobs:       make(chan *models.Report, cfg.WorkerCount*2),
		inFlight:   make(map[uuid.UUID]struct{}),
	}
}

// Start запускает цикл опроса и пул воркеров
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Infof("Starting ingestion scheduler with %d workers...", s.cfg.WorkerCount)

	for i := 0; i < s.cfg.WorkerCount; i++ {
		s.wg.Add(1)
		go s.worker(ctx)
	}

	s.wg.Add(1)
	go s.pollLoop(ctx)
}

// Stop дожидается завершения начатых коммитов. Новые сообщения не берутся
// после отмены контекста, частичных состояний другим воркерам не видно.
func (s *Scheduler) Stop() {
	s.wg.Wait()
	s.logger.Info("Ingestion scheduler stopped.")
}

func (s *Scheduler) pollLoop(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.jobs)

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	lastSweep := time.Now()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Stopping scheduler poll loop.")
			return
		case <-ticker.C:
			s.pollOnce(ctx)

			// Политика закрытия по простою: не решение корреляции, а
			// внешнее действие, выполняемое обслуживающим циклом
			if s.cfg.IncidentIdleTimeout > 0 && time.Since(lastSweep) >= idleSweepInterval {
				lastSweep = time.Now()
				closed, err := s.queue.CloseIdleIncidents(ctx, time.Now().UTC().Add(-s.cfg.IncidentIdleTimeout))
				if err != nil {
					s.logger.WithError(err).Error("Failed to close idle incidents")
				} else if closed > 0 {
					s.logger.WithField("count", closed).Info("Closed idle incidents")
				}
			}
		}
	}
}

func (s *Scheduler) pollOnce(ctx context.Context) {
	reports, err := s.queue.NextPending(ctx, s.cfg.WorkerCount*2)
	if err != nil {
		s.logger.WithError(err).Error("Failed to fetch pending reports")
		return
	}

	for _, report := range reports {
		if !s.markInFlight(report.ID) {
			continue
		}
		select {
		case s.jobs <- report:
		case <-ctx.Done():
			s.clearInFlight(report.ID)
			return
		}
	}
}

func (s *Scheduler) worker(ctx context.Context) {
	defer s.wg.Done()
	for report := range s.jobs {
		s.processReport(ctx, report)
		s.clearInFlight(report.ID)
	}
}

func (s *Scheduler) processReport(ctx context.Context, report *models.Report) {
	log := logger.WithComponent(s.logger, "scheduler").WithField("report_id", report.ID)

	// Нормализация выполняется при первом заборе сообщения из очереди
	if report.NormalizedAt == nil {
		normalized, err := normalizer.Normalize(report.RawPayload, report.ID, report.ReceivedAt)
		if err != nil {
			// Детерминированный отказ: ретраи не помогут, сообщение отклоняется
			log.WithError(err).Warn("Report failed normalization, rejecting")
			if markErr := s.queue.MarkReportStatus(ctx, report.ID, models.ReportStatusRejected, nil, err.Error()); markErr != nil {
				log.WithError(markErr).Error("Failed to mark unnormalizable report rejected")
			}
			return
		}
		normalized.Source = firstNonEmpty(normalized.Source, report.Source)
		normalized.Attempts = report.Attempts
		if err := s.queue.SaveNormalized(ctx, normalized); err != nil {
			log.WithError(err).Error("Failed to persist normalized report")
			s.retryLater(ctx, report, err)
			return
		}
		report = normalized
	}

	decision, err := s.correlator.Process(ctx, report)
	if err != nil {
		if errors.Is(err, engine.ErrStoreConflict) {
			// Ожидаемо под конкуренцией: немедленный повтор, попытки не тратим
			log.WithError(err).Debug("Store conflict, rescheduling immediately")
			if reschedErr := s.queue.Reschedule(ctx, report.ID, report.Attempts, time.Now().UTC()); reschedErr != nil {
				log.WithError(reschedErr).Error("Failed to reschedule conflicted report")
			}
			return
		}
		s.retryLater(ctx, report, err)
		return
	}

	log.WithFields(logrus.Fields{
		"outcome":     decision.Outcome,
		"incident_id": decision.IncidentID,
	}).Info("Report processed")
}

// retryLater планирует повторную попытку с экспоненциальной задержкой.
// После исчерпания попыток сообщение отклоняется: отравленное сообщение
// не должно блокировать очередь бесконечно.
func (s *Scheduler) retryLater(ctx context.Context, report *models.Report, cause error) {
	log := logger.WithComponent(s.logger, "scheduler").WithField("report_id", report.ID)

	attempts := report.Attempts + 1
	if attempts >= s.cfg.MaxRetries {
		log.WithError(cause).Errorf("Report failed after %d attempts, rejecting", attempts)
		reason := fmt.Sprintf("ProcessingFailed: %v", cause)
		if err := s.queue.MarkReportStatus(ctx, report.ID, models.ReportStatusRejected, nil, reason); err != nil {
			log.WithError(err).Error("Failed to mark poison report rejected")
		}
		return
	}

	delay := s.cfg.RetryBaseDelay << (attempts - 1)
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	log.WithError(cause).Warnf("Report processing failed, retry %d/%d in %v", attempts, s.cfg.MaxRetries, delay)
	if err := s.queue.Reschedule(ctx, report.ID, attempts, time.Now().UTC().Add(delay)); err != nil {
		log.WithError(err).Error("Failed to reschedule report")
	}
}

func (s *Scheduler) markInFlight(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.inFlight[id]; ok {
		return false
	}
	s.inFlight[id] = struct{}{}
	return true
}

func (s *Scheduler) clearInFlight(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, id)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
