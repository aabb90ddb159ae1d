package escalation

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shenikar/incident_correlation_system/internal/config"
	"github.com/shenikar/incident_correlation_system/pkg/logger"
	"github.com/sirupsen/logrus"
)

// Worker доставляет события эскалации внешнему tie-break сервису.
// Отсутствие ответа не отклоняет сообщение: оно остается uncategorized
// и будет переобработано планировщиком по истечении окна ожидания.
type Worker struct {
	redisClient *redis.Client
	logger      *logrus.Logger
	cfg         *config.Config
	httpClient  *http.Client
}

// NewWorker создает новый Worker
func NewWorker(redisClient *redis.Client, logger *logrus.Logger, cfg *config.Config) *Worker {
	return &Worker{
		redisClient: redisClient,
		logger:      logger,
		cfg:         cfg,
		httpClient: &http.Client{
			Timeout: cfg.EscalationTimeout,
		},
	}
}

// Start запускает горутину для обработки очереди эскалаций
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Starting escalation worker...")
	go func() {
		for {
			select {
			case <-ctx.Done():
				w.logger.Info("Stopping escalation worker.")
				return
			default:
				// BRPOP - блокирующее извлечение из правой части списка (очереди)
				// 0 означает бесконечное ожидание
				result, err := w.redisClient.BRPop(ctx, 0, escalationQueueKey).Result()
				if err != nil {
					if errors.Is(err, context.Canceled) {
						continue // Контекст отменен, но не ошибка Redis
					}
					w.logger.WithError(err).Error("Failed to pop escalation event from Redis")
					time.Sleep(w.cfg.EscalationTimeout) // Ждем перед повторной попыткой
					continue
				}

				// result[0] - ключ, result[1] - значение
				payload := result[1]
				var event Event
				if err := json.Unmarshal([]byte(payload), &event); err != nil {
					w.logger.WithError(err).Error("Failed to unmarshal escalation event from Redis")
					continue
				}

				w.deliverEvent(ctx, event, payload)
			}
		}
	}()
}

func (w *Worker) deliverEvent(ctx context.Context, event Event, rawPayload string) {
	log := logger.WithComponent(w.logger, "escalation").WithField("report_id", event.ReportID).WithField("candidates", len(event.CandidateIncidentIDs))
	log.Debug("Delivering escalation event...")

	if w.cfg.EscalationURL == "" {
		log.Warn("Escalation URL is not configured. Skipping escalation delivery.")
		return
	}

	maxRetries := w.cfg.EscalationMaxRetries
	baseDelay := w.cfg.EscalationBaseDelay

	for i := 0; i < maxRetries; i++ {
		req, err := http.NewRequestWithContext(ctx, "POST", w.cfg.EscalationURL, bytes.NewBufferString(rawPayload))
		if err != nil {
			log.WithError(err).Errorf("Failed to create escalation request for event. Retries left: %d", maxRetries-1-i)
			continue
		}

		req.Header.Set("Content-Type", "application/json")

		// Добавляем HMAC подпись, если ESCALATION_SECRET задан
		if w.cfg.EscalationSecret != "" {
			signature := generateHMACSHA256(rawPayload, w.cfg.EscalationSecret)
			req.Header.Set("X-Escalation-Signature", signature)
		}

		resp, err := w.httpClient.Do(req)
		if err != nil {
			log.WithError(err).Warnf("Failed to send escalation event. Retrying in %v. Retries left: %d", baseDelay, maxRetries-1-i)
			time.Sleep(baseDelay)
			baseDelay *= 2 // Экспоненциальная задержка
			continue
		}

		statusCode := resp.StatusCode
		resp.Body.Close() // Закрываем тело сразу, итераций может быть несколько

		if statusCode >= 200 && statusCode < 300 {
			log.Info("Escalation event delivered successfully.")
			return
		}
		log.Warnf("Escalation delivery failed with status code %d. Retrying in %v. Retries left: %d", statusCode, baseDelay, maxRetries-1-i)
		time.Sleep(baseDelay)
		baseDelay *= 2 // Экспоненциальная задержка
	}

	log.Errorf("Failed to deliver escalation event after %d retries.", maxRetries)
}

// generateHMACSHA256 генерирует HMAC-SHA256 подпись для данных
func generateHMACSHA256(data, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}
