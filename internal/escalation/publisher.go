package escalation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shenikar/incident_correlation_system/internal/scorer"
)

const (
	escalationQueueKey = "escalation_events"
)

// Event - запрос к внешнему tie-break коллаборатору.
// Содержит сообщение, список инцидентов-кандидатов и оценки по осям.
type Event struct {
	ReportID             uuid.UUID             `json:"report_id"`
	Summary              string                `json:"summary"`
	IncidentType         string                `json:"incident_type"`
	CandidateIncidentIDs []uuid.UUID           `json:"candidate_incident_ids"`
	Scores               []*scorer.ScoreResult `json:"scores"`
	// ConflictingStrongMatch - два и более strong_match, движок отказывается угадывать
	ConflictingStrongMatch bool      `json:"conflicting_strong_match"`
	Timestamp              time.Time `json:"timestamp"`
}

// Publisher - интерфейс для публикации эскалаций
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// RedisPublisher - реализация Publisher, использующая Redis
type RedisPublisher struct {
	redisClient *redis.Client
}

// NewRedisPublisher создает новый RedisPublisher
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{
		redisClient: client,
	}
}

// Publish публикует событие эскалации в очередь Redis
func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal escalation event: %w", err)
	}

	// Используем LPUSH для добавления события в левую часть списка (очереди)
	if err := p.redisClient.LPush(ctx, escalationQueueKey, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish escalation event to Redis: %w", err)
	}
	return nil
}
