package scorer

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/shenikar/incident_correlation_system/internal/config"
	"github.com/shenikar/incident_correlation_system/internal/models"
)

// ErrCollaboratorUnavailable возвращается, когда внешний сервис семантической
// оценки недоступен. Обрабатывается политикой ретраев планировщика.
var ErrCollaboratorUnavailable = errors.New("semantic scoring collaborator unavailable")

// SemanticScorer - контракт внешнего коллаборатора семантической близости.
// Возвращает оценку близости двух текстов в диапазоне [0,1].
type SemanticScorer interface {
	Score(ctx context.Context, a, b string) (float64, error)
}

// Verdict - трехзначный вердикт сопоставления сообщения с инцидентом
type Verdict string

const (
	VerdictStrongMatch Verdict = "strong_match"
	VerdictCandidate   Verdict = "candidate"
	VerdictNoMatch     Verdict = "no_match"
)

// SpatialVerdict - результат пространственной оси.
// Отсутствие координат не исключает совпадение, поэтому ось умеет воздерживаться.
type SpatialVerdict string

const (
	SpatialCompatible   SpatialVerdict = "compatible"
	SpatialIncompatible SpatialVerdict = "incompatible"
	SpatialAbstain      SpatialVerdict = "abstain"
)

// ScoreResult - оценка пары (сообщение, инцидент) по трем независимым осям
type ScoreResult struct {
	IncidentID     uuid.UUID      `json:"incident_id"`
	Temporal       bool           `json:"temporal"`
	Spatial        SpatialVerdict `json:"spatial"`
	Semantic       float64        `json:"semantic"`
	DistanceMeters float64        `json:"distance_meters,omitempty"`
	Verdict        Verdict        `json:"verdict"`
}

// Scorer вычисляет совместимость сообщения с открытым инцидентом
type Scorer struct {
	semantic     SemanticScorer
	timeWindow   float64 // секунды
	radiusMeters float64
	semanticHigh float64
	semanticLow  float64
}

// New создает Scorer с порогами из конфигурации
func New(semantic SemanticScorer, cfg *config.Config) *Scorer {
	return &Scorer{
		semantic:     semantic,
		timeWindow:   cfg.TimeWindow.Seconds(),
		radiusMeters: cfg.RadiusMeters,
		semanticHigh: cfg.SemanticHigh,
		semanticLow:  cfg.SemanticLow,
	}
}

// Score оценивает пару (сообщение, инцидент).
// Временная ось - жесткий гейт: вне окна пара отбрасывается без обращения
// к семантическому коллаборатору, чтобы старые инциденты не поглощали новые
// сообщения на одной текстовой похожести.
func (s *Scorer) Score(ctx context.Context, report *models.Report, incident *models.Incident) (*ScoreResult, error) {
	result := &ScoreResult{
		IncidentID: incident.ID,
		Spatial:    SpatialAbstain,
		Verdict:    VerdictNoMatch,
	}

	diff := math.Abs(report.EffectiveTime().Sub(incident.LastUpdatedAt).Seconds())
	result.Temporal = diff <= s.timeWindow
	if !result.Temporal {
		return result, nil
	}

	if report.HasLocation() && incident.HasLocation() {
		result.DistanceMeters = Haversine(
			*report.Latitude, *report.Longitude,
			*incident.RepresentativeLat, *incident.RepresentativeLon,
		)
		if result.DistanceMeters <= s.radiusMeters {
			result.Spatial = SpatialCompatible
		} else {
			result.Spatial = SpatialIncompatible
		}
	}

	if report.Summary != "" && incident.RepresentativeSummary != "" {
		score, err := s.semantic.Score(ctx, report.Summary, incident.RepresentativeSummary)
		if err != nil {
			return nil, fmt.Errorf("failed to score summaries semantically: %w", err)
		}
		result.Semantic = score
	}

	result.Verdict = s.combine(result)
	return result, nil
}

// combine сводит три оси в вердикт. Порядок правил фиксирован:
// дешевые эвристики решают однозначные случаи, candidate уходит на эскалацию.
func (s *Scorer) combine(r *ScoreResult) Verdict {
	switch {
	case r.Spatial == SpatialCompatible && r.Semantic >= s.semanticHigh:
		return VerdictStrongMatch
	case r.Spatial == SpatialCompatible || r.Semantic >= s.semanticHigh:
		return VerdictCandidate
	case r.Spatial == SpatialAbstain && r.Semantic >= s.semanticLow:
		return VerdictCandidate
	default:
		return VerdictNoMatch
	}
}

const earthRadiusMeters = 6371000

// Haversine возвращает расстояние по дуге большого круга в метрах
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
