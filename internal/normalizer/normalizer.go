package normalizer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/incident_correlation_system/internal/models"
)

// ErrMissingRequiredField возвращается, когда в сыром сообщении нет ни времени события, ни текста.
// Такое сообщение бесполезно для корреляции и повторная обработка не поможет.
var ErrMissingRequiredField = errors.New("raw report has neither parseable timestamp nor summary text")

// Ключи, по которым извлекаются поля из произвольной структуры внешнего экстрактора
var (
	timestampKeys   = []string{"occurred_at", "timestamp", "incident_time", "time", "reported_at"}
	summaryKeys     = []string{"summary", "description", "narrative", "text", "details"}
	latitudeKeys    = []string{"latitude", "lat"}
	longitudeKeys   = []string{"longitude", "lon", "lng"}
	addressKeys     = []string{"location_text", "address", "location_description"}
	typeKeys        = []string{"incident_type", "type", "category"}
	externalRefKeys = []string{"external_ref", "external_incident_id", "case_number", "dispatch_id"}
)

// Форматы времени, которые реально встречаются в выгрузках диспетчерских систем
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
}

// Normalize преобразует произвольный key-value payload в каноничный Report.
// Чистая функция: не обращается к БД и внешним сервисам.
// Некорректные координаты отбрасываются в nil, а не валят всю запись.
func Normalize(raw json.RawMessage, id uuid.UUID, receivedAt time.Time) (*models.Report, error) {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode raw report payload: %w", err)
	}

	report := &models.Report{
		ID:           id,
		Status:       models.ReportStatusUncategorized,
		IncidentType: "unknown",
		ReceivedAt:   receivedAt,
		RawPayload:   raw,
	}

	report.OccurredAt = extractTime(payload)
	report.Summary = extractString(payload, summaryKeys)

	// Сообщение без времени события и без текста не с чем сопоставлять
	if report.OccurredAt == nil && report.Summary == "" {
		return nil, ErrMissingRequiredField
	}

	if t := extractString(payload, typeKeys); t != "" {
		report.IncidentType = strings.ToLower(t)
	}
	report.LocationText = extractString(payload, addressKeys)
	if ref := extractString(payload, externalRefKeys); ref != "" {
		report.ExternalRef = &ref
	}
	if src := extractString(payload, []string{"source"}); src != "" {
		report.Source = src
	}

	lat, latOK := extractFloat(payload, latitudeKeys)
	lon, lonOK := extractFloat(payload, longitudeKeys)
	if !latOK || !lonOK {
		lat, lon, latOK = extractNestedCoordinates(payload)
		lonOK = latOK
	}
	// Координаты принимаются только парой и только в допустимых пределах
	if latOK && lonOK && lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180 {
		report.Latitude = &lat
		report.Longitude = &lon
	}

	return report, nil
}

func extractString(payload map[string]any, keys []string) string {
	for _, key := range keys {
		if value, ok := payload[key]; ok {
			if s, ok := value.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

func extractFloat(payload map[string]any, keys []string) (float64, bool) {
	for _, key := range keys {
		value, ok := payload[key]
		if !ok {
			continue
		}
		switch v := value.(type) {
		case float64:
			return v, true
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

// extractNestedCoordinates поддерживает вложенные формы:
// {"location": {"latitude": ..., "longitude": ...}} и {"coordinates": [lat, lon]}
func extractNestedCoordinates(payload map[string]any) (float64, float64, bool) {
	if loc, ok := payload["location"].(map[string]any); ok {
		lat, latOK := extractFloat(loc, latitudeKeys)
		lon, lonOK := extractFloat(loc, longitudeKeys)
		if latOK && lonOK {
			return lat, lon, true
		}
	}
	if coords, ok := payload["coordinates"].([]any); ok && len(coords) == 2 {
		lat, latOK := coords[0].(float64)
		lon, lonOK := coords[1].(float64)
		if latOK && lonOK {
			return lat, lon, true
		}
	}
	return 0, 0, false
}

func extractTime(payload map[string]any) *time.Time {
	for _, key := range timestampKeys {
		value, ok := payload[key]
		if !ok {
			continue
		}
		switch v := value.(type) {
		case string:
			for _, layout := range timeLayouts {
				if t, err := time.Parse(layout, strings.TrimSpace(v)); err == nil {
					t = t.UTC()
					return &t
				}
			}
		case float64:
			// Unix-время в секундах
			t := time.Unix(int64(v), 0).UTC()
			return &t
		}
	}
	return nil
}
