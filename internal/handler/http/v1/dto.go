package v1

import (
	"time"

	"github.com/google/uuid"
)

// IngestReportRequest DTO для приема сырого сообщения от экстрактора
// @Description DTO для приема сырого сообщения от внешнего экстрактора
type IngestReportRequest struct {
	Source  string         `json:"source" validate:"required,min=1,max=255"`
	Payload map[string]any `json:"payload" validate:"required"`
}

// ResolveReportRequest DTO для решения tie-break коллаборатора
// @Description DTO для решения tie-break коллаборатора: uuid инцидента или "new"
type ResolveReportRequest struct {
	IncidentID string `json:"incident_id" validate:"required"`
}

// ReportResponse DTO для ответа с информацией о сообщении
// @Description DTO для ответа с информацией о сообщении
type ReportResponse struct {
	ID           uuid.UUID  `json:"id"`
	IncidentID   *uuid.UUID `json:"incident_id,omitempty"`
	Status       string     `json:"status"`
	Source       string     `json:"source,omitempty"`
	IncidentType string     `json:"incident_type"`
	Summary      string     `json:"summary,omitempty"`
	Latitude     *float64   `json:"latitude,omitempty"`
	Longitude    *float64   `json:"longitude,omitempty"`
	LocationText string     `json:"location_text,omitempty"`
	ExternalRef  *string    `json:"external_ref,omitempty"`
	OccurredAt   *time.Time `json:"occurred_at,omitempty"`
	ReceivedAt   time.Time  `json:"received_at"`
	RejectReason string     `json:"reject_reason,omitempty"`
}

// ResolutionResponse DTO для ответа на применение tie-break решения
// @Description DTO для ответа на применение tie-break решения
type ResolutionResponse struct {
	Outcome    string     `json:"outcome"`
	IncidentID *uuid.UUID `json:"incident_id,omitempty"`
}

// IncidentResponse DTO для ответа с информацией об инциденте
// @Description DTO для ответа с информацией об инциденте
type IncidentResponse struct {
	ID                    uuid.UUID `json:"id"`
	State                 string    `json:"state"`
	IncidentType          string    `json:"incident_type"`
	RepresentativeSummary string    `json:"representative_summary,omitempty"`
	Latitude              *float64  `json:"latitude,omitempty"`
	Longitude             *float64  `json:"longitude,omitempty"`
	ReportCount           int       `json:"report_count"`
	CreatedAt             time.Time `json:"created_at"`
	LastUpdatedAt         time.Time `json:"last_updated_at"`
}

// IncidentDetailResponse DTO для детального ответа с id сообщений инцидента
// @Description DTO для детального ответа: инцидент и его сообщения в порядке корреляции
type IncidentDetailResponse struct {
	IncidentResponse
	ReportIDs []uuid.UUID `json:"report_ids"`
}

// StatsResponse DTO для ответа со статистикой конвейера
// @Description DTO для ответа со статистикой конвейера
type StatsResponse struct {
	UncategorizedReports int `json:"uncategorized_reports"`
	LinkedReports        int `json:"linked_reports"`
	RejectedReports      int `json:"rejected_reports"`
	OpenIncidents        int `json:"open_incidents"`
}
