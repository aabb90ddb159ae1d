package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ReportStatus - статус жизненного цикла сообщения
type ReportStatus string

const (
	ReportStatusUncategorized ReportStatus = "uncategorized"
	ReportStatusLinked        ReportStatus = "linked"
	ReportStatusRejected      ReportStatus = "rejected"
)

// Report представляет одно структурированное сообщение о событии (звонок 911 и т.п.)
type Report struct {
	ID           uuid.UUID       `json:"id"`
	IncidentID   *uuid.UUID      `json:"incident_id,omitempty"`
	Status       ReportStatus    `json:"status"`
	Source       string          `json:"source"`
	IncidentType string          `json:"incident_type"`
	Summary      string          `json:"summary"`
	Latitude     *float64        `json:"latitude,omitempty"`
	Longitude    *float64        `json:"longitude,omitempty"`
	LocationText string          `json:"location_text,omitempty"`
	ExternalRef  *string         `json:"external_ref,omitempty"`
	OccurredAt   *time.Time      `json:"occurred_at,omitempty"`
	ReceivedAt   time.Time       `json:"received_at"`
	NormalizedAt *time.Time      `json:"normalized_at,omitempty"`
	RawPayload   json.RawMessage `json:"raw_payload,omitempty"`
	RejectReason string          `json:"reject_reason,omitempty"`
	Attempts     int             `json:"attempts"`
	EscalatedAt  *time.Time      `json:"escalated_at,omitempty"`
}

// EffectiveTime возвращает occurred_at, либо received_at если время события неизвестно
func (r *Report) EffectiveTime() time.Time {
	if r.OccurredAt != nil {
		return *r.OccurredAt
	}
	return r.ReceivedAt
}

// HasLocation сообщает, есть ли у сообщения геокодированные координаты
func (r *Report) HasLocation() bool {
	return r.Latitude != nil && r.Longitude != nil
}
