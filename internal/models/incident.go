package models

import (
	"time"

	"github.com/google/uuid"
)

// IncidentState - состояние инцидента
type IncidentState string

const (
	IncidentStateOpen   IncidentState = "open"
	IncidentStateClosed IncidentState = "closed"
)

// Incident - кластер сообщений, описывающих одно реальное событие
type Incident struct {
	ID                    uuid.UUID     `json:"id"`
	State                 IncidentState `json:"state"`
	IncidentType          string        `json:"incident_type"`
	RepresentativeSummary string        `json:"representative_summary"`
	RepresentativeLat     *float64      `json:"representative_lat,omitempty"`
	RepresentativeLon     *float64      `json:"representative_lon,omitempty"`
	ReportCount           int           `json:"report_count"`
	Version               int64         `json:"version"`
	CreatedAt             time.Time     `json:"created_at"`
	LastUpdatedAt         time.Time     `json:"last_updated_at"`
}

// HasLocation сообщает, есть ли у инцидента репрезентативные координаты
func (i *Incident) HasLocation() bool {
	return i.RepresentativeLat != nil && i.RepresentativeLon != nil
}
