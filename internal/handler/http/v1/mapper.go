package v1

import (
	"github.com/google/uuid"
	"github.com/shenikar/incident_correlation_system/internal/engine"
	"github.com/shenikar/incident_correlation_system/internal/models"
)

// ModelToReportResponse преобразует доменную модель сообщения в DTO для ответа
func ModelToReportResponse(model *models.Report) *ReportResponse {
	return &ReportResponse{
		ID:           model.ID,
		IncidentID:   model.IncidentID,
		Status:       string(model.Status),
		Source:       model.Source,
		IncidentType: model.IncidentType,
		Summary:      model.Summary,
		Latitude:     model.Latitude,
		Longitude:    model.Longitude,
		LocationText: model.LocationText,
		ExternalRef:  model.ExternalRef,
		OccurredAt:   model.OccurredAt,
		ReceivedAt:   model.ReceivedAt,
		RejectReason: model.RejectReason,
	}
}

// ModelToIncidentResponse преобразует доменную модель инцидента в DTO для ответа
func ModelToIncidentResponse(model *models.Incident) *IncidentResponse {
	return &IncidentResponse{
		ID:                    model.ID,
		State:                 string(model.State),
		IncidentType:          model.IncidentType,
		RepresentativeSummary: model.RepresentativeSummary,
		Latitude:              model.RepresentativeLat,
		Longitude:             model.RepresentativeLon,
		ReportCount:           model.ReportCount,
		CreatedAt:             model.CreatedAt,
		LastUpdatedAt:         model.LastUpdatedAt,
	}
}

// ModelsToIncidentResponses преобразует слайс моделей в слайс DTO
func ModelsToIncidentResponses(models []*models.Incident) []*IncidentResponse {
	responses := make([]*IncidentResponse, len(models))
	for i, model := range models {
		responses[i] = ModelToIncidentResponse(model)
	}
	return responses
}

// ModelToIncidentDetailResponse собирает детальный ответ по инциденту
func ModelToIncidentDetailResponse(model *models.Incident, reportIDs []uuid.UUID) *IncidentDetailResponse {
	return &IncidentDetailResponse{
		IncidentResponse: *ModelToIncidentResponse(model),
		ReportIDs:        reportIDs,
	}
}

// DecisionToResolutionResponse преобразует решение движка в DTO для ответа
func DecisionToResolutionResponse(decision *engine.Decision) *ResolutionResponse {
	return &ResolutionResponse{
		Outcome:    string(decision.Outcome),
		IncidentID: decision.IncidentID,
	}
}

// StatsToResponse преобразует счетчики в DTO для ответа
func StatsToResponse(stats *models.Stats) *StatsResponse {
	return &StatsResponse{
		UncategorizedReports: stats.UncategorizedReports,
		LinkedReports:        stats.LinkedReports,
		RejectedReports:      stats.RejectedReports,
		OpenIncidents:        stats.OpenIncidents,
	}
}
