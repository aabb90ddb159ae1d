package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shenikar/incident_correlation_system/internal/models"
)

// CreateReport - точка вставки конвейера: внешний экстрактор доставляет сырой
// payload, запись создается со статусом uncategorized и попадает в очередь
func (s *Store) CreateReport(ctx context.Context, source string, raw json.RawMessage) (*models.Report, error) {
	report := &models.Report{
		Status:       models.ReportStatusUncategorized,
		Source:       source,
		IncidentType: "unknown",
		RawPayload:   raw,
	}
	query := `
		INSERT INTO reports (status, source, raw_payload)
		VALUES ('uncategorized', $1, $2)
		RETURNING id, received_at;
	`
	err := s.db.QueryRow(ctx, query, source, []byte(raw)).Scan(&report.ID, &report.ReceivedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}
	return report, nil
}

// NextPending возвращает необработанные сообщения в порядке received_at
// (старые первыми, чтобы сохранить примерный временной порядок формирования
// инцидентов). Эскалированные сообщения пропускаются, пока не истечет окно
// ожидания tie-break сервиса
func (s *Store) NextPending(ctx context.Context, limit int) ([]*models.Report, error) {
	query := `
		SELECT ` + reportColumns + `
		FROM reports
		WHERE status = 'uncategorized'
			AND next_attempt_at <= NOW()
			AND (escalated_at IS NULL OR escalated_at < $1)
		ORDER BY received_at ASC
		LIMIT $2;
	`
	escalationDeadline := time.Now().UTC().Add(-s.escalationRetryAfter)
	rows, err := s.db.Query(ctx, query, escalationDeadline, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pending reports: %w", err)
	}
	defer rows.Close()

	reports := make([]*models.Report, 0)
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error list iteration in NextPending: %w", err)
	}
	return reports, nil
}

// SaveNormalized сохраняет каноничные поля после нормализации
func (s *Store) SaveNormalized(ctx context.Context, report *models.Report) error {
	cmdTag, err := s.db.Exec(ctx, `
		UPDATE reports SET
			summary = $1,
			incident_type = $2,
			location = CASE WHEN $3::float8 IS NULL THEN NULL
			                ELSE ST_SetSRID(ST_MakePoint($4::float8, $3::float8), 4326)::geography END,
			location_text = $5,
			external_ref = $6,
			occurred_at = $7,
			source = $8,
			normalized_at = NOW()
		WHERE id = $9;
	`,
		report.Summary,
		report.IncidentType,
		report.Latitude,
		report.Longitude,
		report.LocationText,
		report.ExternalRef,
		report.OccurredAt,
		report.Source,
		report.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to save normalized report: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("report %s not found for normalization", report.ID)
	}
	return nil
}

// Reschedule планирует следующую попытку обработки сообщения
func (s *Store) Reschedule(ctx context.Context, reportID uuid.UUID, attempts int, nextAttemptAt time.Time) error {
	cmdTag, err := s.db.Exec(ctx, `
		UPDATE reports SET attempts = $1, next_attempt_at = $2 WHERE id = $3;
	`, attempts, nextAttemptAt, reportID)
	if err != nil {
		return fmt.Errorf("failed to reschedule report: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("report %s not found for reschedule", reportID)
	}
	return nil
}

// CloseIdleIncidents закрывает инциденты без новых сообщений с lastUpdatedBefore
func (s *Store) CloseIdleIncidents(ctx context.Context, lastUpdatedBefore time.Time) (int64, error) {
	cmdTag, err := s.db.Exec(ctx, `
		UPDATE incidents SET state = 'closed', version = version + 1
		WHERE state = 'open' AND last_updated_at < $1;
	`, lastUpdatedBefore)
	if err != nil {
		return 0, fmt.Errorf("failed to close idle incidents: %w", err)
	}
	return cmdTag.RowsAffected(), nil
}

// CloseIncident закрывает инцидент по действию оператора
func (s *Store) CloseIncident(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := s.db.Exec(ctx, `
		UPDATE incidents SET state = 'closed', version = version + 1
		WHERE id = $1 AND state = 'open';
	`, id)
	if err != nil {
		return fmt.Errorf("failed to close incident: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("incident with id %s not found or already closed", id)
	}
	return s.InvalidateIncidentCache(ctx, id)
}

// ListIncidents возвращает список инцидентов с пагинацией
func (s *Store) ListIncidents(ctx context.Context, page, pageSize int) ([]*models.Incident, error) {
	// рассчитываем смещение
	offset := (page - 1) * pageSize

	query := `
		SELECT ` + incidentColumns + `
		FROM incidents
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2;
	`
	rows, err := s.db.Query(ctx, query, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list incidents: %w", err)
	}
	defer rows.Close()

	incidents := make([]*models.Incident, 0)
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan incident row: %w", err)
		}
		incidents = append(incidents, incident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error list iteration: %w", err)
	}
	return incidents, nil
}

// GetIncidentReportIDs возвращает id сообщений инцидента в порядке привязки
// (порядок привязки = порядок корреляции)
func (s *Store) GetIncidentReportIDs(ctx context.Context, incidentID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id FROM reports
		WHERE incident_id = $1 AND status = 'linked'
		ORDER BY linked_at ASC, received_at ASC;
	`, incidentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get incident report ids: %w", err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan report id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error list iteration in GetIncidentReportIDs: %w", err)
	}
	return ids, nil
}

// GetStats возвращает счетчики сообщений по статусам и открытых инцидентов
func (s *Store) GetStats(ctx context.Context) (*models.Stats, error) {
	stats := &models.Stats{}

	rows, err := s.db.Query(ctx, `SELECT status, COUNT(*) FROM reports GROUP BY status;`)
	if err != nil {
		return nil, fmt.Errorf("failed to get report stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status models.ReportStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan stats row: %w", err)
		}
		switch status {
		case models.ReportStatusUncategorized:
			stats.UncategorizedReports = count
		case models.ReportStatusLinked:
			stats.LinkedReports = count
		case models.ReportStatusRejected:
			stats.RejectedReports = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error stats iteration: %w", err)
	}

	err = s.db.QueryRow(ctx, `SELECT COUNT(*) FROM incidents WHERE state = 'open';`).Scan(&stats.OpenIncidents)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to get open incident count: %w", err)
	}
	return stats, nil
}
