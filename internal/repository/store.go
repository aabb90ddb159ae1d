package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shenikar/incident_correlation_system/internal/config"
	"github.com/shenikar/incident_correlation_system/internal/engine"
	"github.com/shenikar/incident_correlation_system/internal/models"
)

// Store реализует engine.IncidentStore, engine.CommitLocker, scheduler.ReportQueue
// и service.Repository поверх PostgreSQL (PostGIS) и Redis
type Store struct {
	db                   *pgxpool.Pool
	redisClient          *redis.Client
	escalationRetryAfter time.Duration
}

// NewStore создает новый Store
func NewStore(db *pgxpool.Pool, redisClient *redis.Client, cfg *config.Config) *Store {
	return &Store{
		db:                   db,
		redisClient:          redisClient,
		escalationRetryAfter: cfg.EscalationRetryAfter,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

const reportColumns = `
	id,
	incident_id,
	status,
	source,
	incident_type,
	summary,
	ST_Y(location::geometry) as latitude,
	ST_X(location::geometry) as longitude,
	location_text,
	external_ref,
	occurred_at,
	received_at,
	normalized_at,
	raw_payload,
	reject_reason,
	attempts,
	escalated_at
`

const incidentColumns = `
	id,
	state,
	incident_type,
	representative_summary,
	ST_Y(representative_location::geometry) as latitude,
	ST_X(representative_location::geometry) as longitude,
	(SELECT COUNT(*) FROM reports r WHERE r.incident_id = incidents.id) as report_count,
	version,
	created_at,
	last_updated_at
`

func scanReport(row rowScanner) (*models.Report, error) {
	report := &models.Report{}
	var raw []byte
	err := row.Scan(
		&report.ID,
		&report.IncidentID,
		&report.Status,
		&report.Source,
		&report.IncidentType,
		&report.Summary,
		&report.Latitude,
		&report.Longitude,
		&report.LocationText,
		&report.ExternalRef,
		&report.OccurredAt,
		&report.ReceivedAt,
		&report.NormalizedAt,
		&raw,
		&report.RejectReason,
		&report.Attempts,
		&report.EscalatedAt,
	)
	if err != nil {
		return nil, err
	}
	report.RawPayload = json.RawMessage(raw)
	return report, nil
}

func scanIncident(row rowScanner) (*models.Incident, error) {
	incident := &models.Incident{}
	err := row.Scan(
		&incident.ID,
		&incident.State,
		&incident.IncidentType,
		&incident.RepresentativeSummary,
		&incident.RepresentativeLat,
		&incident.RepresentativeLon,
		&incident.ReportCount,
		&incident.Version,
		&incident.CreatedAt,
		&incident.LastUpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return incident, nil
}

// GetReport возвращает сообщение по его UUID
func (s *Store) GetReport(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE id = $1;`
	report, err := scanReport(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("report %s: %w", id, engine.ErrReportNotFound)
		}
		return nil, fmt.Errorf("failed to get report by id: %w", err)
	}
	return report, nil
}

// GetIncident возвращает инцидент по его UUID
func (s *Store) GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE id = $1;`
	incident, err := scanIncident(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("incident with id %s not found", id)
		}
		return nil, fmt.Errorf("failed to get incident by id: %w", err)
	}
	return incident, nil
}

// ListOpenIncidents возвращает открытые инциденты, обновленные после updatedAfter
func (s *Store) ListOpenIncidents(ctx context.Context, updatedAfter time.Time) ([]*models.Incident, error) {
	query := `
		SELECT ` + incidentColumns + `
		FROM incidents
		WHERE state = 'open' AND last_updated_at >= $1
		ORDER BY last_updated_at DESC;
	`
	rows, err := s.db.Query(ctx, query, updatedAfter)
	if err != nil {
		return nil, fmt.Errorf("failed to list open incidents: %w", err)
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
		return nil, fmt.Errorf("error list iteration in ListOpenIncidents: %w", err)
	}
	return incidents, nil
}

// FindIncidentByExternalRef находит инцидент, в котором уже есть привязанное
// сообщение с данным external_ref. Возвращает nil, если такого нет
func (s *Store) FindIncidentByExternalRef(ctx context.Context, externalRef string) (*models.Incident, error) {
	query := `
		SELECT ` + incidentColumns + `
		FROM incidents
		WHERE id IN (
			SELECT incident_id FROM reports
			WHERE external_ref = $1 AND status = 'linked' AND incident_id IS NOT NULL
		)
		ORDER BY last_updated_at DESC
		LIMIT 1;
	`
	incident, err := scanIncident(s.db.QueryRow(ctx, query, externalRef))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find incident by external ref: %w", err)
	}
	return incident, nil
}

// CreateIncident создает инцидент из первого сообщения и привязывает его.
// Обе записи выполняются в одной транзакции - граница атомарности коммита
func (s *Store) CreateIncident(ctx context.Context, report *models.Report) (*models.Incident, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin create incident tx: %w", err)
	}
	defer tx.Rollback(ctx)

	incident := &models.Incident{
		State:                 models.IncidentStateOpen,
		IncidentType:          report.IncidentType,
		RepresentativeSummary: report.Summary,
		RepresentativeLat:     report.Latitude,
		RepresentativeLon:     report.Longitude,
	}

	query := `
		INSERT INTO incidents (state, incident_type, representative_summary, representative_location, last_updated_at)
		VALUES (
			'open', $1, $2,
			CASE WHEN $3::float8 IS NULL THEN NULL
			     ELSE ST_SetSRID(ST_MakePoint($4::float8, $3::float8), 4326)::geography END,
			$5
		)
		RETURNING id, version, created_at, last_updated_at;
	`
	err = tx.QueryRow(ctx, query,
		report.IncidentType,
		report.Summary,
		report.Latitude,
		report.Longitude,
		report.EffectiveTime(),
	).Scan(&incident.ID, &incident.Version, &incident.CreatedAt, &incident.LastUpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create incident: %w", err)
	}

	if err := linkReport(ctx, tx, report.ID, incident.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit create incident tx: %w", err)
	}

	incident.ReportCount = 1
	return incident, nil
}

// AppendReport добавляет сообщение в инцидент с CAS по version.
// Возвращает engine.ErrStoreConflict при смене version и engine.ErrIncidentNotOpen
// для закрытого инцидента
func (s *Store) AppendReport(ctx context.Context, incidentID uuid.UUID, expectedVersion int64, report *models.Report) (*models.Incident, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin append report tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// last_updated_at монотонно не убывает, даже если сообщение запоздало
	query := `
		UPDATE incidents SET
			last_updated_at = GREATEST(last_updated_at, $1),
			representative_summary = CASE WHEN $2 <> '' THEN $2 ELSE representative_summary END,
			representative_location = COALESCE(
				CASE WHEN $3::float8 IS NULL THEN NULL
				     ELSE ST_SetSRID(ST_MakePoint($4::float8, $3::float8), 4326)::geography END,
				representative_location
			),
			version = version + 1
		WHERE id = $5 AND version = $6 AND state = 'open'
		RETURNING id, state, incident_type, representative_summary,
			ST_Y(representative_location::geometry),
			ST_X(representative_location::geometry),
			0, version, created_at, last_updated_at;
	`
	incident, err := scanIncident(tx.QueryRow(ctx, query,
		report.EffectiveTime(),
		report.Summary,
		report.Latitude,
		report.Longitude,
		incidentID,
		expectedVersion,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, s.classifyAppendFailure(ctx, incidentID)
		}
		return nil, fmt.Errorf("failed to append report to incident: %w", err)
	}

	if err := linkReport(ctx, tx, report.ID, incidentID); err != nil {
		return nil, err
	}

	err = tx.QueryRow(ctx, `SELECT COUNT(*) FROM reports WHERE incident_id = $1;`, incidentID).Scan(&incident.ReportCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count incident reports: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit append report tx: %w", err)
	}

	if err := s.InvalidateIncidentCache(ctx, incidentID); err != nil {
		// Кэш с TTL, устаревание само истечет
		return incident, nil
	}
	return incident, nil
}

// classifyAppendFailure различает ErrIncidentNotOpen и ErrStoreConflict после
// неудавшегося CAS-апдейта
func (s *Store) classifyAppendFailure(ctx context.Context, incidentID uuid.UUID) error {
	var state models.IncidentState
	err := s.db.QueryRow(ctx, `SELECT state FROM incidents WHERE id = $1;`, incidentID).Scan(&state)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("incident %s disappeared: %w", incidentID, engine.ErrStoreConflict)
		}
		return fmt.Errorf("failed to classify append failure: %w", err)
	}
	if state != models.IncidentStateOpen {
		return fmt.Errorf("incident %s: %w", incidentID, engine.ErrIncidentNotOpen)
	}
	return fmt.Errorf("incident %s version changed: %w", incidentID, engine.ErrStoreConflict)
}

func linkReport(ctx context.Context, tx pgx.Tx, reportID, incidentID uuid.UUID) error {
	cmdTag, err := tx.Exec(ctx, `
		UPDATE reports SET
			status = 'linked',
			incident_id = $1,
			linked_at = NOW(),
			escalated_at = NULL,
			candidate_ids = NULL,
			reject_reason = ''
		WHERE id = $2;
	`, incidentID, reportID)
	if err != nil {
		return fmt.Errorf("failed to link report: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("report %s not found for link", reportID)
	}
	return nil
}

// MarkReportStatus обновляет статус сообщения и обратную ссылку на инцидент
func (s *Store) MarkReportStatus(ctx context.Context, reportID uuid.UUID, status models.ReportStatus, incidentID *uuid.UUID, reason string) error {
	cmdTag, err := s.db.Exec(ctx, `
		UPDATE reports SET
			status = $1,
			incident_id = $2,
			reject_reason = $3,
			escalated_at = NULL,
			candidate_ids = NULL
		WHERE id = $4;
	`, status, incidentID, reason, reportID)
	if err != nil {
		return fmt.Errorf("failed to mark report status: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("report %s not found for status update", reportID)
	}
	return nil
}

// MarkReportEscalated помечает сообщение эскалированным и запоминает кандидатов.
// Пока не истечет окно ожидания tie-break сервиса, планировщик его не заберет
func (s *Store) MarkReportEscalated(ctx context.Context, reportID uuid.UUID, candidateIDs []uuid.UUID) error {
	ids := make([]string, len(candidateIDs))
	for i, id := range candidateIDs {
		ids[i] = id.String()
	}
	cmdTag, err := s.db.Exec(ctx, `
		UPDATE reports SET escalated_at = NOW(), candidate_ids = $1 WHERE id = $2;
	`, ids, reportID)
	if err != nil {
		return fmt.Errorf("failed to mark report escalated: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("report %s not found for escalation", reportID)
	}
	return nil
}
