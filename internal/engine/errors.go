package engine

import "errors"

var (
	// ErrReportNotFound - сообщение отсутствует в хранилище
	ErrReportNotFound = errors.New("report not found")

	// ErrIncidentNotOpen - целевой инцидент закрылся между скорингом и коммитом.
	// Обрабатывается повторным прогоном шагов выбора внутри того же вызова.
	ErrIncidentNotOpen = errors.New("incident is not open")

	// ErrStoreConflict - оптимистическая блокировка не прошла (version изменился).
	// Ожидаемая ситуация при конкурентной корреляции, ретраится немедленно.
	ErrStoreConflict = errors.New("optimistic concurrency conflict on incident write")
)
