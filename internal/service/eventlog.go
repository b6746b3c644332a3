package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"meter_reading/internal/logger"
	"meter_reading/internal/models"
	"meter_reading/internal/repository"
)

type EventLogService struct {
	eventRepo repository.EventRepo
}

func NewEventLogService(eventRepo repository.EventRepo) *EventLogService {
	return &EventLogService{eventRepo: eventRepo}
}

var errInvalidTimeRange = fmt.Errorf("%w: invalid time range: From must be <= To", ErrInvalidInput)

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// normalizeEventType trims spaces and uppercases the event type filter.
func normalizeEventType(s string) string {
	return strings.TrimSpace(strings.ToUpper(s))
}

// normalizeAndValidateFilter prepares query parameters and validates the time range.
func normalizeAndValidateFilter(f LogFilter) (repository.EventFilter, error) {
	from := normalizeToUTC(f.From)
	to := normalizeToUTC(f.To)

	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return repository.EventFilter{}, errInvalidTimeRange
	}
	if f.SessionID < 0 {
		return repository.EventFilter{}, fmt.Errorf("%w: session_id must be positive", ErrInvalidInput)
	}

	return repository.EventFilter{
		From:      from,
		To:        to,
		Type:      normalizeEventType(f.Type),
		SessionID: f.SessionID,
	}, nil
}

func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.InstallationEvent, error) {
	rf, err := normalizeAndValidateFilter(f)
	if err != nil {
		return nil, err
	}
	return s.eventRepo.List(ctx, rf)
}

// emitter appends audit events. A failed append is logged and never fails the
// operation that produced the event.
type emitter struct {
	repo repository.EventRepo
	log  *logger.Logger
}

func (e emitter) emit(ctx context.Context, typ string, sessionID int64, serial, desc string, meta map[string]any) {
	ev := models.InstallationEvent{
		EventID:      uuid.NewString(),
		OccurredAt:   time.Now().UTC(),
		Type:         typ,
		DeviceSerial: serial,
		Description:  desc,
	}
	if sessionID > 0 {
		id := sessionID
		ev.SessionID = &id
	}
	if len(meta) > 0 {
		ev.Metadata = meta
	}
	if err := e.repo.Append(ctx, ev); err != nil {
		e.log.Warnw("event_append_failed", "type", typ, "session_id", sessionID, "error", err)
	}
}
