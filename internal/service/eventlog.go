package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Majsvaffla/spiracle/internal/journal"
	"github.com/Majsvaffla/spiracle/internal/models"
)

// LogFilter narrows a journal query by time range and event type.
type LogFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
	Type string    // "", SESSION_START, SESSION_STOP, ADVISORY, FAULT
}

// ErrInvalidTimeRange rejects filters whose bounds are inverted.
var ErrInvalidTimeRange = errors.New("invalid time range: from must not be after to")

// EventLogService reads the watering journal back for display. The
// control loop never consults it.
type EventLogService struct {
	journal journal.Journal
}

func NewEventLogService(j journal.Journal) *EventLogService {
	return &EventLogService{journal: j}
}

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// normalizeEventType trims spaces and uppercases the event type filter.
func normalizeEventType(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// History returns journal events within the filter, ordered by time.
func (s *EventLogService) History(ctx context.Context, f LogFilter) ([]models.WateringEvent, error) {
	from := normalizeToUTC(f.From)
	to := normalizeToUTC(f.To)
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return nil, ErrInvalidTimeRange
	}
	return s.journal.List(ctx, from, to, normalizeEventType(f.Type))
}
