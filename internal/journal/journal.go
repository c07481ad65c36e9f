// Package journal records watering activity in an append-only log.
// Journaling is opt-in; the control loop never reads it back, and no
// raw sensor history is stored.
package journal

import (
	"context"
	"time"

	"github.com/Majsvaffla/spiracle/internal/models"
)

// Event types recorded in the journal.
const (
	EventSessionStart = "SESSION_START"
	EventSessionStop  = "SESSION_STOP"
	EventAdvisory     = "ADVISORY"
	EventFault        = "FAULT"
)

// Journal is an append-only log of watering events.
type Journal interface {
	Append(ctx context.Context, e models.WateringEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.WateringEvent, error)
}

// Nop discards every event. Wired when no journal path is configured.
type Nop struct{}

func (Nop) Append(context.Context, models.WateringEvent) error { return nil }

func (Nop) List(context.Context, time.Time, time.Time, string) ([]models.WateringEvent, error) {
	return nil, nil
}
