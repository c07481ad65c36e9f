package models

import "time"

// WateringEvent is a single journal entry.
type WateringEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`        // SESSION_START | SESSION_STOP | ADVISORY | FAULT
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}
