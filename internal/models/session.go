package models

import "time"

// StopReason is the terminating condition of a watering session.
type StopReason uint8

const (
	StopReasonNone StopReason = iota
	StopReasonWaterCritical
	StopReasonSoilWet
	StopReasonTimedOut
	StopReasonFault
)

func (r StopReason) String() string {
	switch r {
	case StopReasonWaterCritical:
		return "WATER_CRITICAL"
	case StopReasonSoilWet:
		return "SOIL_WET"
	case StopReasonTimedOut:
		return "TIMED_OUT"
	case StopReasonFault:
		return "FAULT"
	default:
		return "NONE"
	}
}

// SessionConfig selects the stop conditions for one watering run.
// A non-positive Timeout is valid and yields an immediate timeout stop.
type SessionConfig struct {
	Timeout         time.Duration `json:"timeout"`
	CheckWaterLevel bool          `json:"check_water_level"`
	CheckMoisture   bool          `json:"check_moisture"`
}

// Session is one bounded pump run, from relay-on to relay-off.
// Sessions are ephemeral and never reused.
type Session struct {
	ID        string        `json:"id"`
	StartedAt time.Time     `json:"started_at"`
	Deadline  time.Time     `json:"deadline"`
	Config    SessionConfig `json:"config"`
}
