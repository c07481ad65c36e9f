package hardware

import "fmt"

// relaySwitch is the write surface of gobot's relay driver.
type relaySwitch interface {
	On() error
	Off() error
}

// Relay drives the pump relay and caches its own commanded level. The
// cache is the source of truth for State: the GPIO output cannot be
// read back, and the physical relay follows the last successful write.
type Relay struct {
	sw    relaySwitch
	level Level
}

// NewRelay wraps a started relay driver. The output starts low.
func NewRelay(sw relaySwitch) *Relay {
	return &Relay{sw: sw, level: Low}
}

func (r *Relay) SetHigh() error {
	if err := r.sw.On(); err != nil {
		return fmt.Errorf("energize relay: %w", err)
	}
	r.level = High
	return nil
}

func (r *Relay) SetLow() error {
	if err := r.sw.Off(); err != nil {
		return fmt.Errorf("de-energize relay: %w", err)
	}
	r.level = Low
	return nil
}

// State returns the last successfully commanded level.
func (r *Relay) State() Level {
	return r.level
}
