// Package hardware provides access to the irrigation rig's analog and
// digital devices with hardware abstraction. The real implementations
// use gobot's Raspberry Pi adaptor; fakes in tests run without hardware.
package hardware

import (
	"context"
	"errors"
)

// Level is the logic level of a digital output.
type Level uint8

const (
	Low Level = iota
	High
)

func (l Level) String() string {
	if l == High {
		return "HIGH"
	}
	return "LOW"
}

// ErrSensorUnavailable reports that the analog link could not complete a
// read. Reads are never retried here; callers decide what a failed
// sample means.
var ErrSensorUnavailable = errors.New("analog sensor unavailable")

// AnalogSensor reads a calibrated voltage from a configured ADC channel.
// Each call triggers one fresh conversion; no smoothing or averaging.
type AnalogSensor interface {
	ReadVoltage(ctx context.Context, channel int) (float64, error)
}

// DigitalActuator drives one digital output. State reports the last
// commanded level without re-querying hardware, since the underlying
// output API is write-only.
type DigitalActuator interface {
	SetHigh() error
	SetLow() error
	State() Level
}
