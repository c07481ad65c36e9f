// Package service holds the watering control logic: the threshold
// policy, the pump session state machine and the flows composing them.
package service

import (
	"context"
	"io"
	"time"

	"github.com/Majsvaffla/spiracle/internal/hardware"
	"github.com/Majsvaffla/spiracle/internal/journal"
	"github.com/Majsvaffla/spiracle/internal/logger"
	"github.com/Majsvaffla/spiracle/internal/models"
)

// Waterer runs watering flows against the pump.
type Waterer interface {
	// Water runs the pump for at most timeout, with optional sensor checks.
	Water(ctx context.Context, timeout time.Duration, checkWaterLevel, checkMoisture bool) (models.StopReason, error)
	// WaterIfDry checks the sensors first and waters only when the soil is dry.
	WaterIfDry(ctx context.Context, timeout time.Duration) (models.StopReason, error)
}

// Monitor continuously samples one ADC channel for display.
type Monitor interface {
	Watch(ctx context.Context, channel int) error
}

// Deps carries everything the services are wired from.
type Deps struct {
	Sensor          hardware.AnalogSensor
	Pump            hardware.DigitalActuator
	Thresholds      Thresholds
	Channels        Channels
	Journal         journal.Journal
	Log             *logger.Logger
	Out             io.Writer
	RefreshInterval time.Duration
}

// Service aggregates the sub-services.
type Service struct {
	Waterer
	Monitor
}

func New(d Deps) *Service {
	ctrl := NewPumpController(d.Sensor, d.Pump, d.Thresholds, d.Channels, d.Journal, d.Log)
	return &Service{
		Waterer: NewOrchestrator(d.Sensor, ctrl, d.Thresholds, d.Channels, d.Log),
		Monitor: NewChannelMonitor(d.Sensor, d.Out, d.RefreshInterval),
	}
}
