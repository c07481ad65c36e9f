package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Majsvaffla/spiracle/internal/hardware"
	"github.com/Majsvaffla/spiracle/internal/logger"
	"github.com/Majsvaffla/spiracle/internal/models"
)

// Orchestrator composes the sensors, the threshold policy and the pump
// controller into the two watering flows the CLI exposes.
type Orchestrator struct {
	sensor     hardware.AnalogSensor
	pump       *PumpController
	thresholds Thresholds
	channels   Channels
	log        *logger.Logger
}

func NewOrchestrator(
	sensor hardware.AnalogSensor,
	pump *PumpController,
	thresholds Thresholds,
	channels Channels,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		sensor:     sensor,
		pump:       pump,
		thresholds: thresholds,
		channels:   channels,
		log:        log,
	}
}

// Water runs the pump for at most timeout with the given stop-condition
// checks. Both checks off degrades to a pure timer.
func (o *Orchestrator) Water(ctx context.Context, timeout time.Duration, checkWaterLevel, checkMoisture bool) (models.StopReason, error) {
	if checkMoisture {
		o.log.Infow("running pump until the soil is wet", "timeout", timeout)
	} else {
		o.log.Infow("running pump", "timeout", timeout)
	}
	return o.pump.RunSession(ctx, models.SessionConfig{
		Timeout:         timeout,
		CheckWaterLevel: checkWaterLevel,
		CheckMoisture:   checkMoisture,
	})
}

// WaterIfDry checks the reservoir and the soil once up front and only
// starts a session when the soil is dry. A critical reservoir aborts
// before the pump ever starts.
func (o *Orchestrator) WaterIfDry(ctx context.Context, timeout time.Duration) (models.StopReason, error) {
	water, err := o.sensor.ReadVoltage(ctx, o.channels.Water)
	if err != nil {
		return models.StopReasonFault, fmt.Errorf("read water level: %w", err)
	}
	if o.thresholds.IsWaterCritical(water) {
		o.log.Warnw("the water level is critically low, refill the tank to continue watering", "voltage", water)
		return models.StopReasonWaterCritical, nil
	}
	if o.thresholds.IsWaterLow(water) {
		o.log.Warnw("the water level is low", "voltage", water)
	}

	soil, err := o.sensor.ReadVoltage(ctx, o.channels.Soil)
	if err != nil {
		return models.StopReasonFault, fmt.Errorf("read soil moisture: %w", err)
	}
	if !o.thresholds.IsSoilDry(soil) {
		o.log.Infow("the soil is wet", "voltage", soil)
		return models.StopReasonSoilWet, nil
	}

	o.log.Infow("the soil is dry", "voltage", soil)
	return o.pump.RunSession(ctx, models.SessionConfig{
		Timeout:         timeout,
		CheckWaterLevel: true,
		CheckMoisture:   true,
	})
}
