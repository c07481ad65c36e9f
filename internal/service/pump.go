package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Majsvaffla/spiracle/internal/hardware"
	"github.com/Majsvaffla/spiracle/internal/journal"
	"github.com/Majsvaffla/spiracle/internal/logger"
	"github.com/Majsvaffla/spiracle/internal/models"
)

// PumpController owns one actuator. At most one session may control a
// given pump at a time; RunSession is not reentrant.
type PumpController struct {
	sensor     hardware.AnalogSensor
	pump       hardware.DigitalActuator
	thresholds Thresholds
	channels   Channels
	journal    journal.Journal
	log        *logger.Logger

	now func() time.Time
}

func NewPumpController(
	sensor hardware.AnalogSensor,
	pump hardware.DigitalActuator,
	thresholds Thresholds,
	channels Channels,
	jrnl journal.Journal,
	log *logger.Logger,
) *PumpController {
	return &PumpController{
		sensor:     sensor,
		pump:       pump,
		thresholds: thresholds,
		channels:   channels,
		journal:    jrnl,
		log:        log,
		now:        time.Now,
	}
}

// RunSession drives one bounded watering run: relay on, poll the enabled
// stop conditions, relay off, report the reason. The relay is commanded
// low on every exit path, sensor faults included, before any error is
// returned.
func (c *PumpController) RunSession(ctx context.Context, cfg models.SessionConfig) (models.StopReason, error) {
	start := c.now()
	sess := models.Session{
		ID:        uuid.NewString(),
		StartedAt: start,
		Deadline:  start.Add(cfg.Timeout),
		Config:    cfg,
	}

	if err := c.pump.SetHigh(); err != nil {
		return models.StopReasonFault, fmt.Errorf("start pump: %w", err)
	}
	// Last line of defense: never leave the relay energized, even if the
	// poll loop panics.
	defer func() {
		if c.pump.State() == hardware.High {
			_ = c.pump.SetLow()
		}
	}()

	c.log.Infow("pump running",
		"session", sess.ID,
		"timeout", cfg.Timeout,
		"check_water_level", cfg.CheckWaterLevel,
		"check_moisture", cfg.CheckMoisture,
	)
	c.append(ctx, journal.EventSessionStart, "Pump started.", map[string]any{
		"session": sess.ID,
		"timeout": cfg.Timeout.Seconds(),
	})

	reason, pollErr := c.poll(ctx, sess)

	c.log.Infow("stopping the pump", "session", sess.ID)
	if err := c.pump.SetLow(); err != nil {
		// A relay stuck high outranks whatever the loop reported.
		return models.StopReasonFault, fmt.Errorf("stop pump: %w", err)
	}
	// Post-stop bookkeeping must outlive the session context, or an
	// operator interrupt would leave no record of how the session ended.
	bookCtx := context.WithoutCancel(ctx)
	c.append(bookCtx, journal.EventSessionStop, "Stopping the pump.", map[string]any{
		"session": sess.ID,
		"reason":  reason.String(),
		"elapsed": c.now().Sub(start).Seconds(),
	})

	if pollErr != nil {
		c.append(bookCtx, journal.EventFault, pollErr.Error(), map[string]any{"session": sess.ID})
		return reason, pollErr
	}

	if cfg.CheckWaterLevel {
		c.advisory(ctx, sess.ID)
	}
	return reason, nil
}

// poll evaluates the stop conditions with fresh samples each iteration,
// in fixed priority order: critical water, then soil wet, then timeout.
// A critical reservoir can never be masked by a simultaneously true
// soil-wet or timeout condition. The loop deliberately has no sleep;
// the blocking ADC conversions pace it, keeping the critical-water
// cut-off latency as low as the hardware allows.
func (c *PumpController) poll(ctx context.Context, sess models.Session) (models.StopReason, error) {
	for {
		if err := ctx.Err(); err != nil {
			return models.StopReasonFault, err
		}

		if sess.Config.CheckWaterLevel {
			v, err := c.sensor.ReadVoltage(ctx, c.channels.Water)
			if err != nil {
				return models.StopReasonFault, fmt.Errorf("read water level: %w", err)
			}
			if c.thresholds.IsWaterCritical(v) {
				c.log.Warnw("the water level is critically low, refill the tank to continue watering", "voltage", v)
				return models.StopReasonWaterCritical, nil
			}
		}

		if sess.Config.CheckMoisture {
			v, err := c.sensor.ReadVoltage(ctx, c.channels.Soil)
			if err != nil {
				return models.StopReasonFault, fmt.Errorf("read soil moisture: %w", err)
			}
			if !c.thresholds.IsSoilDry(v) {
				c.log.Infow("the soil is wet", "voltage", v)
				return models.StopReasonSoilWet, nil
			}
		}

		if !c.now().Before(sess.Deadline) {
			c.log.Infow("the time is up")
			return models.StopReasonTimedOut, nil
		}
	}
}

// advisory takes one reading after the pump has stopped and reports a
// low reservoir. Informational only; the level may read slightly higher
// than it did while still draining, which is accepted. A failed read
// here is logged and swallowed for the same reason.
func (c *PumpController) advisory(ctx context.Context, sessionID string) {
	v, err := c.sensor.ReadVoltage(ctx, c.channels.Water)
	if err != nil {
		c.log.Warnw("could not read water level for advisory", "err", err)
		return
	}
	if !c.thresholds.IsWaterLow(v) {
		return
	}
	c.log.Warnw("the water level is low", "voltage", v)
	c.append(ctx, journal.EventAdvisory, "The water level is low.", map[string]any{
		"session": sessionID,
		"voltage": v,
	})
}

func (c *PumpController) append(ctx context.Context, typ, msg string, meta map[string]any) {
	if err := c.journal.Append(ctx, models.WateringEvent{
		Type:        typ,
		Description: msg,
		Metadata:    meta,
	}); err != nil {
		c.log.Warnw("journal append failed", "type", typ, "err", err)
	}
}
