package hardware

import (
	"errors"
	"fmt"

	"gobot.io/x/gobot/v2/drivers/gpio"
	"gobot.io/x/gobot/v2/drivers/spi"
	"gobot.io/x/gobot/v2/platforms/raspi"
)

// RigConfig carries the construction-time hardware parameters. Nothing
// here is read from ambient process state.
type RigConfig struct {
	ReferenceVoltage float64
	SPIBus           int
	SPIChip          int
	RelayPin         string
}

// Rig owns the lifecycle of the physical devices: the Raspberry Pi
// adaptor, the MCP3202 converter and the pump relay. Close must run
// before process exit on every path so the relay pin is released
// de-energized.
type Rig struct {
	adaptor *raspi.Adaptor
	adc     *spi.MCP3202Driver
	relay   *gpio.RelayDriver

	Sensor *ADC
	Pump   *Relay
}

// Open connects the adaptor and starts every device driver. On failure
// it releases whatever was already started before returning.
func Open(cfg RigConfig) (*Rig, error) {
	a := raspi.NewAdaptor()
	if err := a.Connect(); err != nil {
		return nil, fmt.Errorf("connect raspi adaptor: %w", err)
	}

	adc := spi.NewMCP3202Driver(a,
		spi.WithBusNumber(cfg.SPIBus),
		spi.WithChipNumber(cfg.SPIChip),
	)
	if err := adc.Start(); err != nil {
		_ = a.Finalize()
		return nil, fmt.Errorf("start MCP3202 driver: %w", err)
	}

	relay := gpio.NewRelayDriver(a, cfg.RelayPin)
	if err := relay.Start(); err != nil {
		_ = adc.Halt()
		_ = a.Finalize()
		return nil, fmt.Errorf("start relay driver: %w", err)
	}

	return &Rig{
		adaptor: a,
		adc:     adc,
		relay:   relay,
		Sensor:  NewADC(adc, cfg.ReferenceVoltage),
		Pump:    NewRelay(relay),
	}, nil
}

// Close forces the relay low and releases every device. It keeps going
// past individual failures so later devices still get released.
func (r *Rig) Close() error {
	var errs []error
	if err := r.Pump.SetLow(); err != nil {
		errs = append(errs, err)
	}
	if err := r.relay.Halt(); err != nil {
		errs = append(errs, fmt.Errorf("halt relay driver: %w", err))
	}
	if err := r.adc.Halt(); err != nil {
		errs = append(errs, fmt.Errorf("halt MCP3202 driver: %w", err))
	}
	if err := r.adaptor.Finalize(); err != nil {
		errs = append(errs, fmt.Errorf("finalize raspi adaptor: %w", err))
	}
	return errors.Join(errs...)
}
