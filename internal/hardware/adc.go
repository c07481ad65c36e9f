package hardware

import (
	"context"
	"fmt"
)

// adcMax is the full-scale raw reading of the 12-bit MCP3202.
const adcMax = 4095

// channelReader is the slice of gobot's MCP3202 driver surface the
// sensor needs.
type channelReader interface {
	Read(channel int) (int, error)
}

// ADC converts raw MCP3202 samples into calibrated voltages against a
// fixed reference voltage.
type ADC struct {
	reader channelReader
	vref   float64
}

func NewADC(reader channelReader, referenceVoltage float64) *ADC {
	return &ADC{reader: reader, vref: referenceVoltage}
}

// ReadVoltage samples the given channel once. The conversion blocks on
// the SPI transfer; its latency paces the callers' polling loops.
func (a *ADC) ReadVoltage(ctx context.Context, channel int) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	raw, err := a.reader.Read(channel)
	if err != nil {
		return 0, fmt.Errorf("%w: channel %d: %v", ErrSensorUnavailable, channel, err)
	}
	return float64(raw) / adcMax * a.vref, nil
}
