package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Majsvaffla/spiracle/internal/hardware"
)

// lineWidth pads the live line so a shorter sample fully overwrites a
// longer one.
const lineWidth = 48

// ChannelMonitor prints live voltage samples for one ADC channel. It is
// display-only and has no part in the control loop, so it refreshes at
// a fixed human-readable interval instead of polling tight.
type ChannelMonitor struct {
	sensor   hardware.AnalogSensor
	out      io.Writer
	interval time.Duration
}

func NewChannelMonitor(sensor hardware.AnalogSensor, out io.Writer, interval time.Duration) *ChannelMonitor {
	return &ChannelMonitor{sensor: sensor, out: out, interval: interval}
}

// Watch samples the channel until ctx is cancelled, rewriting a single
// output line in place.
func (m *ChannelMonitor) Watch(ctx context.Context, channel int) error {
	t := time.NewTicker(m.interval)
	defer t.Stop()

	for {
		v, err := m.sensor.ReadVoltage(ctx, channel)
		if err != nil {
			if ctx.Err() != nil {
				fmt.Fprintln(m.out)
				return nil
			}
			return err
		}
		fmt.Fprintf(m.out, "%-*s\r", lineWidth, fmt.Sprintf("ADC channel %d is showing %.3f V", channel, v))

		select {
		case <-ctx.Done():
			fmt.Fprintln(m.out)
			return nil
		case <-t.C:
		}
	}
}
