package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Majsvaffla/spiracle/internal/hardware"
	"github.com/Majsvaffla/spiracle/internal/journal"
	"github.com/Majsvaffla/spiracle/internal/logger"
	"github.com/Majsvaffla/spiracle/internal/models"
)

var (
	testThresholds = Thresholds{SoilDry: 2.5, WaterLow: 3.0, WaterCritical: 2.7}
	testChannels   = Channels{Soil: 0, Water: 1}
)

// ---- Test doubles ----

// fakeSensor serves scripted readings per channel; the last value in a
// queue sticks for subsequent reads.
type fakeSensor struct {
	queues map[int][]float64
	errs   map[int]error
	reads  int
}

func (f *fakeSensor) ReadVoltage(_ context.Context, channel int) (float64, error) {
	f.reads++
	if f.errs != nil {
		if err := f.errs[channel]; err != nil {
			return 0, err
		}
	}
	q := f.queues[channel]
	if len(q) == 0 {
		return 0, fmt.Errorf("%w: no reading scripted for channel %d", hardware.ErrSensorUnavailable, channel)
	}
	if len(q) > 1 {
		f.queues[channel] = q[1:]
	}
	return q[0], nil
}

type fakePump struct {
	level       hardware.Level
	transitions []hardware.Level
	highErr     error
	lowErr      error
}

func (f *fakePump) SetHigh() error {
	if f.highErr != nil {
		return f.highErr
	}
	f.level = hardware.High
	f.transitions = append(f.transitions, hardware.High)
	return nil
}

func (f *fakePump) SetLow() error {
	if f.lowErr != nil {
		return f.lowErr
	}
	f.level = hardware.Low
	f.transitions = append(f.transitions, hardware.Low)
	return nil
}

func (f *fakePump) State() hardware.Level { return f.level }

type memJournal struct {
	events   []models.WateringEvent
	listFrom time.Time
	listTo   time.Time
	listType string
}

func (m *memJournal) Append(_ context.Context, e models.WateringEvent) error {
	m.events = append(m.events, e)
	return nil
}

func (m *memJournal) List(_ context.Context, from, to time.Time, typ string) ([]models.WateringEvent, error) {
	m.listFrom, m.listTo, m.listType = from, to, typ
	if typ == "" {
		return m.events, nil
	}
	var out []models.WateringEvent
	for _, e := range m.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memJournal) countType(typ string) int {
	n := 0
	for _, e := range m.events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

// fakeClock advances by step on every Now call.
type fakeClock struct {
	t    time.Time
	step time.Duration
}

func (c *fakeClock) Now() time.Time {
	t := c.t
	c.t = c.t.Add(c.step)
	return t
}

func newTestController(sensor *fakeSensor, pump *fakePump, j journal.Journal, clk *fakeClock) *PumpController {
	c := NewPumpController(sensor, pump, testThresholds, testChannels, j, logger.Nop())
	if clk != nil {
		c.now = clk.Now
	}
	return c
}

func assertPumpStopped(t *testing.T, p *fakePump) {
	t.Helper()
	if p.State() != hardware.Low {
		t.Fatalf("pump final state = %v, want LOW", p.State())
	}
	if len(p.transitions) == 0 || p.transitions[len(p.transitions)-1] != hardware.Low {
		t.Fatalf("last commanded transition = %v, want LOW", p.transitions)
	}
}

// ---- Tests ----

func TestRunSession_CriticalWaterPreemptsSoilWet(t *testing.T) {
	// Water is critical AND soil is wet on the same iteration; the
	// priority order must report the water condition.
	sensor := &fakeSensor{queues: map[int][]float64{
		testChannels.Water: {2.0},
		testChannels.Soil:  {2.0},
	}}
	pump := &fakePump{}
	ctrl := newTestController(sensor, pump, &memJournal{}, nil)

	reason, err := ctrl.RunSession(context.Background(), models.SessionConfig{
		Timeout:         time.Minute,
		CheckWaterLevel: true,
		CheckMoisture:   true,
	})
	if err != nil {
		t.Fatalf("RunSession() error = %v", err)
	}
	if reason != models.StopReasonWaterCritical {
		t.Fatalf("reason = %v, want WATER_CRITICAL", reason)
	}
	assertPumpStopped(t, pump)
}

func TestRunSession_SoilWetStopsAndSkipsAdvisoryWhenWaterFine(t *testing.T) {
	sensor := &fakeSensor{queues: map[int][]float64{
		testChannels.Water: {3.1},
		testChannels.Soil:  {2.0},
	}}
	pump := &fakePump{}
	j := &memJournal{}
	ctrl := newTestController(sensor, pump, j, nil)

	reason, err := ctrl.RunSession(context.Background(), models.SessionConfig{
		Timeout:         time.Minute,
		CheckWaterLevel: true,
		CheckMoisture:   true,
	})
	if err != nil {
		t.Fatalf("RunSession() error = %v", err)
	}
	if reason != models.StopReasonSoilWet {
		t.Fatalf("reason = %v, want SOIL_WET", reason)
	}
	assertPumpStopped(t, pump)
	if n := j.countType(journal.EventAdvisory); n != 0 {
		t.Fatalf("expected no advisory, got %d", n)
	}
	if j.countType(journal.EventSessionStart) != 1 || j.countType(journal.EventSessionStop) != 1 {
		t.Fatalf("expected one start and one stop event, got %+v", j.events)
	}
}

func TestRunSession_AdvisoryEmittedOncePostStop(t *testing.T) {
	// In-loop water reading passes the critical check; the post-stop
	// reading sits between critical and low, so exactly one advisory
	// fires and the reason stays SOIL_WET.
	sensor := &fakeSensor{queues: map[int][]float64{
		testChannels.Water: {2.9, 2.8},
		testChannels.Soil:  {2.0},
	}}
	pump := &fakePump{}
	j := &memJournal{}
	ctrl := newTestController(sensor, pump, j, nil)

	reason, err := ctrl.RunSession(context.Background(), models.SessionConfig{
		Timeout:         time.Minute,
		CheckWaterLevel: true,
		CheckMoisture:   true,
	})
	if err != nil {
		t.Fatalf("RunSession() error = %v", err)
	}
	if reason != models.StopReasonSoilWet {
		t.Fatalf("reason = %v, want SOIL_WET", reason)
	}
	if n := j.countType(journal.EventAdvisory); n != 1 {
		t.Fatalf("expected exactly one advisory, got %d", n)
	}
	assertPumpStopped(t, pump)
}

func TestRunSession_TimeoutOnlyModeIgnoresSensors(t *testing.T) {
	sensor := &fakeSensor{}
	pump := &fakePump{}
	clk := &fakeClock{t: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC), step: 500 * time.Millisecond}
	j := &memJournal{}
	ctrl := newTestController(sensor, pump, j, clk)

	reason, err := ctrl.RunSession(context.Background(), models.SessionConfig{Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("RunSession() error = %v", err)
	}
	if reason != models.StopReasonTimedOut {
		t.Fatalf("reason = %v, want TIMED_OUT", reason)
	}
	if sensor.reads != 0 {
		t.Fatalf("expected no sensor reads in timer mode, got %d", sensor.reads)
	}
	assertPumpStopped(t, pump)

	// the simulated elapsed time must cover the full timeout
	var stop models.WateringEvent
	for _, e := range j.events {
		if e.Type == journal.EventSessionStop {
			stop = e
		}
	}
	meta, ok := stop.Metadata.(map[string]any)
	if !ok {
		t.Fatalf("missing stop metadata: %+v", stop)
	}
	if elapsed, _ := meta["elapsed"].(float64); elapsed < 2.0 {
		t.Fatalf("simulated elapsed = %.2fs, want >= 2.0s", elapsed)
	}
}

func TestRunSession_ZeroTimeoutPulsesAndTimesOut(t *testing.T) {
	sensor := &fakeSensor{}
	pump := &fakePump{}
	ctrl := newTestController(sensor, pump, &memJournal{}, nil)

	reason, err := ctrl.RunSession(context.Background(), models.SessionConfig{Timeout: 0})
	if err != nil {
		t.Fatalf("RunSession() error = %v", err)
	}
	if reason != models.StopReasonTimedOut {
		t.Fatalf("reason = %v, want TIMED_OUT", reason)
	}
	if sensor.reads != 0 {
		t.Fatalf("expected no sensor reads, got %d", sensor.reads)
	}
	want := []hardware.Level{hardware.High, hardware.Low}
	if len(pump.transitions) != 2 || pump.transitions[0] != want[0] || pump.transitions[1] != want[1] {
		t.Fatalf("transitions = %v, want %v", pump.transitions, want)
	}
}

func TestRunSession_SensorFaultMidLoopStillStopsPump(t *testing.T) {
	sensor := &fakeSensor{
		queues: map[int][]float64{testChannels.Soil: {3.0}},
		errs:   map[int]error{testChannels.Water: fmt.Errorf("%w: spi link down", hardware.ErrSensorUnavailable)},
	}
	pump := &fakePump{}
	j := &memJournal{}
	ctrl := newTestController(sensor, pump, j, nil)

	reason, err := ctrl.RunSession(context.Background(), models.SessionConfig{
		Timeout:         time.Minute,
		CheckWaterLevel: true,
		CheckMoisture:   true,
	})
	if !errors.Is(err, hardware.ErrSensorUnavailable) {
		t.Fatalf("expected ErrSensorUnavailable, got %v", err)
	}
	if reason != models.StopReasonFault {
		t.Fatalf("reason = %v, want FAULT", reason)
	}
	assertPumpStopped(t, pump)
	if n := j.countType(journal.EventFault); n != 1 {
		t.Fatalf("expected one fault event, got %d", n)
	}
}

// cancelAwareJournal fails appends once their context is cancelled,
// like a real database driver would.
type cancelAwareJournal struct {
	memJournal
}

func (c *cancelAwareJournal) Append(ctx context.Context, e models.WateringEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.memJournal.Append(ctx, e)
}

func TestRunSession_CancelledContextStopsPump(t *testing.T) {
	sensor := &fakeSensor{queues: map[int][]float64{
		testChannels.Water: {3.1},
		testChannels.Soil:  {3.0},
	}}
	pump := &fakePump{}
	j := &cancelAwareJournal{}
	ctrl := newTestController(sensor, pump, j, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reason, err := ctrl.RunSession(ctx, models.SessionConfig{
		Timeout:         time.Minute,
		CheckWaterLevel: true,
		CheckMoisture:   true,
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if reason != models.StopReasonFault {
		t.Fatalf("reason = %v, want FAULT", reason)
	}
	assertPumpStopped(t, pump)

	// the interrupted session must still leave its stop record
	if n := j.countType(journal.EventSessionStop); n != 1 {
		t.Fatalf("expected one stop event despite cancellation, got %d", n)
	}
	if n := j.countType(journal.EventFault); n != 1 {
		t.Fatalf("expected one fault event despite cancellation, got %d", n)
	}
}
